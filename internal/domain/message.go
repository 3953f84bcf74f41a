package domain

import "fmt"

// Shape identifies the wire form of a velocity message.
type Shape int

const (
	ShapePlain Shape = iota
	ShapeStamped
)

func (s Shape) String() string {
	switch s {
	case ShapePlain:
		return "plain"
	case ShapeStamped:
		return "stamped"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Message is a tagged variant over the two velocity shapes. The zero value is
// a plain message with a zero twist.
type Message struct {
	shape  Shape
	twist  Twist
	header Header
}

// NewPlain wraps a bare Twist.
func NewPlain(t Twist) Message {
	return Message{shape: ShapePlain, twist: t}
}

// NewStamped wraps a StampedTwist.
func NewStamped(st StampedTwist) Message {
	return Message{shape: ShapeStamped, twist: st.Twist, header: st.Header}
}

// Shape returns the variant tag.
func (m Message) Shape() Shape { return m.shape }

// Twist returns the velocity components regardless of shape.
func (m Message) Twist() Twist { return m.twist }

// Stamped returns the message as a StampedTwist. For a plain message the
// header is zero.
func (m Message) Stamped() StampedTwist {
	return StampedTwist{Header: m.header, Twist: m.twist}
}

// Convert maps the message to the requested output shape:
//
//	plain   -> plain    forward as-is
//	plain   -> stamped  wrap with a zero header
//	stamped -> plain    unwrap the inner twist
//	stamped -> stamped  forward as-is
func (m Message) Convert(out Shape) Message {
	if m.shape == out {
		return m
	}
	if out == ShapeStamped {
		return Message{shape: ShapeStamped, twist: m.twist}
	}
	return Message{shape: ShapePlain, twist: m.twist}
}

// LockSignal is a boolean-carrying message from a lock source.
type LockSignal struct {
	Engaged bool `json:"engaged"`
}
