package twistmux

import (
	"github.com/FIBO-Engineer/twist-mux/internal/domain"
	"github.com/FIBO-Engineer/twist-mux/internal/ports"
)

// Twist is an instantaneous velocity command.
type Twist = domain.Twist

// StampedTwist bundles a Twist with a header.
type StampedTwist = domain.StampedTwist

// Header carries the timestamp and frame of a stamped message.
type Header = domain.Header

// Message is the tagged variant over the two velocity shapes.
type Message = domain.Message

// Shape identifies the wire form of a velocity message.
type Shape = domain.Shape

const (
	ShapePlain   = domain.ShapePlain
	ShapeStamped = domain.ShapeStamped
)

// NewPlain wraps a bare Twist.
func NewPlain(t Twist) Message { return domain.NewPlain(t) }

// NewStamped wraps a StampedTwist.
func NewStamped(st StampedTwist) Message { return domain.NewStamped(st) }

// LockSignal is a boolean-carrying message from a lock source.
type LockSignal = domain.LockSignal

// Priority orders command sources; higher values win.
type Priority = domain.Priority

// Bus abstracts the transport carrying velocity streams, lock streams and
// the arbitrated output.
type Bus = ports.Bus

// Subscription identifies an active bus subscription.
type Subscription = ports.Subscription

// Clock supplies the instants used for freshness checks.
type Clock = ports.Clock

// Observability emits metrics and logs about arbitration.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Status is a read-only snapshot of the arbiter at one instant.
type Status = ports.Status

// HandleStatus is the per-handle slice of a Status snapshot.
type HandleStatus = ports.HandleStatus

// Condition classifies handle freshness in diagnostics reports.
type Condition = ports.Condition

const (
	ConditionOK            = ports.ConditionOK
	ConditionStale         = ports.ConditionStale
	ConditionNeverReceived = ports.ConditionNeverReceived
)

// DiagnosticsSink receives periodic Status snapshots.
type DiagnosticsSink = ports.DiagnosticsSink
