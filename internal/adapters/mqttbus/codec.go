package mqttbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
)

// ErrTypeMismatch indicates a payload whose shape tag does not match the
// shape declared by the subscription.
var ErrTypeMismatch = errors.New("mqttbus: payload shape does not match subscription")

// Wire envelopes carry an explicit shape tag so a misconfigured producer is
// detected instead of silently decoded into zero values.
const (
	wirePlain   = uint8(0)
	wireStamped = uint8(1)
)

type wireTwist struct {
	LinearX  float64 `msgpack:"lx"`
	LinearY  float64 `msgpack:"ly"`
	LinearZ  float64 `msgpack:"lz"`
	AngularX float64 `msgpack:"ax"`
	AngularY float64 `msgpack:"ay"`
	AngularZ float64 `msgpack:"az"`
}

type wireEnvelope struct {
	Shape   uint8     `msgpack:"s"`
	Twist   wireTwist `msgpack:"tw"`
	StampNS int64     `msgpack:"st,omitempty"`
	FrameID string    `msgpack:"fid,omitempty"`
}

type wireLock struct {
	Engaged bool `msgpack:"on"`
}

func toWireTwist(t domain.Twist) wireTwist {
	return wireTwist{
		LinearX: t.LinearX, LinearY: t.LinearY, LinearZ: t.LinearZ,
		AngularX: t.AngularX, AngularY: t.AngularY, AngularZ: t.AngularZ,
	}
}

func fromWireTwist(w wireTwist) domain.Twist {
	return domain.Twist{
		LinearX: w.LinearX, LinearY: w.LinearY, LinearZ: w.LinearZ,
		AngularX: w.AngularX, AngularY: w.AngularY, AngularZ: w.AngularZ,
	}
}

// EncodeTwist serializes a velocity message for the wire.
func EncodeTwist(msg domain.Message) ([]byte, error) {
	env := wireEnvelope{Twist: toWireTwist(msg.Twist())}
	switch msg.Shape() {
	case domain.ShapePlain:
		env.Shape = wirePlain
	case domain.ShapeStamped:
		env.Shape = wireStamped
		st := msg.Stamped()
		if !st.Header.Stamp.IsZero() {
			env.StampNS = st.Header.Stamp.UnixNano()
		}
		env.FrameID = st.Header.FrameID
	default:
		return nil, fmt.Errorf("mqttbus: unsupported shape %s", msg.Shape())
	}
	return msgpack.Marshal(&env)
}

// DecodeTwist deserializes a payload, enforcing the declared shape.
func DecodeTwist(payload []byte, declared domain.Shape) (domain.Message, error) {
	var env wireEnvelope
	if err := msgpack.Unmarshal(payload, &env); err != nil {
		return domain.Message{}, fmt.Errorf("mqttbus: decode twist: %w", err)
	}

	var got domain.Shape
	switch env.Shape {
	case wirePlain:
		got = domain.ShapePlain
	case wireStamped:
		got = domain.ShapeStamped
	default:
		return domain.Message{}, fmt.Errorf("mqttbus: unknown shape tag %d", env.Shape)
	}
	if got != declared {
		return domain.Message{}, fmt.Errorf("%w: declared %s, got %s", ErrTypeMismatch, declared, got)
	}

	if got == domain.ShapePlain {
		return domain.NewPlain(fromWireTwist(env.Twist)), nil
	}
	var stamp time.Time
	if env.StampNS != 0 {
		stamp = time.Unix(0, env.StampNS)
	}
	return domain.NewStamped(domain.StampedTwist{
		Header: domain.Header{Stamp: stamp, FrameID: env.FrameID},
		Twist:  fromWireTwist(env.Twist),
	}), nil
}

// EncodeLock serializes a lock signal.
func EncodeLock(sig domain.LockSignal) ([]byte, error) {
	return msgpack.Marshal(&wireLock{Engaged: sig.Engaged})
}

// DecodeLock deserializes a lock signal.
func DecodeLock(payload []byte) (domain.LockSignal, error) {
	var w wireLock
	if err := msgpack.Unmarshal(payload, &w); err != nil {
		return domain.LockSignal{}, fmt.Errorf("mqttbus: decode lock: %w", err)
	}
	return domain.LockSignal{Engaged: w.Engaged}, nil
}
