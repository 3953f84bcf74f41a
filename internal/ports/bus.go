package ports

import (
	"time"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
)

// Clock supplies the monotonic instants used for freshness checks.
type Clock interface {
	Now() time.Time
}

// TwistCallback delivers a velocity message together with its arrival instant.
type TwistCallback func(msg domain.Message, at time.Time)

// LockCallback delivers a lock signal together with its arrival instant.
type LockCallback func(sig domain.LockSignal, at time.Time)

// Subscription identifies an active subscription on the bus. Cancelling stops
// delivery; it is safe to cancel twice.
type Subscription interface {
	ID() string
	Topic() string
	Cancel() error
}

// Bus abstracts the transport that delivers velocity and lock streams and
// carries the arbitrated output. Implementations may invoke callbacks from
// their own goroutines; callers are responsible for serializing shared state.
type Bus interface {
	Clock

	// SubscribeTwist registers a callback for velocity messages on topic.
	// The declared shape is a contract: a payload of a different shape is a
	// type mismatch, reported through the implementation's error handler.
	SubscribeTwist(topic string, shape domain.Shape, fn TwistCallback) (Subscription, error)

	// SubscribeLock registers a callback for lock signals on topic.
	SubscribeLock(topic string, fn LockCallback) (Subscription, error)

	// PublishTwist emits a velocity message on topic. It is a bounded
	// synchronous call; failures are returned, never retried internally.
	PublishTwist(topic string, msg domain.Message) error

	// PublishLock emits a lock signal on topic.
	PublishLock(topic string, sig domain.LockSignal) error

	// SchedulePeriodic invokes fn every period until the returned stop
	// function is called.
	SchedulePeriodic(period time.Duration, fn func(now time.Time)) (stop func())
}
