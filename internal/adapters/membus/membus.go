// Package membus provides an in-process implementation of the bus port.
//
// Delivery is synchronous: PublishTwist and PublishLock invoke subscriber
// callbacks inline on the caller's goroutine, preserving per-topic arrival
// order. Callbacks are invoked outside the bus lock, so a callback may
// publish back onto the bus without deadlocking.
package membus

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
	"github.com/FIBO-Engineer/twist-mux/internal/ports"
)

var (
	ErrBusClosed     = errors.New("membus: bus is closed")
	ErrShapeMismatch = errors.New("membus: published shape does not match subscription")
)

// SubscriptionStats tracks delivery counts for one subscription.
type SubscriptionStats struct {
	Delivered  uint64
	Mismatched uint64
}

type twistSub struct {
	id    string
	topic string
	shape domain.Shape
	fn    ports.TwistCallback
	stats SubscriptionStats
	bus   *Bus
}

func (s *twistSub) ID() string    { return s.id }
func (s *twistSub) Topic() string { return s.topic }
func (s *twistSub) Cancel() error { return s.bus.cancelTwist(s.topic, s.id) }

type lockSub struct {
	id    string
	topic string
	fn    ports.LockCallback
	stats SubscriptionStats
	bus   *Bus
}

func (s *lockSub) ID() string    { return s.id }
func (s *lockSub) Topic() string { return s.topic }
func (s *lockSub) Cancel() error { return s.bus.cancelLock(s.topic, s.id) }

// Option configures the bus.
type Option func(*Bus)

// WithClock overrides the time source, mainly for tests.
func WithClock(c ports.Clock) Option {
	return func(b *Bus) { b.clock = c }
}

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now() }

// Bus is an in-process ports.Bus.
type Bus struct {
	mu        sync.RWMutex
	twistSubs map[string][]*twistSub
	lockSubs  map[string][]*lockSub
	clock     ports.Clock
	closed    bool
}

// New creates an empty in-process bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		twistSubs: make(map[string][]*twistSub),
		lockSubs:  make(map[string][]*lockSub),
		clock:     sysClock{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Bus) Now() time.Time { return b.clock.Now() }

// SubscribeTwist registers a velocity callback on topic with a declared shape.
func (b *Bus) SubscribeTwist(topic string, shape domain.Shape, fn ports.TwistCallback) (ports.Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("membus: nil callback for topic %q", topic)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	sub := &twistSub{id: uuid.NewString(), topic: topic, shape: shape, fn: fn, bus: b}
	b.twistSubs[topic] = append(b.twistSubs[topic], sub)
	return sub, nil
}

// SubscribeLock registers a lock callback on topic.
func (b *Bus) SubscribeLock(topic string, fn ports.LockCallback) (ports.Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("membus: nil callback for topic %q", topic)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	sub := &lockSub{id: uuid.NewString(), topic: topic, fn: fn, bus: b}
	b.lockSubs[topic] = append(b.lockSubs[topic], sub)
	return sub, nil
}

// PublishTwist delivers msg to every matching-shape subscription on topic.
// A subscription declaring a different shape counts as a mismatch and the
// call reports ErrShapeMismatch after delivering to the others.
func (b *Bus) PublishTwist(topic string, msg domain.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	subs := append([]*twistSub(nil), b.twistSubs[topic]...)
	b.mu.RUnlock()

	at := b.clock.Now()
	var mismatched bool
	for _, sub := range subs {
		if sub.shape != msg.Shape() {
			atomic.AddUint64(&sub.stats.Mismatched, 1)
			mismatched = true
			continue
		}
		atomic.AddUint64(&sub.stats.Delivered, 1)
		sub.fn(msg, at)
	}
	if mismatched {
		return fmt.Errorf("%w: topic %q carries %s", ErrShapeMismatch, topic, msg.Shape())
	}
	return nil
}

// PublishLock delivers sig to every lock subscription on topic.
func (b *Bus) PublishLock(topic string, sig domain.LockSignal) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	subs := append([]*lockSub(nil), b.lockSubs[topic]...)
	b.mu.RUnlock()

	at := b.clock.Now()
	for _, sub := range subs {
		atomic.AddUint64(&sub.stats.Delivered, 1)
		sub.fn(sig, at)
	}
	return nil
}

// SchedulePeriodic runs fn on a ticker goroutine until stop is called.
func (b *Bus) SchedulePeriodic(period time.Duration, fn func(now time.Time)) (stop func()) {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn(b.clock.Now())
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// Stats returns delivery counters for the subscription with the given ID.
func (b *Bus) Stats(id string) (SubscriptionStats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, subs := range b.twistSubs {
		for _, s := range subs {
			if s.id == id {
				return SubscriptionStats{
					Delivered:  atomic.LoadUint64(&s.stats.Delivered),
					Mismatched: atomic.LoadUint64(&s.stats.Mismatched),
				}, true
			}
		}
	}
	for _, subs := range b.lockSubs {
		for _, s := range subs {
			if s.id == id {
				return SubscriptionStats{
					Delivered: atomic.LoadUint64(&s.stats.Delivered),
				}, true
			}
		}
	}
	return SubscriptionStats{}, false
}

// Close drops all subscriptions. Pending periodic tasks must be stopped by
// their own stop functions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.twistSubs = nil
	b.lockSubs = nil
}

func (b *Bus) cancelTwist(topic, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	subs := b.twistSubs[topic]
	for i, s := range subs {
		if s.id == id {
			b.twistSubs[topic] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (b *Bus) cancelLock(topic, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	subs := b.lockSubs[topic]
	for i, s := range subs {
		if s.id == id {
			b.lockSubs[topic] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return nil
}

var _ ports.Bus = (*Bus)(nil)
