package membus

import (
	"errors"
	"testing"
	"time"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func TestPublishDeliversToMatchingShape(t *testing.T) {
	now := time.Unix(1000, 0)
	b := New(WithClock(fixedClock{at: now}))

	var got domain.Message
	var gotAt time.Time
	sub, err := b.SubscribeTwist("nav_vel", domain.ShapePlain, func(msg domain.Message, at time.Time) {
		got = msg
		gotAt = at
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	msg := domain.NewPlain(domain.Twist{LinearX: 0.4})
	if err := b.PublishTwist("nav_vel", msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.Twist() != msg.Twist() {
		t.Fatalf("expected delivered twist %+v, got %+v", msg.Twist(), got.Twist())
	}
	if gotAt != now {
		t.Fatalf("expected arrival instant from the clock, got %s", gotAt)
	}

	stats, ok := b.Stats(sub.ID())
	if !ok || stats.Delivered != 1 || stats.Mismatched != 0 {
		t.Fatalf("unexpected stats %+v ok=%t", stats, ok)
	}
}

func TestPublishShapeMismatch(t *testing.T) {
	b := New()

	var calls int
	sub, err := b.SubscribeTwist("nav_vel", domain.ShapeStamped, func(domain.Message, time.Time) { calls++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	err = b.PublishTwist("nav_vel", domain.NewPlain(domain.Twist{LinearX: 0.1}))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("mismatched subscription must not receive the sample")
	}

	stats, _ := b.Stats(sub.ID())
	if stats.Mismatched != 1 || stats.Delivered != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPublishNoSubscribersIsNotAnError(t *testing.T) {
	b := New()
	if err := b.PublishTwist("empty", domain.NewPlain(domain.Twist{})); err != nil {
		t.Fatalf("publish without subscribers: %v", err)
	}
	if err := b.PublishLock("empty", domain.LockSignal{Engaged: true}); err != nil {
		t.Fatalf("publish lock without subscribers: %v", err)
	}
}

func TestLockDelivery(t *testing.T) {
	b := New()

	var got domain.LockSignal
	if _, err := b.SubscribeLock("e_stop", func(sig domain.LockSignal, at time.Time) { got = sig }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := b.PublishLock("e_stop", domain.LockSignal{Engaged: true}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !got.Engaged {
		t.Fatalf("expected engaged lock signal delivered")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()

	var calls int
	sub, err := b.SubscribeTwist("nav_vel", domain.ShapePlain, func(domain.Message, time.Time) { calls++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := b.PublishTwist("nav_vel", domain.NewPlain(domain.Twist{})); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := sub.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := b.PublishTwist("nav_vel", domain.NewPlain(domain.Twist{})); err != nil {
		t.Fatalf("publish after cancel: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one delivery, got %d", calls)
	}
}

func TestCallbackMayPublishBack(t *testing.T) {
	// A subscriber that republishes on another topic must not deadlock; the
	// arbiter publishes the output from inside an input callback.
	b := New()

	var out domain.Message
	if _, err := b.SubscribeTwist("cmd_vel_out", domain.ShapePlain, func(msg domain.Message, at time.Time) {
		out = msg
	}); err != nil {
		t.Fatalf("subscribe out: %v", err)
	}
	if _, err := b.SubscribeTwist("nav_vel", domain.ShapePlain, func(msg domain.Message, at time.Time) {
		if err := b.PublishTwist("cmd_vel_out", msg); err != nil {
			t.Errorf("republish: %v", err)
		}
	}); err != nil {
		t.Fatalf("subscribe in: %v", err)
	}

	want := domain.NewPlain(domain.Twist{LinearX: 0.7})
	if err := b.PublishTwist("nav_vel", want); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if out.Twist() != want.Twist() {
		t.Fatalf("expected republished twist %+v, got %+v", want.Twist(), out.Twist())
	}
}

func TestClosedBusRejectsUse(t *testing.T) {
	b := New()
	b.Close()

	if _, err := b.SubscribeTwist("nav_vel", domain.ShapePlain, func(domain.Message, time.Time) {}); !errors.Is(err, ErrBusClosed) {
		t.Fatalf("expected ErrBusClosed on subscribe, got %v", err)
	}
	if err := b.PublishTwist("nav_vel", domain.NewPlain(domain.Twist{})); !errors.Is(err, ErrBusClosed) {
		t.Fatalf("expected ErrBusClosed on publish, got %v", err)
	}
	b.Close() // idempotent
}

func TestSchedulePeriodic(t *testing.T) {
	b := New()

	ticks := make(chan time.Time, 8)
	stop := b.SchedulePeriodic(5*time.Millisecond, func(now time.Time) {
		select {
		case ticks <- now:
		default:
		}
	})
	defer stop()

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatalf("expected a periodic tick within 1s")
	}

	stop()
	stop() // stop is safe to call twice
}
