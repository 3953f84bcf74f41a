package mux

import (
	"testing"
	"time"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
)

func TestVelocityHandleNeverReceivedIsExpired(t *testing.T) {
	h := NewVelocityHandle("nav", "nav_vel", 10, time.Second, domain.ShapePlain)
	if !h.IsExpired(time.Now()) {
		t.Fatalf("expected handle with no sample to be expired")
	}
	if _, ok := h.Last(); ok {
		t.Fatalf("expected no last sample before first receipt")
	}
}

func TestVelocityHandleExpiry(t *testing.T) {
	base := time.Unix(1000, 0)
	h := NewVelocityHandle("nav", "nav_vel", 10, 200*time.Millisecond, domain.ShapePlain)
	h.Record(domain.NewPlain(domain.Twist{LinearX: 0.1}), base)

	if h.IsExpired(base.Add(150 * time.Millisecond)) {
		t.Fatalf("expected fresh handle within timeout")
	}
	if h.IsExpired(base.Add(200 * time.Millisecond)) {
		t.Fatalf("expected age == timeout to still be fresh")
	}
	if !h.IsExpired(base.Add(201 * time.Millisecond)) {
		t.Fatalf("expected handle beyond timeout to be expired")
	}
}

func TestVelocityHandleZeroTimeoutNeverExpires(t *testing.T) {
	base := time.Unix(1000, 0)
	h := NewVelocityHandle("nav", "nav_vel", 10, 0, domain.ShapePlain)
	h.Record(domain.NewPlain(domain.Twist{}), base)

	if h.IsExpired(base.Add(24 * time.Hour)) {
		t.Fatalf("expected zero-timeout handle to never expire")
	}
}

func TestVelocityHandleMaskingIsStrict(t *testing.T) {
	h := NewVelocityHandle("nav", "nav_vel", 10, 0, domain.ShapePlain)

	if h.IsMasked(10) {
		t.Fatalf("equal priority must not mask")
	}
	if !h.IsMasked(11) {
		t.Fatalf("higher lock priority must mask")
	}
	if h.IsMasked(0) {
		t.Fatalf("zero lock priority must not mask")
	}
}

func TestVelocityHandleRecordUpdatesTogether(t *testing.T) {
	base := time.Unix(1000, 0)
	h := NewVelocityHandle("nav", "nav_vel", 10, time.Second, domain.ShapePlain)

	msg := domain.NewPlain(domain.Twist{LinearX: 0.3})
	h.Record(msg, base)

	got, ok := h.Last()
	if !ok || got.Twist() != msg.Twist() {
		t.Fatalf("expected last sample stored, got %+v ok=%t", got, ok)
	}
	age, ok := h.Age(base.Add(time.Millisecond * 50))
	if !ok || age != 50*time.Millisecond {
		t.Fatalf("expected age 50ms, got %s ok=%t", age, ok)
	}
}
