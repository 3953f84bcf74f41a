package mux

import (
	"time"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
)

// LockState describes the freshness of a lock input.
type LockState int

const (
	LockNeverReceived LockState = iota
	LockFreshDisengaged
	LockFreshEngaged
	LockStale
)

func (s LockState) String() string {
	switch s {
	case LockNeverReceived:
		return "never_received"
	case LockFreshDisengaged:
		return "fresh_disengaged"
	case LockFreshEngaged:
		return "fresh_engaged"
	case LockStale:
		return "stale"
	default:
		return "unknown"
	}
}

// LockHandle latches the engaged state of one lock input. A lock that has
// never reported, or whose last report is older than its timeout, is treated
// as engaged: losing contact with a safety source must not unlock the robot.
type LockHandle struct {
	name     string
	topic    string
	priority domain.Priority
	timeout  time.Duration

	received bool
	engaged  bool
	lastAt   time.Time
}

// NewLockHandle builds a handle for one configured lock input.
func NewLockHandle(name, topic string, priority domain.Priority, timeout time.Duration) *LockHandle {
	return &LockHandle{
		name:     name,
		topic:    topic,
		priority: priority,
		timeout:  timeout,
	}
}

func (h *LockHandle) Name() string              { return h.name }
func (h *LockHandle) Topic() string             { return h.topic }
func (h *LockHandle) Priority() domain.Priority { return h.priority }

// Record latches the engaged flag from a newly received signal.
func (h *LockHandle) Record(sig domain.LockSignal, now time.Time) {
	h.engaged = sig.Engaged
	h.lastAt = now
	h.received = true
}

// Engaged returns the latched assertion flag from the most recent signal.
func (h *LockHandle) Engaged() bool { return h.engaged }

// Age returns the time since the last signal.
func (h *LockHandle) Age(now time.Time) (time.Duration, bool) {
	if !h.received {
		return 0, false
	}
	return now.Sub(h.lastAt), true
}

// State evaluates the freshness state machine at the given instant.
func (h *LockHandle) State(now time.Time) LockState {
	if !h.received {
		return LockNeverReceived
	}
	if h.timeout > 0 && now.Sub(h.lastAt) > h.timeout {
		return LockStale
	}
	if h.engaged {
		return LockFreshEngaged
	}
	return LockFreshDisengaged
}

// IsLocked reports whether the lock asserts its priority: engaged while
// fresh, or fail-safe when stale or never received.
func (h *LockHandle) IsLocked(now time.Time) bool {
	return h.State(now) != LockFreshDisengaged
}

// EffectivePriority returns the declared priority while locked, zero
// otherwise.
func (h *LockHandle) EffectivePriority(now time.Time) domain.Priority {
	if h.IsLocked(now) {
		return h.priority
	}
	return 0
}
