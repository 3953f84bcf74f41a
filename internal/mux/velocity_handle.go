package mux

import (
	"time"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
)

// VelocityHandle tracks the latest sample received on one velocity input.
// Priority, timeout and shape are immutable after construction; the latest
// sample and its arrival instant update together on receipt.
//
// The handle is a passive container: the owning Arbiter serializes access.
type VelocityHandle struct {
	name     string
	topic    string
	priority domain.Priority
	timeout  time.Duration
	shape    domain.Shape

	received bool
	last     domain.Message
	lastAt   time.Time
}

// NewVelocityHandle builds a handle for one configured velocity input.
// A timeout of zero means the handle never expires once it has received.
// Handles registered earlier on the arbiter win exact selection ties.
func NewVelocityHandle(name, topic string, priority domain.Priority, timeout time.Duration, shape domain.Shape) *VelocityHandle {
	return &VelocityHandle{
		name:     name,
		topic:    topic,
		priority: priority,
		timeout:  timeout,
		shape:    shape,
	}
}

func (h *VelocityHandle) Name() string              { return h.name }
func (h *VelocityHandle) Topic() string             { return h.topic }
func (h *VelocityHandle) Priority() domain.Priority { return h.priority }
func (h *VelocityHandle) Shape() domain.Shape       { return h.shape }

// Record stores a newly received sample and its arrival instant.
func (h *VelocityHandle) Record(msg domain.Message, now time.Time) {
	h.last = msg
	h.lastAt = now
	h.received = true
}

// Last returns the most recent sample, if any has been received.
func (h *VelocityHandle) Last() (domain.Message, bool) {
	return h.last, h.received
}

// Age returns the time since the last sample.
func (h *VelocityHandle) Age(now time.Time) (time.Duration, bool) {
	if !h.received {
		return 0, false
	}
	return now.Sub(h.lastAt), true
}

// IsExpired reports whether the handle cannot win: it has never received a
// sample, or its timeout is set and the last sample is older than it.
func (h *VelocityHandle) IsExpired(now time.Time) bool {
	if !h.received {
		return true
	}
	return h.timeout > 0 && now.Sub(h.lastAt) > h.timeout
}

// IsMasked reports whether the handle is suppressed by the current lock
// priority. Equal priority is not masked.
func (h *VelocityHandle) IsMasked(lockPriority domain.Priority) bool {
	return h.priority < lockPriority
}
