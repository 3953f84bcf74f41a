package ports

import (
	"time"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
)

// Condition classifies the freshness of a handle for reporting.
type Condition string

const (
	ConditionOK            Condition = "OK"
	ConditionStale         Condition = "STALE"
	ConditionNeverReceived Condition = "NEVER_RECEIVED"
)

// HandleStatus is the per-handle slice of a diagnostics snapshot.
type HandleStatus struct {
	Name     string
	Priority domain.Priority
	Received bool
	Age      time.Duration // valid only when Received
	Stale    bool
	Engaged  bool // lock handles only
}

// Condition folds the freshness flags into a single classification.
func (h HandleStatus) Condition() Condition {
	switch {
	case !h.Received:
		return ConditionNeverReceived
	case h.Stale:
		return ConditionStale
	default:
		return ConditionOK
	}
}

// Status is a read-only snapshot of the arbiter taken at one instant.
type Status struct {
	TakenAt      time.Time
	Velocities   []HandleStatus
	Locks        []HandleStatus
	LockPriority domain.Priority
	Winner       string // empty when no candidate exists
}

// DiagnosticsSink receives periodic status snapshots. Implementations must
// not retain references into the snapshot beyond the call.
type DiagnosticsSink interface {
	Report(Status)
}
