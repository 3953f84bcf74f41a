package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/FIBO-Engineer/twist-mux/internal/ports"
)

// LogSink writes each diagnostics snapshot as one key-value line per handle,
// classifying handles as OK, STALE or NEVER_RECEIVED.
type LogSink struct {
	logf func(format string, args ...any)
}

// NewLogSink builds a sink writing through the standard logger.
func NewLogSink() *LogSink {
	return &LogSink{logf: log.Printf}
}

func (s *LogSink) Report(st ports.Status) {
	var b strings.Builder
	fmt.Fprintf(&b, "diagnostics lock_priority=%d winner=%s", st.LockPriority, orNone(st.Winner))
	for _, h := range st.Velocities {
		fmt.Fprintf(&b, " vel.%s=%s", h.Name, s.describe(h))
	}
	for _, h := range st.Locks {
		fmt.Fprintf(&b, " lock.%s=%s,engaged=%t", h.Name, s.describe(h), h.Engaged)
	}
	s.logf("%s", b.String())
}

func (s *LogSink) describe(h ports.HandleStatus) string {
	cond := h.Condition()
	if cond == ports.ConditionNeverReceived {
		return string(cond)
	}
	return fmt.Sprintf("%s,age=%.3fs", cond, h.Age.Seconds())
}

func orNone(name string) string {
	if name == "" {
		return "none"
	}
	return name
}

var _ ports.DiagnosticsSink = (*LogSink)(nil)
