package mux

import (
	"time"

	"github.com/FIBO-Engineer/twist-mux/internal/ports"
)

// DiagnosticsPeriod is the cadence at which status snapshots are reported.
const DiagnosticsPeriod = time.Second

// Reporter periodically snapshots the arbiter and hands the result to a
// diagnostics sink. It is read-only with respect to handle state.
type Reporter struct {
	arb  *Arbiter
	sink ports.DiagnosticsSink
}

// NewReporter builds a reporter for the given arbiter and sink.
func NewReporter(arb *Arbiter, sink ports.DiagnosticsSink) *Reporter {
	return &Reporter{arb: arb, sink: sink}
}

// Start schedules the periodic report on the bus scheduler and returns the
// stop function. A period of zero falls back to DiagnosticsPeriod.
func (r *Reporter) Start(bus ports.Bus, period time.Duration) (stop func()) {
	if period <= 0 {
		period = DiagnosticsPeriod
	}
	return bus.SchedulePeriodic(period, r.Tick)
}

// Tick assembles one snapshot and reports it.
func (r *Reporter) Tick(now time.Time) {
	if r.sink == nil {
		return
	}
	r.sink.Report(r.arb.Snapshot(now))
}
