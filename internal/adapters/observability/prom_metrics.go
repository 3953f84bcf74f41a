package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FIBO-Engineer/twist-mux/internal/ports"
)

// PromObs backs the observability port with Prometheus collectors and also
// acts as a diagnostics sink, exporting per-handle freshness gauges.
type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge

	handleAge   *prometheus.GaugeVec
	handleStale *prometheus.GaugeVec
	lockEngaged *prometheus.GaugeVec
}

func NewPromObs() *PromObs {
	emissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "twist_mux_emissions_total",
		Help: "Arbitrated commands published on the output topic.",
	})
	suppressed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "twist_mux_suppressed_total",
		Help: "Emissions vetoed by the handover safety shaper.",
	})
	noWinner := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "twist_mux_no_winner_cycles_total",
		Help: "Arbitration cycles where no candidate velocity input existed.",
	})
	publishFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "twist_mux_publish_failures_total",
		Help: "Transport failures while publishing the arbitrated command.",
	})
	typeMismatch := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "twist_mux_type_mismatch_total",
		Help: "Inbound messages whose shape contradicted the handle configuration.",
	})
	lockPriority := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "twist_mux_lock_priority",
		Help: "Highest effective priority among engaged or stale locks.",
	})

	handleAge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "twist_mux_handle_age_seconds",
		Help: "Seconds since the last message on each input handle; -1 before first receipt.",
	}, []string{"handle", "kind"})
	handleStale := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "twist_mux_handle_stale",
		Help: "1 when the handle's last message is older than its timeout.",
	}, []string{"handle", "kind"})
	lockEngaged := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "twist_mux_lock_engaged",
		Help: "1 when the lock currently asserts its priority.",
	}, []string{"handle"})

	prometheus.MustRegister(emissions, suppressed, noWinner, publishFailures,
		typeMismatch, lockPriority, handleAge, handleStale, lockEngaged)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"twist_mux_emissions_total":        emissions,
			"twist_mux_suppressed_total":       suppressed,
			"twist_mux_no_winner_cycles_total": noWinner,
			"twist_mux_publish_failures_total": publishFailures,
			"twist_mux_type_mismatch_total":    typeMismatch,
		},
		gauges: map[string]prometheus.Gauge{
			"twist_mux_lock_priority": lockPriority,
		},
		handleAge:   handleAge,
		handleStale: handleStale,
		lockEngaged: lockEngaged,
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

// Report exports a diagnostics snapshot as per-handle gauges.
func (p *PromObs) Report(st ports.Status) {
	p.SetGauge("twist_mux_lock_priority", float64(st.LockPriority))

	for _, h := range st.Velocities {
		p.setHandle(h, "velocity")
	}
	for _, h := range st.Locks {
		p.setHandle(h, "lock")
		engaged := 0.0
		if h.Engaged {
			engaged = 1
		}
		p.lockEngaged.WithLabelValues(h.Name).Set(engaged)
	}
}

func (p *PromObs) setHandle(h ports.HandleStatus, kind string) {
	if h.Received {
		p.handleAge.WithLabelValues(h.Name, kind).Set(h.Age.Seconds())
	} else {
		p.handleAge.WithLabelValues(h.Name, kind).Set(-1)
	}
	stale := 0.0
	if h.Stale || !h.Received {
		stale = 1
	}
	p.handleStale.WithLabelValues(h.Name, kind).Set(stale)
}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

var (
	_ ports.Observability   = (*PromObs)(nil)
	_ ports.DiagnosticsSink = (*PromObs)(nil)
)
