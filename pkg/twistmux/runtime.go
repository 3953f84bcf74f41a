package twistmux

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FIBO-Engineer/twist-mux/internal/adapters/membus"
	"github.com/FIBO-Engineer/twist-mux/internal/adapters/mqttbus"
	"github.com/FIBO-Engineer/twist-mux/internal/adapters/observability"
	"github.com/FIBO-Engineer/twist-mux/internal/mux"
	"github.com/FIBO-Engineer/twist-mux/internal/ports"
)

// Option customizes the dependencies used by Mux.
type Option func(*overrides)

type overrides struct {
	bus        ports.Bus
	obs        ports.Observability
	sink       ports.DiagnosticsSink
	clock      ports.Clock
	diagPeriod time.Duration
}

// WithBus injects a custom transport instead of the config-selected one.
func WithBus(b Bus) Option {
	return func(o *overrides) { o.bus = b }
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) Option {
	return func(o *overrides) { o.obs = obs }
}

// WithDiagnosticsSink overrides the default diagnostics sink.
func WithDiagnosticsSink(s DiagnosticsSink) Option {
	return func(o *overrides) { o.sink = s }
}

// WithDiagnosticsPeriod overrides the reporting cadence, mainly for tests.
func WithDiagnosticsPeriod(period time.Duration) Option {
	return func(o *overrides) { o.diagPeriod = period }
}

// WithClock overrides the time source of the in-process bus. It has no
// effect when a custom bus or the MQTT transport is selected.
func WithClock(c ports.Clock) Option {
	return func(o *overrides) { o.clock = c }
}

// Mux wires the bus, the arbiter and the diagnostics reporter into a runnable
// velocity-command multiplexer.
type Mux struct {
	cfg *Config
	bus ports.Bus
	arb *mux.Arbiter
	rep *mux.Reporter
	obs ports.Observability

	ownedMQTT *mqttbus.Bus
	ownedMem  *membus.Bus

	diagPeriod time.Duration
	metricsSrv *http.Server
	stopDiag   func()
	subs       []ports.Subscription
	fatalCh    chan error
	started    bool
}

// New bootstraps the default adapters: an MQTT bus when the config names a
// broker, the in-process bus otherwise, and Prometheus observability. Options
// can override any dependency.
func New(cfg *Config, opts ...Option) (*Mux, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	obs := o.obs
	if obs == nil {
		obs = observability.NewPromObs()
	}

	m := &Mux{
		cfg:        cfg,
		obs:        obs,
		diagPeriod: o.diagPeriod,
		fatalCh:    make(chan error, 1),
	}
	if m.diagPeriod <= 0 {
		m.diagPeriod = cfg.DiagnosticsPeriodDuration()
	}

	if o.bus != nil {
		m.bus = o.bus
	} else if cfg.MQTT.Broker != "" {
		mb, err := mqttbus.New(mqttbus.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			QoS:      cfg.MQTT.QoS,
		})
		if err != nil {
			return nil, err
		}
		m.ownedMQTT = mb
		m.bus = mb
	} else {
		var memOpts []membus.Option
		if o.clock != nil {
			memOpts = append(memOpts, membus.WithClock(o.clock))
		}
		m.ownedMem = membus.New(memOpts...)
		m.bus = m.ownedMem
	}

	sink := o.sink
	if sink == nil {
		if s, ok := obs.(ports.DiagnosticsSink); ok {
			sink = s
		} else {
			sink = observability.NewLogSink()
		}
	}

	m.arb = mux.NewArbiter(m.bus, obs, cfg.OutTopic, cfg.OutShape())
	for _, t := range cfg.Topics {
		h := mux.NewVelocityHandle(t.Name, t.Topic, Priority(t.Priority), t.TimeoutDuration(), t.Shape())
		if err := m.arb.AddVelocity(h); err != nil {
			return nil, err
		}
	}
	for _, l := range cfg.Locks {
		h := mux.NewLockHandle(l.Name, l.Topic, Priority(l.Priority), l.TimeoutDuration())
		if err := m.arb.AddLock(h); err != nil {
			return nil, err
		}
	}

	m.rep = mux.NewReporter(m.arb, sink)
	return m, nil
}

// Bus exposes the transport so embedding callers and tests can publish inputs.
func (m *Mux) Bus() Bus { return m.bus }

// Start connects the transport, subscribes every configured input and begins
// periodic diagnostics. It returns immediately; call Run to block instead.
func (m *Mux) Start() error {
	if m.started {
		return fmt.Errorf("mux already started")
	}

	m.arb.SetFatalHandler(m.fail)
	if m.ownedMQTT != nil {
		m.ownedMQTT.SetDecodeErrorHandler(m.fail)
		if err := m.ownedMQTT.Connect(); err != nil {
			return err
		}
	}

	for _, t := range m.cfg.Topics {
		name := t.Name
		sub, err := m.bus.SubscribeTwist(t.Topic, t.Shape(), func(msg Message, at time.Time) {
			m.arb.OnTwist(name, msg, at)
		})
		if err != nil {
			return fmt.Errorf("subscribe velocity input %q: %w", name, err)
		}
		m.subs = append(m.subs, sub)
	}
	for _, l := range m.cfg.Locks {
		name := l.Name
		sub, err := m.bus.SubscribeLock(l.Topic, func(sig LockSignal, at time.Time) {
			m.arb.OnLock(name, sig, at)
		})
		if err != nil {
			return fmt.Errorf("subscribe lock input %q: %w", name, err)
		}
		m.subs = append(m.subs, sub)
	}

	m.stopDiag = m.rep.Start(m.bus, m.diagPeriod)
	m.startMetrics()

	m.started = true
	m.obs.LogInfo("twist_mux_started",
		Field{Key: "out_topic", Value: m.cfg.OutTopic},
		Field{Key: "out_shape", Value: m.cfg.OutShape().String()},
		Field{Key: "velocity_inputs", Value: len(m.cfg.Topics)},
		Field{Key: "lock_inputs", Value: len(m.cfg.Locks)},
	)
	return nil
}

// Run starts the mux and blocks until the context is cancelled or a fatal
// condition (type mismatch) is reported.
func (m *Mux) Run(ctx context.Context) error {
	if err := m.Start(); err != nil {
		return err
	}
	defer m.Stop()

	select {
	case <-ctx.Done():
		return nil
	case err := <-m.fatalCh:
		return err
	}
}

// Stop cancels subscriptions, halts diagnostics and releases the transport.
func (m *Mux) Stop() error {
	for _, sub := range m.subs {
		_ = sub.Cancel()
	}
	m.subs = nil

	if m.stopDiag != nil {
		m.stopDiag()
		m.stopDiag = nil
	}

	if m.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = m.metricsSrv.Shutdown(ctx)
		cancel()
		m.metricsSrv = nil
	}

	if m.ownedMQTT != nil {
		m.ownedMQTT.Close()
	}
	if m.ownedMem != nil {
		m.ownedMem.Close()
	}

	m.started = false
	return nil
}

// Status snapshots the arbiter at the current instant.
func (m *Mux) Status() Status {
	return m.arb.Snapshot(m.bus.Now())
}

func (m *Mux) startMetrics() {
	addr := m.cfg.Metrics.Addr
	if addr == "" {
		return
	}
	mh := http.NewServeMux()
	mh.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mh}
	m.metricsSrv = srv

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.obs.LogError("metrics_server_failed", err, Field{Key: "addr", Value: addr})
		}
	}()
}

func (m *Mux) fail(err error) {
	select {
	case m.fatalCh <- err:
	default:
	}
}
