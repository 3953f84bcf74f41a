package twistmux

import (
	"time"

	base "github.com/FIBO-Engineer/twist-mux/pkg/twistmux"
)

// Type aliases so consumers can import github.com/FIBO-Engineer/twist-mux directly.
type (
	Config          = base.Config
	TopicConfig     = base.TopicConfig
	LockConfig      = base.LockConfig
	MetricsConfig   = base.MetricsConfig
	MQTTConfig      = base.MQTTConfig
	Mux             = base.Mux
	Option          = base.Option
	Twist           = base.Twist
	StampedTwist    = base.StampedTwist
	Header          = base.Header
	Message         = base.Message
	Shape           = base.Shape
	LockSignal      = base.LockSignal
	Priority        = base.Priority
	Bus             = base.Bus
	Subscription    = base.Subscription
	Clock           = base.Clock
	Observability   = base.Observability
	Field           = base.Field
	Status          = base.Status
	HandleStatus    = base.HandleStatus
	Condition       = base.Condition
	DiagnosticsSink = base.DiagnosticsSink
)

const (
	ShapePlain   = base.ShapePlain
	ShapeStamped = base.ShapeStamped

	ConditionOK            = base.ConditionOK
	ConditionStale         = base.ConditionStale
	ConditionNeverReceived = base.ConditionNeverReceived
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Runtime construction and options.
func New(cfg *Config, opts ...Option) (*Mux, error) {
	return base.New(cfg, opts...)
}

func WithBus(b Bus) Option {
	return base.WithBus(b)
}

func WithObservability(obs Observability) Option {
	return base.WithObservability(obs)
}

func WithDiagnosticsSink(s DiagnosticsSink) Option {
	return base.WithDiagnosticsSink(s)
}

func WithDiagnosticsPeriod(period time.Duration) Option {
	return base.WithDiagnosticsPeriod(period)
}

func WithClock(c Clock) Option {
	return base.WithClock(c)
}

// Message constructors.
func NewPlain(t Twist) Message {
	return base.NewPlain(t)
}

func NewStamped(st StampedTwist) Message {
	return base.NewStamped(st)
}

// Diagnostics sink adapters.
func NewCallbackSink(fn func(Status)) DiagnosticsSink {
	return base.NewCallbackSink(fn)
}

func NewChannelSink(buffer int) (DiagnosticsSink, <-chan Status, func()) {
	return base.NewChannelSink(buffer)
}

func MultiSink(sinks ...DiagnosticsSink) DiagnosticsSink {
	return base.MultiSink(sinks...)
}
