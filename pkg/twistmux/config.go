package twistmux

import (
	"github.com/FIBO-Engineer/twist-mux/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// TopicConfig describes one velocity input.
	TopicConfig = config.TopicConfig
	// LockConfig describes one lock input.
	LockConfig = config.LockConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// MQTTConfig selects and configures the MQTT transport.
	MQTTConfig = config.MQTTConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
