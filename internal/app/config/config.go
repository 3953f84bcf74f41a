package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
)

// TopicConfig describes one velocity input. Timeout is in seconds; zero means
// the input never expires.
type TopicConfig struct {
	Name     string  `yaml:"name"`
	Topic    string  `yaml:"topic"`
	Timeout  float64 `yaml:"timeout"`
	Priority int     `yaml:"priority"`
	Stamped  bool    `yaml:"stamped_topic"`
}

// TimeoutDuration converts the configured seconds to a time.Duration.
func (t TopicConfig) TimeoutDuration() time.Duration {
	return time.Duration(t.Timeout * float64(time.Second))
}

// Shape returns the declared subscription shape.
func (t TopicConfig) Shape() domain.Shape {
	if t.Stamped {
		return domain.ShapeStamped
	}
	return domain.ShapePlain
}

// LockConfig describes one lock input. Timeout is in seconds.
type LockConfig struct {
	Name     string  `yaml:"name"`
	Topic    string  `yaml:"topic"`
	Timeout  float64 `yaml:"timeout"`
	Priority int     `yaml:"priority"`
}

// TimeoutDuration converts the configured seconds to a time.Duration.
func (l LockConfig) TimeoutDuration() time.Duration {
	return time.Duration(l.Timeout * float64(time.Second))
}

type Config struct {
	OutputStamped     bool          `yaml:"output_stamped"`
	OutTopic          string        `yaml:"out_topic"`
	DiagnosticsPeriod float64       `yaml:"diagnostics_period"`
	Topics            []TopicConfig `yaml:"topics"`
	Locks             []LockConfig  `yaml:"locks"`
	Metrics           MetricsConfig `yaml:"metrics"`
	MQTT              MQTTConfig    `yaml:"mqtt"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// MQTTConfig selects the MQTT transport when Broker is set; otherwise the
// runtime uses the in-process bus.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

// OutShape returns the configured output shape.
func (c *Config) OutShape() domain.Shape {
	if c.OutputStamped {
		return domain.ShapeStamped
	}
	return domain.ShapePlain
}

// DiagnosticsPeriodDuration converts the configured seconds to a duration.
func (c *Config) DiagnosticsPeriodDuration() time.Duration {
	return time.Duration(c.DiagnosticsPeriod * float64(time.Second))
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutTopic == "" {
		c.OutTopic = "cmd_vel_out"
	}
	if c.DiagnosticsPeriod == 0 {
		c.DiagnosticsPeriod = 1
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.MQTT.Broker != "" && c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "twist-mux"
	}
	for i := range c.Topics {
		if c.Topics[i].Name == "" {
			c.Topics[i].Name = c.Topics[i].Topic
		}
	}
	for i := range c.Locks {
		if c.Locks[i].Name == "" {
			c.Locks[i].Name = c.Locks[i].Topic
		}
	}
}

// Validate checks the record against the recognized option ranges. A failed
// validation is fatal at startup.
func (c *Config) Validate() error {
	if len(c.Topics) == 0 {
		return fmt.Errorf("at least one velocity input must be configured under topics")
	}
	if c.OutTopic == "" {
		return fmt.Errorf("out_topic is required")
	}
	if c.DiagnosticsPeriod < 0 {
		return fmt.Errorf("diagnostics_period must be >= 0, got %g", c.DiagnosticsPeriod)
	}

	names := make(map[string]bool, len(c.Topics))
	for _, t := range c.Topics {
		if t.Topic == "" {
			return fmt.Errorf("topics[%s].topic is required", t.Name)
		}
		if names[t.Name] {
			return fmt.Errorf("duplicate velocity input name %q", t.Name)
		}
		names[t.Name] = true
		if err := validatePriority("topics", t.Name, t.Priority); err != nil {
			return err
		}
		if t.Timeout < 0 {
			return fmt.Errorf("topics[%s].timeout must be >= 0, got %g", t.Name, t.Timeout)
		}
	}

	lockNames := make(map[string]bool, len(c.Locks))
	for _, l := range c.Locks {
		if l.Topic == "" {
			return fmt.Errorf("locks[%s].topic is required", l.Name)
		}
		if lockNames[l.Name] {
			return fmt.Errorf("duplicate lock input name %q", l.Name)
		}
		lockNames[l.Name] = true
		if err := validatePriority("locks", l.Name, l.Priority); err != nil {
			return err
		}
		if l.Timeout < 0 {
			return fmt.Errorf("locks[%s].timeout must be >= 0, got %g", l.Name, l.Timeout)
		}
	}

	return nil
}

func validatePriority(section, name string, p int) error {
	if p < int(domain.PriorityMin) || p > int(domain.PriorityMax) {
		return fmt.Errorf("%s[%s].priority must be in [%d, %d], got %d",
			section, name, domain.PriorityMin, domain.PriorityMax, p)
	}
	return nil
}
