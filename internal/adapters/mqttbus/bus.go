// Package mqttbus implements the bus port over an MQTT broker, with msgpack
// payloads. Each configured topic maps to one MQTT subscription; arrival
// instants are taken from the local clock when the broker delivers.
package mqttbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
	"github.com/FIBO-Engineer/twist-mux/internal/ports"
)

var ErrNotConnected = errors.New("mqttbus: not connected")

// Config captures the broker connection details.
type Config struct {
	Broker         string
	ClientID       string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "twist-mux-" + uuid.NewString()[:8]
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 2 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Broker == "" {
		return errors.New("mqttbus: broker is required")
	}
	return nil
}

type subscription struct {
	id    string
	topic string
	bus   *Bus
}

func (s *subscription) ID() string    { return s.id }
func (s *subscription) Topic() string { return s.topic }
func (s *subscription) Cancel() error { return s.bus.unsubscribe(s.topic) }

// Bus is an MQTT-backed ports.Bus.
type Bus struct {
	cfg    Config
	client mqtt.Client

	mu        sync.Mutex
	onDecode  func(error)
	connected bool
}

// New prepares an MQTT bus; Connect must be called before use.
func New(cfg Config) (*Bus, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Bus{cfg: cfg}, nil
}

// SetDecodeErrorHandler installs the hook invoked when an inbound payload
// cannot be decoded or fails the declared-shape check. Without a handler,
// bad payloads are dropped silently.
func (b *Bus) SetDecodeErrorHandler(fn func(error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDecode = fn
}

// Connect dials the broker and blocks until the session is up or the
// configured timeout elapses.
func (b *Bus) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(b.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOrderMatters(true)

	opts.OnConnect = func(c mqtt.Client) {
		b.mu.Lock()
		b.connected = true
		b.mu.Unlock()
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		b.mu.Lock()
		b.connected = false
		b.mu.Unlock()
	}

	b.client = mqtt.NewClient(opts)

	token := b.client.Connect()
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		return fmt.Errorf("mqttbus: connect timeout after %s", b.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttbus: connect: %w", err)
	}

	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	return nil
}

func (b *Bus) Now() time.Time { return time.Now() }

// SubscribeTwist subscribes to topic and decodes payloads into the declared
// shape. Decode failures go to the decode error handler.
func (b *Bus) SubscribeTwist(topic string, shape domain.Shape, fn ports.TwistCallback) (ports.Subscription, error) {
	if b.client == nil {
		return nil, ErrNotConnected
	}
	handler := func(_ mqtt.Client, m mqtt.Message) {
		at := time.Now()
		msg, err := DecodeTwist(m.Payload(), shape)
		if err != nil {
			b.reportDecodeError(fmt.Errorf("topic %q: %w", topic, err))
			return
		}
		fn(msg, at)
	}
	token := b.client.Subscribe(topic, b.cfg.QoS, handler)
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqttbus: subscribe %q timeout", topic)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqttbus: subscribe %q: %w", topic, err)
	}
	return &subscription{id: uuid.NewString(), topic: topic, bus: b}, nil
}

// SubscribeLock subscribes to topic and decodes lock signals.
func (b *Bus) SubscribeLock(topic string, fn ports.LockCallback) (ports.Subscription, error) {
	if b.client == nil {
		return nil, ErrNotConnected
	}
	handler := func(_ mqtt.Client, m mqtt.Message) {
		at := time.Now()
		sig, err := DecodeLock(m.Payload())
		if err != nil {
			b.reportDecodeError(fmt.Errorf("topic %q: %w", topic, err))
			return
		}
		fn(sig, at)
	}
	token := b.client.Subscribe(topic, b.cfg.QoS, handler)
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqttbus: subscribe %q timeout", topic)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqttbus: subscribe %q: %w", topic, err)
	}
	return &subscription{id: uuid.NewString(), topic: topic, bus: b}, nil
}

// PublishTwist encodes and publishes a velocity message.
func (b *Bus) PublishTwist(topic string, msg domain.Message) error {
	if !b.isConnected() {
		return ErrNotConnected
	}
	payload, err := EncodeTwist(msg)
	if err != nil {
		return err
	}
	return b.publish(topic, payload)
}

// PublishLock encodes and publishes a lock signal.
func (b *Bus) PublishLock(topic string, sig domain.LockSignal) error {
	if !b.isConnected() {
		return ErrNotConnected
	}
	payload, err := EncodeLock(sig)
	if err != nil {
		return err
	}
	return b.publish(topic, payload)
}

// SchedulePeriodic runs fn on a ticker goroutine until stop is called.
func (b *Bus) SchedulePeriodic(period time.Duration, fn func(now time.Time)) (stop func()) {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn(time.Now())
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// Close disconnects from the broker with a short grace period.
func (b *Bus) Close() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
}

func (b *Bus) publish(topic string, payload []byte) error {
	token := b.client.Publish(topic, b.cfg.QoS, false, payload)
	if !token.WaitTimeout(b.cfg.PublishTimeout) {
		return fmt.Errorf("mqttbus: publish %q timeout after %s", topic, b.cfg.PublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttbus: publish %q: %w", topic, err)
	}
	return nil
}

func (b *Bus) unsubscribe(topic string) error {
	if b.client == nil {
		return nil
	}
	token := b.client.Unsubscribe(topic)
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		return fmt.Errorf("mqttbus: unsubscribe %q timeout", topic)
	}
	return token.Error()
}

func (b *Bus) isConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *Bus) reportDecodeError(err error) {
	b.mu.Lock()
	fn := b.onDecode
	b.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

var _ ports.Bus = (*Bus)(nil)
