package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/maa-core/internal/infrastructure/config"
)

// Logger is the logging interface used for connection and handler problems.
// *logging.Logger and *slog.Logger satisfy it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler handles one inbound message. Handlers run on paho's
// goroutines; a returned error is logged and the message is still acknowledged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// hooks are the optional observers of the connection.
type hooks struct {
	logger       Logger
	onConnect    func()
	onDisconnect func(err error)
}

// Client wraps paho.mqtt.golang for the event mirror and command bridge.
//
// All methods are safe for concurrent use. Subscriptions made through
// Subscribe are replayed on every reconnect.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	connected atomic.Bool
	// sessions counts successful connects, the first one included.
	sessions atomic.Uint64

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	hookMu sync.RWMutex
	hooks  hooks
}

// Connect dials the broker and waits for the first session.
//
// The broker holds a retained "offline" will on maa/system/status; every
// session publishes "online" there.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{cfg: cfg, subscriptions: make(map[string]subscription)}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionDown(err) })

	c.client = pahomqtt.NewClient(opts)
	if err := await(c.client.Connect(), connectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// sessionUp runs asynchronously; report connected as soon as Connect returns.
	c.connected.Store(true)
	return c, nil
}

// await waits for token and wraps a timeout or failure in op.
func await(token pahomqtt.Token, timeout time.Duration, op error) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: timeout after %v", op, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", op, err)
	}
	return nil
}

func (c *Client) sessionUp() {
	c.connected.Store(true)
	c.sessions.Add(1)

	c.subMu.RLock()
	for topic, sub := range c.subscriptions {
		c.client.Subscribe(topic, sub.qos, c.deliver(sub.handler))
	}
	c.subMu.RUnlock()

	c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
		buildStatusPayload(c.cfg.Broker.ClientID, "online", ""))

	if fn := c.observers().onConnect; fn != nil {
		fn()
	}
}

func (c *Client) sessionDown(err error) {
	c.connected.Store(false)

	h := c.observers()
	if h.logger != nil {
		h.logger.Warn("MQTT connection lost", "error", err)
	}
	if h.onDisconnect != nil {
		h.onDisconnect(err)
	}
}

func (c *Client) observers() hooks {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	return c.hooks
}

// Close publishes a graceful offline status and disconnects.
// Closing a nil or never-connected client is not an error.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	if c.IsConnected() {
		c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
			buildStatusPayload(c.cfg.Broker.ClientID, "offline", "graceful_shutdown")).
			WaitTimeout(publishTimeout)
	}
	c.client.Disconnect(disconnectQuiesceMS)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports whether the connection is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// Sessions returns how many times the client has connected.
func (c *Client) Sessions() uint64 {
	return c.sessions.Load()
}

// SetOnConnect sets a callback invoked on every (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.hookMu.Lock()
	c.hooks.onConnect = fn
	c.hookMu.Unlock()
}

// SetOnDisconnect sets a callback invoked when the connection is lost.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.hookMu.Lock()
	c.hooks.onDisconnect = fn
	c.hookMu.Unlock()
}

// SetLogger sets the logger for connection loss and handler failures.
func (c *Client) SetLogger(logger Logger) {
	c.hookMu.Lock()
	c.hooks.logger = logger
	c.hookMu.Unlock()
}

// deliver adapts handler to paho, logging returned errors and recovered panics.
func (c *Client) deliver(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		logger := c.observers().logger
		defer func() {
			if r := recover(); r != nil && logger != nil {
				logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil && logger != nil {
			logger.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}
