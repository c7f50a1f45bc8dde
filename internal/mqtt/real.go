package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Client publishes store writes to an MQTT broker. It never reconnects on its
// own; the link guardian decides when Connect is called again.
type Client struct {
	client    paho.Client
	opts      Options
	log       *slog.Logger
	onCommand func(Command)
}

// NewClient creates an unconnected client. If onCommand is non-nil, sensor
// commands are subscribed to on every connect and delivered to it from the
// paho callback goroutine.
func NewClient(opts Options, onCommand func(Command), log *slog.Logger) *Client {
	opts.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	c := &Client{opts: opts, log: log, onCommand: onCommand}

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(opts.ConnectTimeout).
		SetWill(Topic(opts.TopicPrefix, StatusPath), string(opts.WillPayload), 1, true).
		SetOnConnectHandler(c.subscribe).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.log.Warn("mqtt: connection lost", "err", err)
		})

	c.client = paho.NewClient(po)
	return c
}

// Connect opens a session, blocking at most the connect timeout.
func (c *Client) Connect() error {
	if c.client.IsConnectionOpen() {
		return nil
	}
	token := c.client.Connect()
	if !token.WaitTimeout(c.opts.ConnectTimeout) {
		return fmt.Errorf("connect to %s: timeout after %v", c.opts.Broker, c.opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", c.opts.Broker, err)
	}
	return nil
}

// IsConnected reports whether the session is open.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// SetValue writes value as retained JSON at path.
func (c *Client) SetValue(path string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return c.publish(path, true, payload)
}

// PushRecord publishes a one-shot JSON record at path.
func (c *Client) PushRecord(path string, payload []byte) error {
	return c.publish(path, false, payload)
}

func (c *Client) publish(path string, retained bool, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	topic := Topic(c.opts.TopicPrefix, path)
	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(c.opts.PublishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (c *Client) subscribe(pc paho.Client) {
	if c.onCommand == nil {
		return
	}
	filter := CommandFilter(c.opts.TopicPrefix)
	token := pc.Subscribe(filter, 1, c.handleMessage)
	if !token.WaitTimeout(c.opts.ConnectTimeout) {
		c.log.Warn("mqtt: subscribe timeout", "filter", filter)
		return
	}
	if err := token.Error(); err != nil {
		c.log.Warn("mqtt: subscribe failed", "filter", filter, "err", err)
		return
	}
	c.log.Info("mqtt: subscribed", "filter", filter)
}

func (c *Client) handleMessage(_ paho.Client, m paho.Message) {
	cmd, err := ParseCommand(c.opts.TopicPrefix, m.Topic(), m.Payload())
	if err != nil {
		c.log.Warn("mqtt: bad command", "topic", m.Topic(), "err", err)
		return
	}
	c.onCommand(cmd)
}

// Close disconnects from the broker. The will is not published.
func (c *Client) Close() error {
	if c.client.IsConnectionOpen() {
		c.client.Disconnect(250)
	}
	return nil
}
