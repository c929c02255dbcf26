// Package mqtt publishes device snapshots to an MQTT broker and accepts
// attribute writes on command topics.
//
// Topics, with the default prefix:
//
//	gt125/<device id>/state               retained JSON snapshot
//	gt125/<device id>/set/<attribute>     plain text value to write
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sinopehome/gt125/internal/logging"
	"github.com/sinopehome/gt125/internal/protocol"
	"github.com/sinopehome/gt125/internal/sinope"
)

// DefaultTimeout bounds connect, publish and subscribe acknowledgements.
const DefaultTimeout = 10 * time.Second

// CommandHandler applies a write received on a command topic.
type CommandHandler func(ctx context.Context, device string, attr protocol.Attribute, value string) error

// Options configures a Publisher.
type Options struct {
	Broker      string
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string
	Timeout     time.Duration
}

// client is the subset of paho.Client the publisher needs.
type client interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Publisher implements poller.Sink over MQTT.
type Publisher struct {
	client   client
	prefix   string
	timeout  time.Duration
	commands CommandHandler
}

// New creates a publisher with an auto-reconnecting paho client. When
// commands is set, the command topics are subscribed on every connect.
func New(opts Options, commands CommandHandler) *Publisher {
	p := &Publisher{prefix: strings.TrimSuffix(opts.TopicPrefix, "/"), timeout: opts.Timeout, commands: commands}
	if p.timeout == 0 {
		p.timeout = DefaultTimeout
	}

	co := paho.NewClientOptions()
	co.AddBroker(opts.Broker)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	co.SetClientID(opts.ClientID)
	co.SetAutoReconnect(true)
	co.SetConnectTimeout(p.timeout)
	co.SetOnConnectHandler(func(paho.Client) {
		logging.Info("Connected to MQTT broker", zap.String("broker", opts.Broker))
		p.subscribe()
	})
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logging.Warn("MQTT connection lost", zap.Error(err))
	})
	p.client = paho.NewClient(co)
	return p
}

func newWithClient(c client, prefix string, commands CommandHandler) *Publisher {
	return &Publisher{client: c, prefix: prefix, timeout: DefaultTimeout, commands: commands}
}

// Connect opens the broker connection. Publishing before a successful
// connect is dropped by the client.
func (p *Publisher) Connect(ctx context.Context) error {
	return p.wait(ctx, p.client.Connect(), "connect")
}

// Close disconnects, allowing in-flight messages a moment to complete.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

// StateTopic returns the topic snapshots of device are published on.
func (p *Publisher) StateTopic(device string) string {
	return fmt.Sprintf("%s/%s/state", p.prefix, device)
}

// Publish sends snap as a retained JSON message. Errors are logged.
func (p *Publisher) Publish(snap sinope.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		logging.Error("Failed to marshal snapshot", zap.String("device", snap.Device), zap.Error(err))
		return
	}
	topic := p.StateTopic(snap.Device)
	token := p.client.Publish(topic, 0, true, payload)
	if err := p.wait(context.Background(), token, "publish"); err != nil {
		logging.Warn("MQTT publish failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	logging.Debug("MQTT published", zap.String("topic", topic), zap.Int("bytes", len(payload)))
}

func (p *Publisher) subscribe() {
	if p.commands == nil {
		return
	}
	topic := p.prefix + "/+/set/+"
	if err := p.wait(context.Background(), p.client.Subscribe(topic, 0, p.handleCommand), "subscribe"); err != nil {
		logging.Warn("MQTT subscribe failed", zap.String("topic", topic), zap.Error(err))
	}
}

func (p *Publisher) handleCommand(_ paho.Client, msg paho.Message) {
	device, attr, err := p.parseCommandTopic(msg.Topic())
	if err != nil {
		logging.Warn("Ignoring MQTT command", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}
	value := string(msg.Payload())
	logging.Info("MQTT command received",
		zap.String("device", device), zap.String("attribute", string(attr)), zap.String("value", value))

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.commands(ctx, device, attr, value); err != nil {
		logging.Warn("MQTT command failed",
			zap.String("device", device), zap.String("attribute", string(attr)), zap.Error(err))
	}
}

func (p *Publisher) parseCommandTopic(topic string) (string, protocol.Attribute, error) {
	rest, ok := strings.CutPrefix(topic, p.prefix+"/")
	if !ok {
		return "", "", errors.New("unexpected prefix")
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "set" || parts[0] == "" || parts[2] == "" {
		return "", "", errors.New("want <device>/set/<attribute>")
	}
	return parts[0], protocol.Attribute(parts[2]), nil
}

func (p *Publisher) wait(ctx context.Context, token paho.Token, op string) error {
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt %s: %w", op, ctx.Err())
	case <-time.After(p.timeout):
		return fmt.Errorf("mqtt %s: timed out after %s", op, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt %s: %w", op, err)
	}
	return nil
}
