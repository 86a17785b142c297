package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

// Config holds the broker connection settings
type Config struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Username  string
	Password  string
	QoS       byte
	Retained  bool
	TLS       *tls.Config
}

// Sink implements domain.Sink by publishing one JSON message per reading
type Sink struct {
	cfg Config
}

// NewSink creates an MQTT sink
func NewSink(cfg Config) *Sink {
	return &Sink{cfg: cfg}
}

// Name returns the topic
func (s *Sink) Name() string {
	return s.cfg.Topic
}

// Connect dials the broker. Auto-reconnect is off: the logger owns reconnects.
func (s *Sink) Connect(ctx context.Context) (domain.Connection, error) {
	opts := paho.NewClientOptions().AddBroker(s.cfg.BrokerURL)
	opts.SetClientID(s.cfg.ClientID)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}
	if s.cfg.TLS != nil {
		opts.SetTLSConfig(s.cfg.TLS)
	}
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	timeout := connectTimeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	if timeout <= 0 {
		return nil, classify("connect", context.DeadlineExceeded)
	}
	opts.SetConnectTimeout(timeout)

	client := paho.NewClient(opts)
	token := client.Connect()
	if err := wait(ctx, token, timeout); err != nil {
		// Abort the attempt so a late CONNACK cannot leave an orphan session
		client.Disconnect(0)
		return nil, classify("connect", err)
	}

	return &connection{client: client, cfg: s.cfg}, nil
}

type connection struct {
	client paho.Client
	cfg    Config
}

// Payload is the JSON body published for each reading
type Payload struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Moisture    *int      `json:"moisture,omitempty"`
}

// Encode renders a reading as a message body
func Encode(r *domain.Reading) ([]byte, error) {
	return json.Marshal(Payload{
		Timestamp:   r.Timestamp,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Moisture:    r.Moisture,
	})
}

// Append publishes and waits for the broker to acknowledge
func (c *connection) Append(ctx context.Context, r *domain.Reading) error {
	if !c.client.IsConnectionOpen() {
		return fmt.Errorf("%w: broker connection lost", domain.ErrSinkUnavailable)
	}

	payload, err := Encode(r)
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	token := c.client.Publish(c.cfg.Topic, c.cfg.QoS, c.cfg.Retained, payload)
	if err := wait(ctx, token, publishTimeout); err != nil {
		return classify("publish", err)
	}
	return nil
}

func (c *connection) Close() error {
	c.client.Disconnect(disconnectQuiesce)
	return nil
}

var errTimeout = errors.New("timed out")

// wait blocks until the token completes, the timeout elapses or ctx is done
func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func classify(op string, err error) error {
	if errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword) || errors.Is(err, packets.ErrorRefusedNotAuthorised) {
		return fmt.Errorf("%w: %s: %v", domain.ErrSinkAuth, op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrSinkUnavailable, op, err)
}
