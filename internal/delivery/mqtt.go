package delivery

import (
	"context"
	"net"
	"sync"
	"time"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/logger"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
)

const (
	defaultMQTTTopic      = "sensors/+/measurements"
	defaultMQTTKeepAlive  = 30
	defaultConnectTimeout = 10 * time.Second
)

// MQTTConfig configures the gateway source.
type MQTTConfig struct {
	// Broker is the host:port of the MQTT broker.
	Broker string
	// Topic is the subscription filter. Wildcards are allowed.
	Topic          string
	ClientID       string
	QoS            byte
	KeepAlive      uint16
	ConnectTimeout time.Duration
}

func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Topic:          defaultMQTTTopic,
		KeepAlive:      defaultMQTTKeepAlive,
		ConnectTimeout: defaultConnectTimeout,
	}
}

func (c MQTTConfig) Validate() error {
	errFactory := errors.New()

	switch {
	case c.Broker == "":
		return errFactory.WithMessage(ErrInvalidConfig, "mqtt broker address is required")
	case c.Topic == "":
		return errFactory.WithMessage(ErrInvalidConfig, "mqtt topic is required")
	case c.QoS > 2:
		return errFactory.WithMessage(ErrInvalidConfig, "mqtt qos must be 0, 1 or 2")
	}
	return nil
}

// MQTTSource receives records published by BLE gateways.
type MQTTSource struct {
	cfg MQTTConfig
	log logger.Logger

	mu     sync.Mutex
	client *paho.Client
	remove func()
	closed bool
}

func NewMQTTSource(cfg MQTTConfig, log logger.Logger) (*MQTTSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "sensorchart-" + uuid.NewString()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	return &MQTTSource{cfg: cfg, log: log.With("mqtt")}, nil
}

func (s *MQTTSource) Subscribe(ctx context.Context, handler Handler) error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errFactory.New(ErrClosed)
	}
	if s.client != nil {
		return errFactory.WithMessage(errors.ErrInvalidOperation, "mqtt source is already subscribed")
	}

	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(connectCtx, "tcp", s.cfg.Broker)
	if err != nil {
		return errFactory.Wrap(ErrConnectFailed, err)
	}

	client := paho.NewClient(paho.ClientConfig{
		ClientID: s.cfg.ClientID,
		Conn:     conn,
		OnClientError: func(err error) {
			s.log.Error().Err(err).Msg("MQTT client error")
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			s.log.Warn().Uint8("reason", d.ReasonCode).Msg("MQTT broker disconnected")
		},
	})
	remove := client.AddOnPublishReceived(func(pr paho.PublishReceived) (bool, error) {
		r, err := Decode(pr.Packet.Payload)
		if err != nil {
			s.log.Warn().Err(err).Str("topic", pr.Packet.Topic).Msg("Dropping malformed record")
			return true, nil
		}
		handler(r)
		return true, nil
	})

	ca, err := client.Connect(connectCtx, &paho.Connect{
		ClientID:   s.cfg.ClientID,
		KeepAlive:  s.cfg.KeepAlive,
		CleanStart: true,
	})
	if err != nil {
		remove()
		conn.Close()
		return errFactory.Wrap(ErrConnectFailed, err)
	}
	if ca.ReasonCode != 0 {
		remove()
		conn.Close()
		return errFactory.WithData(ErrConnectFailed, ca.ReasonCode)
	}

	if _, err := client.Subscribe(connectCtx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: s.cfg.Topic, QoS: s.cfg.QoS}},
	}); err != nil {
		remove()
		_ = client.Disconnect(&paho.Disconnect{})
		return errFactory.Wrap(ErrSubscribeFailed, err)
	}

	s.client = client
	s.remove = remove

	s.log.Info().
		Str("broker", s.cfg.Broker).
		Str("topic", s.cfg.Topic).
		Str("client_id", s.cfg.ClientID).
		Msg("Subscribed to MQTT records")

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return nil
}

func (s *MQTTSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.client == nil {
		return nil
	}

	s.remove()
	if err := s.client.Disconnect(&paho.Disconnect{}); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	s.log.Debug().Msg("MQTT source closed")
	return nil
}
