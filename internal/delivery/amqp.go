package delivery

import (
	"context"
	"sync"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/logger"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultAMQPExchange   = "sensorchart.records"
	defaultAMQPRoutingKey = "records.#"
	defaultAMQPPrefetch   = 16
)

// AMQPConfig configures the cloud sync source.
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
	// Queue is the queue to consume. Empty declares an exclusive,
	// auto-deleted queue for this process.
	Queue    string
	Prefetch int
}

func DefaultAMQPConfig() AMQPConfig {
	return AMQPConfig{
		Exchange:   defaultAMQPExchange,
		RoutingKey: defaultAMQPRoutingKey,
		Prefetch:   defaultAMQPPrefetch,
	}
}

func (c AMQPConfig) Validate() error {
	errFactory := errors.New()

	switch {
	case c.URL == "":
		return errFactory.WithMessage(ErrInvalidConfig, "amqp url is required")
	case c.Exchange == "":
		return errFactory.WithMessage(ErrInvalidConfig, "amqp exchange is required")
	case c.Prefetch < 0:
		return errFactory.WithMessage(ErrInvalidConfig, "amqp prefetch must not be negative")
	}
	return nil
}

// AMQPSource receives records pushed by the cloud sync.
type AMQPSource struct {
	cfg AMQPConfig
	log logger.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
}

func NewAMQPSource(cfg AMQPConfig, log logger.Logger) (*AMQPSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AMQPSource{cfg: cfg, log: log.With("amqp")}, nil
}

func (s *AMQPSource) Subscribe(ctx context.Context, handler Handler) error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errFactory.New(ErrClosed)
	}
	if s.conn != nil {
		return errFactory.WithMessage(errors.ErrInvalidOperation, "amqp source is already subscribed")
	}

	conn, err := amqp.Dial(s.cfg.URL)
	if err != nil {
		return errFactory.Wrap(ErrConnectFailed, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errFactory.Wrap(ErrConnectFailed, err)
	}

	deliveries, err := s.setup(ch)
	if err != nil {
		ch.Close()
		conn.Close()
		return errFactory.Wrap(ErrSubscribeFailed, err)
	}

	s.conn, s.channel = conn, ch

	s.log.Info().
		Str("exchange", s.cfg.Exchange).
		Str("routing_key", s.cfg.RoutingKey).
		Msg("Consuming AMQP records")

	go func() {
		consume(ctx, deliveries, handler, s.log)
		_ = s.Close()
	}()

	return nil
}

func (s *AMQPSource) setup(ch *amqp.Channel) (<-chan amqp.Delivery, error) {
	if err := ch.ExchangeDeclare(
		s.cfg.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, err
	}

	exclusive := s.cfg.Queue == ""
	q, err := ch.QueueDeclare(
		s.cfg.Queue,
		!exclusive,
		exclusive,
		exclusive,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	if err := ch.QueueBind(
		q.Name,
		s.cfg.RoutingKey,
		s.cfg.Exchange,
		false,
		nil,
	); err != nil {
		return nil, err
	}

	if err := ch.Qos(s.cfg.Prefetch, 0, false); err != nil {
		return nil, err
	}

	return ch.Consume(
		q.Name,
		"sensorchart-"+uuid.NewString(),
		false,
		exclusive,
		false,
		false,
		nil,
	)
}

// consume hands decoded deliveries to handler until ctx is done or the
// delivery channel closes. Malformed payloads are rejected without requeue.
func consume(ctx context.Context, deliveries <-chan amqp.Delivery, handler Handler, log logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				log.Debug().Msg("AMQP delivery channel closed")
				return
			}

			r, err := Decode(msg.Body)
			if err != nil {
				log.Warn().Err(err).Str("routing_key", msg.RoutingKey).Msg("Dropping malformed record")
				if err := msg.Nack(false, false); err != nil {
					log.Error().Err(err).Msg("Failed to nack delivery")
				}
				continue
			}

			handler(r)
			if err := msg.Ack(false); err != nil {
				log.Error().Err(err).Msg("Failed to ack delivery")
			}
		}
	}
}

func (s *AMQPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn == nil {
		return nil
	}

	var errs []error
	if err := s.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.New().Wrap(errors.ErrShutdownFailed, errors.Join(errs...))
	}
	s.log.Debug().Msg("AMQP source closed")
	return nil
}
