package amqp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docfeed/internal/metrics"
)

// Config holds queue connection parameters.
type Config struct {
	URL           string
	Queue         string
	TLSVerify     bool
	RetryAttempts int
	RetryBackoff  time.Duration
}

// connection and channel mirror the slice of the amqp091 client surface the
// supervisor touches, so tests can stand in for a broker.
type connection interface {
	channel() (channel, error)
	notifyClose(receiver chan *amqp091.Error) chan *amqp091.Error
	isClosed() bool
	close() error
}

type channel interface {
	queueDeclare(name string, durable bool) (amqp091.Queue, error)
	queueDeclarePassive(name string, durable bool) (amqp091.Queue, error)
	qos(prefetch int) error
	consume(queue, tag string) (<-chan amqp091.Delivery, error)
	cancel(tag string) error
	close() error
}

type dialFunc func(cfg Config) (connection, error)

// defaultDial opens one connection attempt. Managed brokers often present
// self-signed or mismatched certificates, so for amqps URLs certificate
// verification stays OFF unless tls_verify is set. This weakens transport
// security and is a deliberate default; enable verification per deployment.
func defaultDial(cfg Config) (connection, error) {
	var (
		conn *amqp091.Connection
		err  error
	)
	if strings.HasPrefix(cfg.URL, "amqps://") {
		tlsCfg := &tls.Config{InsecureSkipVerify: !cfg.TLSVerify} //nolint:gosec // opt-in via queue.tls_verify
		conn, err = amqp091.DialTLS(cfg.URL, tlsCfg)
	} else {
		conn, err = amqp091.Dial(cfg.URL)
	}
	if err != nil {
		return nil, err
	}
	return &realConnection{conn: conn}, nil
}

// Supervisor owns the broker connection lifecycle: bounded connect retries,
// queue attachment, prefetch, and clean shutdown. It does not reconnect
// after a mid-run disconnect; that surfaces via Closed and restarting is
// the process manager's job.
type Supervisor struct {
	cfg    Config
	logger *zap.Logger
	dial   dialFunc

	conn       connection
	ch         channel
	tag        string
	deliveries <-chan amqp091.Delivery
	closed     chan *amqp091.Error
}

// NewSupervisor creates a supervisor for the configured queue.
func NewSupervisor(cfg Config, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		logger: logger,
		dial:   defaultDial,
		tag:    "docfeed-" + uuid.NewString()[:8],
	}
}

// Start connects to the broker and begins consuming with prefetch 1.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}

	s.closed = s.conn.notifyClose(make(chan *amqp091.Error, 1))

	ch, err := s.attachQueue()
	if err != nil {
		s.Close()
		return err
	}
	s.ch = ch

	if err := s.ch.qos(1); err != nil {
		s.Close()
		return fmt.Errorf("set prefetch: %w", err)
	}

	deliveries, err := s.ch.consume(s.cfg.Queue, s.tag)
	if err != nil {
		s.Close()
		return fmt.Errorf("start consume: %w", err)
	}
	s.deliveries = deliveries

	s.logger.Info("Consuming from queue",
		zap.String("queue", s.cfg.Queue),
		zap.String("consumer_tag", s.tag),
	)
	return nil
}

// connect dials with up to RetryAttempts tries and linearly growing waits
// (RetryBackoff, 2*RetryBackoff, ...).
func (s *Supervisor) connect(ctx context.Context) error {
	attempts := s.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{step: s.cfg.RetryBackoff}, uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	op := func() error {
		attempt++
		conn, err := s.dial(s.cfg)
		if err != nil {
			metrics.QueueConnectAttemptsTotal.WithLabelValues("failure").Inc()
			return fmt.Errorf("dial %s: %w", redactURL(s.cfg.URL), err)
		}
		metrics.QueueConnectAttemptsTotal.WithLabelValues("success").Inc()
		s.conn = conn
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Queue connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("connect after %d attempts: %w", attempt, err)
	}

	s.logger.Info("Connected to queue broker",
		zap.String("broker", redactURL(s.cfg.URL)))
	return nil
}

// attachQueue declares the queue as durable. When the declare is rejected
// (typically an existing queue with different parameters), it attaches
// passively instead. A rejected declare closes its channel, so the passive
// attempt needs a fresh one.
func (s *Supervisor) attachQueue() (channel, error) {
	ch, err := s.conn.channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err = ch.queueDeclare(s.cfg.Queue, true); err == nil {
		return ch, nil
	}

	s.logger.Warn("Queue declare failed, attaching passively",
		zap.String("queue", s.cfg.Queue),
		zap.Error(err),
	)

	ch, err = s.conn.channel()
	if err != nil {
		return nil, fmt.Errorf("reopen channel: %w", err)
	}
	if _, err = ch.queueDeclarePassive(s.cfg.Queue, true); err != nil {
		return nil, fmt.Errorf("attach queue %q: %w", s.cfg.Queue, err)
	}
	return ch, nil
}

// Deliveries returns the consume stream. It closes after Stop or when the
// broker drops the consumer.
func (s *Supervisor) Deliveries() <-chan amqp091.Delivery { return s.deliveries }

// Closed signals an unexpected connection loss.
func (s *Supervisor) Closed() <-chan *amqp091.Error { return s.closed }

// Alive reports whether the broker connection is currently open.
func (s *Supervisor) Alive() bool {
	return s.conn != nil && !s.conn.isClosed()
}

// Stop cancels the consumer. A delivery already handed to the worker stays
// valid for ack until Close.
func (s *Supervisor) Stop() {
	if s.ch == nil {
		return
	}
	if err := s.ch.cancel(s.tag); err != nil {
		s.logger.Warn("Failed to cancel consumer", zap.Error(err))
	}
}

// Close tears down the channel and the connection.
func (s *Supervisor) Close() {
	if s.ch != nil {
		if err := s.ch.close(); err != nil {
			s.logger.Debug("Channel close", zap.Error(err))
		}
		s.ch = nil
	}
	if s.conn != nil {
		if err := s.conn.close(); err != nil {
			s.logger.Debug("Connection close", zap.Error(err))
		}
		s.conn = nil
	}
}

// linearBackOff grows the wait by one step per retry (step, 2*step, ...).
type linearBackOff struct {
	step    time.Duration
	retries int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.retries++
	return time.Duration(b.retries) * b.step
}

func (b *linearBackOff) Reset() { b.retries = 0 }

// redactURL strips credentials from broker URLs for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "broker"
	}
	return u.Redacted()
}
