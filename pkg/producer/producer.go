// Package producer publishes ingestion messages to a docfeed work queue.
//
// Messages are published persistent so they survive a broker restart
// together with the durable queue. The worker acknowledges each message
// only after it finished processing it.
package producer

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the queue the docfeed worker consumes by default.
const DefaultQueue = "embedding_tasks"

// Message is the content wire form consumed by the docfeed worker.
// DocumentID, Source and Timestamp are optional provenance; the worker
// derives an id from the content when DocumentID is empty.
type Message struct {
	Content    string `json:"content"`
	DocumentID string `json:"document_id,omitempty"`
	Source     string `json:"source,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// Option configures the Producer.
type Option interface {
	apply(*config)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	queue     string
	tlsVerify bool
	logger    *slog.Logger
}

// WithQueue overrides the target queue name. Default: DefaultQueue.
func WithQueue(name string) Option {
	return optionFunc(func(c *config) { c.queue = name })
}

// WithTLSVerify enables certificate verification for amqps URLs.
// Verification is off by default, matching the worker's connection policy.
func WithTLSVerify() Option {
	return optionFunc(func(c *config) { c.tlsVerify = true })
}

// WithLogger enables structured logging for publish operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) { c.logger = l })
}

// Интерфейс канала для подмены в тестах.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string,
		mandatory, immediate bool, msg amqp091.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool,
		args amqp091.Table) (amqp091.Queue, error)
	Close() error
}

// Producer publishes ingestion messages to one queue.
type Producer struct {
	conn   *amqp091.Connection
	ch     channel
	queue  string
	logger *slog.Logger
}

// Connect dials the broker and declares the durable work queue.
func Connect(url string, opts ...Option) (*Producer, error) {
	cfg := &config{queue: DefaultQueue}
	for _, o := range opts {
		o.apply(cfg)
	}

	conn, err := dial(url, cfg.tlsVerify)
	if err != nil {
		return nil, fmt.Errorf("docfeed: dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("docfeed: open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("docfeed: declare queue %q: %w", cfg.queue, err)
	}

	return &Producer{conn: conn, ch: ch, queue: cfg.queue, logger: cfg.logger}, nil
}

func dial(url string, tlsVerify bool) (*amqp091.Connection, error) {
	if strings.HasPrefix(url, "amqps://") {
		tlsCfg := &tls.Config{InsecureSkipVerify: !tlsVerify} //nolint:gosec // matches the worker default, see WithTLSVerify
		return amqp091.DialTLS(url, tlsCfg)
	}
	return amqp091.Dial(url)
}

// Publish sends one content message. Empty content is rejected locally;
// the worker would only drop it on arrival.
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.Content) == "" {
		return errors.New("docfeed: content must not be empty")
	}
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return p.publish(ctx, msg)
}

// PublishFileRef sends a legacy file-reference message. The path must be
// readable by the worker process, not by the producer.
func (p *Producer) PublishFileRef(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("docfeed: file path must not be empty")
	}
	return p.publish(ctx, fileRef{FilePath: path})
}

type fileRef struct {
	FilePath string `json:"file_path"`
}

func (p *Producer) publish(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docfeed: encode message: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("docfeed: publish: %w", err)
	}

	if p.logger != nil {
		p.logger.Info("published message",
			slog.String("queue", p.queue),
			slog.Int("bytes", len(body)),
		)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Producer) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close() //nolint:wrapcheck // terminal cleanup
	}
	return nil
}
