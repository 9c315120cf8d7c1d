package consumer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docfeed/internal/chunk"
	"github.com/kailas-cloud/docfeed/internal/domain"
	"github.com/kailas-cloud/docfeed/internal/metrics"
)

// Consumer drains queue deliveries one at a time and feeds them through the
// ingest pipeline. With prefetch 1 on the channel, one unacked message is in
// flight at most.
type Consumer struct {
	pipe   Pipeline
	stream chunk.Profile
	file   chunk.Profile
	logger *zap.Logger
}

// New creates a consumer with the default chunking profiles: streaming for
// content messages, batch for legacy file references.
func New(pipe Pipeline, logger *zap.Logger) *Consumer {
	return &Consumer{
		pipe:   pipe,
		stream: chunk.Streaming,
		file:   chunk.Batch,
		logger: logger,
	}
}

// WithProfiles overrides the chunking profiles.
func (c *Consumer) WithProfiles(stream, file chunk.Profile) *Consumer {
	c.stream = stream
	c.file = file
	return c
}

// Run processes deliveries until the channel closes or ctx is cancelled.
// Cancellation is observed between messages; the in-flight message always
// finishes and settles first.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp091.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle processes one delivery and settles it. Only a structural failure
// (collection setup, id offset, content upsert) requeues; everything else
// acks so a bad message cannot loop forever.
func (c *Consumer) Handle(ctx context.Context, d amqp091.Delivery) {
	msg := domain.ParseMessage(d.Body)

	switch msg.Kind {
	case domain.MessageRejected:
		c.logger.Warn("Dropping malformed message", zap.Error(msg.Err))
		c.settle(d, "rejected", false)

	case domain.MessageContent:
		err := c.handleContent(ctx, msg.Record)
		if err != nil {
			c.logger.Error("Content message failed, requeueing",
				zap.String("document_id", msg.Record.DocumentID),
				zap.Error(err),
			)
		}
		c.settle(d, "content", err != nil)

	case domain.MessageFileRef:
		err := c.handleFileRef(ctx, msg.FilePath)
		if err != nil {
			c.logger.Error("File message failed, requeueing",
				zap.String("path", msg.FilePath),
				zap.Error(err),
			)
		}
		c.settle(d, "file", err != nil)
	}
}

// handleContent runs the streaming pipeline over one content record. A nil
// return acks the message even when zero points were written; a message is
// never requeued just because the embedding provider failed on its chunks.
func (c *Consumer) handleContent(ctx context.Context, rec domain.ContentRecord) error {
	if strings.TrimSpace(rec.Content) == "" {
		c.logger.Warn("Content message with empty text",
			zap.String("document_id", rec.DocumentID))
		return nil
	}

	if err := c.pipe.EnsureCollection(ctx); err != nil {
		return err
	}

	baseID, err := c.pipe.PointOffset(ctx)
	if err != nil {
		return err
	}

	n, err := c.pipe.Process(ctx, rec, c.stream, baseID)
	if err != nil {
		return err
	}

	if n == 0 {
		c.logger.Warn("No chunks survived embedding",
			zap.String("document_id", rec.DocumentID))
		return nil
	}

	c.logger.Info("Content message ingested",
		zap.String("document_id", rec.DocumentID),
		zap.String("source", rec.Source),
		zap.Int("points", n),
	)
	return nil
}

// handleFileRef loads one file the way the batch loader does. An unreadable
// file or a failed upsert only logs: a file problem is not fixed by
// redelivery. Collection setup failures stay structural.
func (c *Consumer) handleFileRef(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Error("Failed to read referenced file",
			zap.String("path", path), zap.Error(err))
		return nil
	}

	if err := c.pipe.EnsureCollection(ctx); err != nil {
		return err
	}

	baseID, err := c.pipe.PointOffset(ctx)
	if err != nil {
		return err
	}

	rec := domain.FileRecord(string(data), filepath.Base(path), path)
	n, err := c.pipe.Process(ctx, rec, c.file, baseID)
	if err != nil {
		c.logger.Error("Failed to ingest referenced file",
			zap.String("path", path), zap.Error(err))
		return nil
	}

	c.logger.Info("File message ingested",
		zap.String("path", path), zap.Int("points", n))
	return nil
}

func (c *Consumer) settle(d amqp091.Delivery, kind string, requeue bool) {
	if requeue {
		metrics.MessagesTotal.WithLabelValues(kind, "requeued").Inc()
		if err := d.Nack(false, true); err != nil {
			c.logger.Error("Failed to nack message", zap.Error(err))
		}
		return
	}

	metrics.MessagesTotal.WithLabelValues(kind, "acked").Inc()
	if err := d.Ack(false); err != nil {
		c.logger.Error("Failed to ack message", zap.Error(err))
	}
}
