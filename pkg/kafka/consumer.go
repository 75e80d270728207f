package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig selects the topic and consumer group to read.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
	// MaxAttempts bounds handler calls per message. Zero means 3.
	MaxAttempts int
	// RetryBackoff is the wait before the second attempt; it grows linearly.
	// Zero means 100ms.
	RetryBackoff time.Duration
}

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic in a consumer group and hands each event to a
// Handler. Offsets are committed after handling, so delivery is at least
// once. Messages that keep failing are dead-lettered when a DLQ is set and
// then committed so they cannot block the partition.
type Consumer struct {
	reader      messageReader
	topic       string
	group       string
	handler     Handler
	dlq         *DLQProducer
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
	closeOnce   sync.Once
	closeErr    error
}

// NewConsumer creates a consumer. Nothing is fetched until Start.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return newConsumer(reader, cfg, handler, logger)
}

func newConsumer(reader messageReader, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	c := &Consumer{
		reader:      reader,
		topic:       cfg.Topic,
		group:       cfg.GroupID,
		handler:     handler,
		logger:      logger.With(slog.String("topic", cfg.Topic), slog.String("consumer_group", cfg.GroupID)),
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 3
	}
	if c.backoff <= 0 {
		c.backoff = 100 * time.Millisecond
	}
	return c
}

// WithDLQ routes exhausted messages to dlq and returns c.
func (c *Consumer) WithDLQ(dlq *DLQProducer) *Consumer {
	c.dlq = dlq
	return c
}

// Start consumes until ctx is canceled, then closes the reader. It returns
// nil on cancellation.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.logger.Info("consumer stopped")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return c.Close()
			}
			c.logger.Error("fetch message failed", slog.String("error", err.Error()))
			if !sleep(ctx, c.backoff) {
				return c.Close()
			}
			continue
		}

		if !c.process(ctx, msg) {
			return c.Close()
		}
	}
}

// process handles one message and commits it. It returns false when ctx
// ended before the message was settled; the offset is then left uncommitted
// so another member picks it up.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	consumerMessages.WithLabelValues(c.topic, c.group, outcomeReceived).Inc()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		consumerMessages.WithLabelValues(c.topic, c.group, outcomeMalformed).Inc()
		c.logger.Error("dropping malformed message",
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		c.deadLetter(ctx, msg, err)
		c.commit(ctx, msg)
		return true
	}

	msgCtx := extractTraceContext(ctx, &msg)
	start := time.Now()
	err = c.handle(msgCtx, event)
	consumerDuration.WithLabelValues(c.topic, c.group).Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		consumerMessages.WithLabelValues(c.topic, c.group, outcomeFailed).Inc()
		c.logger.Error("giving up on message",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int("attempts", c.maxAttempts),
			slog.String("error", err.Error()),
		)
		c.deadLetter(ctx, msg, err)
	} else {
		consumerMessages.WithLabelValues(c.topic, c.group, outcomeProcessed).Inc()
	}
	c.commit(ctx, msg)
	return true
}

// handle calls the handler up to maxAttempts times with a growing pause.
func (c *Consumer) handle(ctx context.Context, event *Event) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.handler(ctx, event); err == nil {
			return nil
		}
		c.logger.WarnContext(ctx, "handler failed",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if attempt < c.maxAttempts && !sleep(ctx, time.Duration(attempt)*c.backoff) {
			return ctx.Err()
		}
	}
	return err
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.group); err != nil {
		c.logger.Error("dead-letter publish failed",
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return
	}
	consumerMessages.WithLabelValues(c.topic, c.group, outcomeDLQ).Inc()
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("commit failed",
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the reader. Later calls return the first result.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.reader.Close()
	})
	return c.closeErr
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
