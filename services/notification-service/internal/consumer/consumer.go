package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/apptbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/apptbook/libs/otel"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox de-duplicates deliveries by event id.
type Inbox interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Reader is the subset of *kafka.Reader the consumer drives.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  Reader
	logger  *slog.Logger
	inbox   Inbox
	handler Handler
	backoff func() backoff.BackOff
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string

	// RetryInitial and RetryMax bound the delay between attempts on a failing message.
	RetryInitial time.Duration
	RetryMax     time.Duration
}

func New(logger *slog.Logger, inbox Inbox, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	initial, maxDelay := cfg.RetryInitial, cfg.RetryMax
	if initial <= 0 {
		initial = time.Second
	}
	if maxDelay <= 0 {
		maxDelay = time.Minute
	}
	if maxDelay < initial {
		maxDelay = initial
	}
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   inbox,
		handler: handler,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = maxDelay
			return b
		},
	}
}

// Run fetches, de-duplicates and handles messages until ctx is cancelled. A failing
// message is retried in place and nothing after it is fetched until it succeeds, so
// the committed offset never passes an unhandled event.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			time.Sleep(time.Second)
			continue
		}

		if err := c.processWithRetry(ctx, msg); err != nil {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "offset", msg.Offset)
		}
	}
}

// processWithRetry only returns an error once ctx is done.
func (c *Consumer) processWithRetry(ctx context.Context, msg kafka.Message) error {
	attempt := func() (struct{}, error) {
		return struct{}{}, c.process(ctx, msg)
	}
	_, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(c.backoff()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("retrying message", "err", err, "topic", msg.Topic,
				"partition", msg.Partition, "offset", msg.Offset, "retry_in", next)
		}),
	)
	return err
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) (err error) {
	ctxSpan, span := otelx.StartSpan(kafkax.ExtractTraceContext(ctx, msg), "kafka", "kafka.consume",
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", msg.Topic),
	)
	defer func() { otelx.EndSpan(span, err) }()

	meta := kafkax.ExtractEventMeta(msg)
	fresh, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err)
		return err
	}
	if !fresh {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		if ferr := c.inbox.Forget(ctxSpan, meta.EventID); ferr != nil {
			c.logger.Error("inbox release failed", "err", ferr, "event_id", meta.EventID)
		}
		return err
	}
	return nil
}
