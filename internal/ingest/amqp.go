package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"theftalert/internal/logging"
)

// Acknowledger settles one delivery. amqp.Delivery satisfies it.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// ConsumerOptions configures the AMQP consumer.
type ConsumerOptions struct {
	URL      string
	Queue    string
	Prefetch int
	// EventTimeout caps processing of one delivery.
	EventTimeout time.Duration
}

// Consumer reads report-created events from an AMQP queue.
type Consumer struct {
	opts      ConsumerOptions
	processor Processor
	logger    *slog.Logger
}

const (
	reconnectInitialBackoff = time.Second
	reconnectMaxBackoff     = 30 * time.Second
)

// NewConsumer builds a consumer for processor.
func NewConsumer(opts ConsumerOptions, processor Processor, logger *slog.Logger) *Consumer {
	if opts.Prefetch <= 0 {
		opts.Prefetch = 1
	}
	return &Consumer{
		opts:      opts,
		processor: processor,
		logger:    logging.NewComponentLogger(logger, "ingest.amqp"),
	}
}

// Run consumes until ctx ends, reconnecting with backoff when the broker
// connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := reconnectInitialBackoff
	for {
		err := c.consumeOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		logging.WarnWithContext(c.logger, "amqp consumer disconnected", "amqp_disconnected",
			logging.Error(err),
			logging.Duration("retry_in", backoff),
			logging.String(logging.FieldErrorHint, "check broker availability and ingest.amqp_url"),
			logging.String(logging.FieldImpact, "events queue up until the consumer reconnects"),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if next := backoff * 2; next <= reconnectMaxBackoff {
			backoff = next
		}
	}
}

func (c *Consumer) consumeOnce(ctx context.Context) error {
	conn, err := amqp.Dial(c.opts.URL)
	if err != nil {
		return fmt.Errorf("amqp connect: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.opts.Prefetch, 0, false); err != nil {
		return fmt.Errorf("amqp qos: %w", err)
	}
	if _, err := ch.QueueDeclare(c.opts.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.opts.Queue, err)
	}
	deliveries, err := ch.Consume(c.opts.Queue, "theftalert", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.opts.Queue, err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	c.logger.Info("amqp consumer started", logging.String("queue", c.opts.Queue), logging.Int("prefetch", c.opts.Prefetch))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("amqp connection closed")
			}
			return amqpErr
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			c.Handle(ctx, d.Body, d)
		}
	}
}

// Handle processes one message body and settles it: malformed bodies are
// dropped, retryable failures are requeued, everything else is acked.
func (c *Consumer) Handle(ctx context.Context, body []byte, ack Acknowledger) {
	report, err := DecodeReport(bytes.NewReader(body))
	if err != nil {
		logging.WarnWithContext(c.logger, "dropping malformed event", "event_malformed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "event discarded"),
		)
		c.settle(ack.Nack(false, false))
		return
	}

	eventCtx := ctx
	if c.opts.EventTimeout > 0 {
		var cancel context.CancelFunc
		eventCtx, cancel = context.WithTimeout(ctx, c.opts.EventTimeout)
		defer cancel()
	}

	if _, err := c.processor.OnReportCreated(eventCtx, report); err != nil {
		c.logger.Error("event processing failed; requeueing",
			logging.String(logging.FieldReportID, report.ID),
			logging.Error(err),
		)
		c.settle(ack.Nack(false, true))
		return
	}
	c.settle(ack.Ack(false))
}

func (c *Consumer) settle(err error) {
	if err != nil {
		c.logger.Warn("amqp settle failed", logging.Error(err))
	}
}
