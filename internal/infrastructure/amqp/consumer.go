// Package amqp consumes business events from RabbitMQ and hands them to the
// event-triggered dispatch driver.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/campus-push/internal/application/trigger"
)

const (
	defaultPrefetch  = 10
	defaultTimeout   = 30 * time.Second
	reconnectBackoff = 5 * time.Second
)

// EventHandler is implemented by trigger.Handler.
type EventHandler interface {
	Handle(ctx context.Context, env trigger.Envelope) error
}

type ConsumerConfig struct {
	URL             string
	Queue           string
	DeadLetterQueue string
	Prefetch        int
	// HandleTimeout bounds one event, dispatch included.
	HandleTimeout time.Duration
}

type Consumer struct {
	cfg     ConsumerConfig
	conn    *amqp.Connection
	ch      *amqp.Channel
	handler EventHandler
	log     logrus.FieldLogger
}

// NewConsumer dials the broker and declares the queue pair. Failed events are
// dead-lettered once and never redelivered.
func NewConsumer(cfg ConsumerConfig, handler EventHandler, log logrus.FieldLogger) (*Consumer, error) {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = defaultPrefetch
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = defaultTimeout
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	c := &Consumer{cfg: cfg, conn: conn, handler: handler, log: log.WithField("queue", cfg.Queue)}
	if err := c.openChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Consumer) openChannel() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	if _, err := ch.QueueDeclare(c.cfg.DeadLetterQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": c.cfg.DeadLetterQueue,
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if c.ch != nil {
		c.ch.Close()
	}
	c.ch = ch
	return nil
}

// Run consumes until ctx is done, reopening the channel after failures.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.log.WithError(err).Error("consumer loop failed, reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectBackoff):
		}
		if c.conn.IsClosed() {
			return errors.New("rabbitmq connection closed")
		}
		if err := c.openChannel(); err != nil {
			c.log.WithError(err).Error("failed to recreate channel")
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	msgs, err := c.ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.log.WithField("prefetch", c.cfg.Prefetch).Info("event consumer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg amqp.Delivery) {
	hctx, cancel := context.WithTimeout(ctx, c.cfg.HandleTimeout)
	defer cancel()

	var env trigger.Envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		c.log.WithError(err).Error("malformed event, dead-lettering")
		_ = msg.Nack(false, false)
		return
	}
	log := c.log.WithField("event", env.Type)
	if err := c.handler.Handle(hctx, env); err != nil {
		log.WithError(err).Error("event handling failed, dead-lettering")
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
	log.Debug("event processed")
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			c.log.WithError(err).Warn("failed to close RabbitMQ channel")
		}
	}
	return c.conn.Close()
}
