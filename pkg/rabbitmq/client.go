package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nearbuy/hyperlocal-backend/pkg/config"
	"github.com/nearbuy/hyperlocal-backend/pkg/logger"
)

const exchangeKind = "topic"

// Client owns one broker connection and a confirm-mode channel bound to the
// marketplace topic exchange.
type Client struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// Message is one publish request.
type Message struct {
	RoutingKey string
	MessageID  string
	Timestamp  time.Time
	Headers    map[string]string
	Body       []byte
}

// Dial connects, declares the durable topic exchange and enables publisher confirms.
func Dial(ctx context.Context, cfg config.BrokerConfig, logg *logger.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if cfg.Exchange == "" {
		return nil, errors.New("rabbitmq exchange is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	if err := channel.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "exchange", cfg.Exchange), "rabbitmq connection established")
	}
	return &Client{conn: conn, channel: channel, exchange: cfg.Exchange}, nil
}

// Publish sends msg as a persistent JSON message and waits for the broker ack.
func (c *Client) Publish(ctx context.Context, msg Message) error {
	if c == nil || c.channel == nil {
		return errors.New("rabbitmq client not initialized")
	}
	if msg.RoutingKey == "" {
		return errors.New("routing key is required")
	}

	c.mu.Lock()
	confirm, err := c.channel.PublishWithDeferredConfirmWithContext(ctx, c.exchange, msg.RoutingKey, false, false, buildPublishing(msg))
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.RoutingKey, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm %s: %w", msg.RoutingKey, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked %s", msg.RoutingKey)
	}
	return nil
}

func buildPublishing(msg Message) amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.MessageID,
		Timestamp:    ts,
		Type:         msg.RoutingKey,
		Body:         msg.Body,
	}
}

// Ping reports whether the connection is still open.
func (c *Client) Ping(context.Context) error {
	if c == nil || c.conn == nil {
		return errors.New("rabbitmq client not initialized")
	}
	if c.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// Close tears down the channel and connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	var chErr error
	if c.channel != nil {
		chErr = c.channel.Close()
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	if chErr != nil && !errors.Is(chErr, amqp.ErrClosed) {
		return chErr
	}
	return nil
}
