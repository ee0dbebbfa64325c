package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hrdesk/notify-service/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConfirmFunc receives broker publish confirmations, correlated back to the
// message id the payload was published with. Invoked from the client's
// confirm goroutine, concurrently with application code.
type ConfirmFunc func(msgID string, ack bool, cause string)

// Client wraps one AMQP connection/channel with publisher confirms enabled
// and the mail topology declared.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	cfg  config.RabbitConfig
	log  *zap.SugaredLogger

	// publisher confirms arrive ordered by delivery tag, not message id;
	// inflight maps the channel's publish seqno back to our correlation key.
	mu       sync.Mutex
	inflight map[uint64]string
}

// Dial connects, enables confirm mode and declares the durable
// exchange/queue/binding. onConfirm may be nil for consume-only clients.
func Dial(cfg config.RabbitConfig, onConfirm ConfirmFunc, log *zap.SugaredLogger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	c := &Client{
		conn:     conn,
		ch:       ch,
		cfg:      cfg,
		log:      log,
		inflight: make(map[uint64]string),
	}

	if onConfirm != nil {
		if err := ch.Confirm(false); err != nil {
			conn.Close()
			return nil, fmt.Errorf("confirm mode: %w", err)
		}
		confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 256))
		returns := ch.NotifyReturn(make(chan amqp.Return, 16))
		go c.dispatchConfirms(confirms, onConfirm)
		go c.logReturns(returns)
	}

	return c, nil
}

// Publish sends body to the configured exchange/routing key as a persistent
// message carrying msgID. Fire-and-forget: the outcome arrives via ConfirmFunc.
func (c *Client) Publish(ctx context.Context, body []byte, msgID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.ch.GetNextPublishSeqNo()
	c.inflight[seq] = msgID

	err := c.ch.PublishWithContext(ctx, c.cfg.Exchange, c.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msgID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		delete(c.inflight, seq)
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Consume opens a manual-ack delivery stream from the mail queue.
func (c *Client) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	if prefetch > 0 {
		if err := c.ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("amqp qos: %w", err)
		}
	}
	deliveries, err := c.ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("amqp consume: %w", err)
	}
	return deliveries, nil
}

// Close shuts down the channel and connection.
func (c *Client) Close() error {
	if err := c.ch.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}

func (c *Client) dispatchConfirms(confirms <-chan amqp.Confirmation, onConfirm ConfirmFunc) {
	for conf := range confirms {
		c.mu.Lock()
		msgID, ok := c.inflight[conf.DeliveryTag]
		delete(c.inflight, conf.DeliveryTag)
		c.mu.Unlock()
		if !ok {
			c.log.Warnf("confirm for unknown delivery tag %d", conf.DeliveryTag)
			continue
		}
		cause := ""
		if !conf.Ack {
			cause = "nacked by broker"
		}
		onConfirm(msgID, conf.Ack, cause)
	}
}

func (c *Client) logReturns(returns <-chan amqp.Return) {
	for ret := range returns {
		c.log.Warnf("message %s returned: %d %s (exchange=%s key=%s)",
			ret.MessageId, ret.ReplyCode, ret.ReplyText, ret.Exchange, ret.RoutingKey)
	}
}
