package consumer

import (
	"context"
	"encoding/json"

	"github.com/hrdesk/notify-service/internal/mail"
	"github.com/hrdesk/notify-service/internal/model"
	"github.com/hrdesk/notify-service/internal/repo"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MailConsumer turns at-least-once broker delivery into an effectively-once
// welcome mail: dedup check, side effect, dedup record, then ack.
type MailConsumer struct {
	dedup       *repo.DedupStore
	sender      mail.Sender
	atomicDedup bool
	log         *zap.SugaredLogger
}

// NewMailConsumer returns MailConsumer. atomicDedup switches the idempotency
// check from check-then-set to a first-writer-wins claim, closing the window
// where two concurrent duplicate deliveries both pass the check.
func NewMailConsumer(dedup *repo.DedupStore, sender mail.Sender, atomicDedup bool, logger *zap.SugaredLogger) *MailConsumer {
	return &MailConsumer{dedup: dedup, sender: sender, atomicDedup: atomicDedup, log: logger}
}

// Run processes deliveries until the channel closes or ctx is cancelled.
func (c *MailConsumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	c.log.Info("mail consumer started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info("mail consumer stopped")
			return
		case d, ok := <-deliveries:
			if !ok {
				c.log.Warn("delivery channel closed")
				return
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle processes one delivery. Redelivery-safe: duplicates are absorbed by
// the dedup store and acknowledged without re-sending.
func (c *MailConsumer) Handle(ctx context.Context, d amqp.Delivery) {
	msgID := d.MessageId
	if msgID == "" {
		c.log.Error("delivery without message id, dropping to dead-letter")
		c.nack(d, false)
		return
	}

	if c.atomicDedup {
		c.handleAtomic(ctx, d, msgID)
		return
	}

	seen, err := c.dedup.Seen(ctx, msgID)
	if err != nil {
		c.log.Errorf("msg %s dedup check: %v", msgID, err)
		c.nack(d, true)
		return
	}
	if seen {
		c.log.Infof("msg %s already consumed", msgID)
		c.ack(d)
		return
	}

	switch c.trySend(ctx, d, msgID) {
	case sendRetry:
		c.nack(d, true)
		return
	case sendDrop:
		c.nack(d, false)
		return
	}

	// record before ack: a crash in between only costs a deduped redelivery
	if err := c.dedup.MarkProcessed(ctx, msgID); err != nil {
		// ack regardless: the mail is already out, and requeueing cannot
		// repair the record. Worst case a later republish of this msgID
		// re-sends once.
		c.log.Errorf("msg %s dedup record: %v", msgID, err)
	}
	c.ack(d)
	c.log.Infof("msg %s welcome mail sent", msgID)
}

// handleAtomic claims the msgID first; the loser of a concurrent duplicate
// race short-circuits without sending. A failed send releases the claim so
// redelivery can run the side effect.
func (c *MailConsumer) handleAtomic(ctx context.Context, d amqp.Delivery, msgID string) {
	first, err := c.dedup.MarkIfFirst(ctx, msgID)
	if err != nil {
		c.log.Errorf("msg %s dedup claim: %v", msgID, err)
		c.nack(d, true)
		return
	}
	if !first {
		c.log.Infof("msg %s already consumed", msgID)
		c.ack(d)
		return
	}

	if out := c.trySend(ctx, d, msgID); out != sendOK {
		// release the claim before the nack goes out: a fast redelivery
		// racing a stranded claim would ack as a duplicate and the mail
		// would never be sent
		if err := c.dedup.Unmark(ctx, msgID); err != nil {
			c.log.Errorf("msg %s dedup release: %v", msgID, err)
		}
		c.nack(d, out == sendRetry)
		return
	}
	c.ack(d)
	c.log.Infof("msg %s welcome mail sent", msgID)
}

type sendOutcome int

const (
	sendOK sendOutcome = iota
	sendRetry
	sendDrop
)

// trySend decodes and sends without touching the delivery; callers settle
// dedup state first, then ack or nack on the outcome. sendDrop means the
// message is not worth redelivering: malformed payload or permanent sender
// error.
func (c *MailConsumer) trySend(ctx context.Context, d amqp.Delivery, msgID string) sendOutcome {
	var payload model.WelcomePayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		c.log.Errorf("msg %s malformed payload: %v", msgID, err)
		return sendDrop
	}

	if err := c.sender.Send(ctx, payload.Email, payload); err != nil {
		if mail.IsPermanent(err) {
			c.log.Errorf("msg %s permanent send failure: %v", msgID, err)
			return sendDrop
		}
		c.log.Warnf("msg %s send failed, requeueing: %v", msgID, err)
		return sendRetry
	}
	return sendOK
}

func (c *MailConsumer) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		c.log.Errorf("msg %s ack: %v", d.MessageId, err)
	}
}

func (c *MailConsumer) nack(d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		c.log.Errorf("msg %s nack: %v", d.MessageId, err)
	}
}
