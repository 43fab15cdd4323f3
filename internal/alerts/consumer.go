package alerts

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/armory-backend/pkg/enums"
	"github.com/angelmondragon/armory-backend/pkg/logger"
	"github.com/angelmondragon/armory-backend/pkg/outbox"
	"github.com/angelmondragon/armory-backend/pkg/outbox/payloads"
)

type batchHandler interface {
	HandleBatch(ctx context.Context, batch payloads.ChangeBatch) (Summary, error)
}

// Consumer feeds ammo change batches to the evaluator. A failed evaluation is
// nacked so Pub/Sub redelivers the batch.
type Consumer struct {
	handler      batchHandler
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

func NewConsumer(handler batchHandler, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("evaluator required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("ammo changes subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{handler: handler, subscription: subscription, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process reports whether the message should be nacked.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventAmmoChanged) {
		c.logg.Info(logCtx, "skipping non-ammo event")
		return false
	}

	var batch payloads.ChangeBatch
	envelope, err := outbox.DecodeEnvelope(msg.Data, &batch)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode change batch", err)
		return false
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	if _, err := c.handler.HandleBatch(logCtx, batch); err != nil {
		c.logg.Error(logCtx, "threshold evaluation failed", err)
		return true
	}
	return false
}
