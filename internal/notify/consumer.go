package notify

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/armory-backend/pkg/enums"
	"github.com/angelmondragon/armory-backend/pkg/logger"
	"github.com/angelmondragon/armory-backend/pkg/outbox"
	"github.com/angelmondragon/armory-backend/pkg/outbox/payloads"
)

const notificationConsumer = "notification-sender"

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

type rawSender interface {
	SendRaw(ctx context.Context, raw []byte) Result
}

// Consumer drains the notification topic into the dispatcher. Delivery
// failures are logged and acked; only infrastructure errors cause a nack.
type Consumer struct {
	sender       rawSender
	subscription *pubsub.Subscriber
	idempotency  processedGuard
	logg         *logger.Logger
}

func NewConsumer(sender rawSender, subscription *pubsub.Subscriber, guard processedGuard, logg *logger.Logger) (*Consumer, error) {
	if sender == nil {
		return nil, errSenderRequired
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{sender: sender, subscription: subscription, idempotency: guard, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	nack   bool
	sent   bool
	result Result
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Info(logCtx, "skipping non-notification event")
		return processResult{}
	}

	var event payloads.NotificationRequestedEvent
	envelope, err := outbox.DecodeEnvelope(msg.Data, &event)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode notification envelope", err)
		return processResult{}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "notification already sent")
		return processResult{}
	}

	result := c.sender.SendRaw(logCtx, event.Request)
	if !result.OK {
		c.logg.Warn(c.logg.WithField(logCtx, "error", result.Error), "notification request not delivered")
	}
	return processResult{sent: true, result: result}
}
