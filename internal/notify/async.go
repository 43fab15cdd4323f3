package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/armory-backend/pkg/enums"
	"github.com/angelmondragon/armory-backend/pkg/logger"
	"github.com/angelmondragon/armory-backend/pkg/outbox"
	"github.com/angelmondragon/armory-backend/pkg/outbox/payloads"
)

const (
	defaultInlineTimeout = 30 * time.Second
	publishAckTimeout    = 30 * time.Second
)

type messagePublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

type publishOutcome interface {
	Get(ctx context.Context) (string, error)
}

// TopicDispatcher hands alerts to the notification topic. Dispatch does not
// block on the publish result; a background goroutine logs failed publishes.
// The notification consumer performs the actual send.
type TopicDispatcher struct {
	publisher messagePublisher
	logg      *logger.Logger
}

func NewTopicDispatcher(publisher messagePublisher, logg *logger.Logger) (*TopicDispatcher, error) {
	if publisher == nil {
		return nil, errPublisherRequired
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &TopicDispatcher{publisher: publisher, logg: logg}, nil
}

func (d *TopicDispatcher) Dispatch(ctx context.Context, req Direct) {
	msg, err := newRequestMessage(req)
	if err != nil {
		d.logg.Error(ctx, "encode notification request", err)
		return
	}
	eventCtx := d.logg.WithField(ctx, "event_id", msg.Attributes["event_id"])
	if res := d.publisher.Publish(ctx, msg); res != nil {
		go d.watch(eventCtx, res)
	}
	d.logg.Debug(eventCtx, "notification request published")
}

func (d *TopicDispatcher) watch(ctx context.Context, res publishOutcome) {
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishAckTimeout)
	defer cancel()
	if _, err := res.Get(ackCtx); err != nil {
		d.logg.Error(ackCtx, "notification request publish failed", err)
	}
}

func newRequestMessage(req Direct) (*pubsub.Message, error) {
	raw, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	eventID := uuid.NewString()
	envelope, err := outbox.NewEnvelope(eventID, time.Now().UTC(), nil, payloads.NotificationRequestedEvent{Request: raw})
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":   eventID,
			"event_type": string(enums.EventNotificationRequested),
		},
	}, nil
}

type requestSender interface {
	Send(ctx context.Context, req Request) Result
}

// InlineDispatcher sends from the calling process on a background goroutine.
// The goroutine runs on a context detached from the caller's cancellation and
// bounded by its own timeout.
type InlineDispatcher struct {
	sender  requestSender
	timeout time.Duration
	logg    *logger.Logger
	wg      sync.WaitGroup
}

func NewInlineDispatcher(sender requestSender, timeout time.Duration, logg *logger.Logger) (*InlineDispatcher, error) {
	if sender == nil {
		return nil, errSenderRequired
	}
	if timeout <= 0 {
		timeout = defaultInlineTimeout
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &InlineDispatcher{sender: sender, timeout: timeout, logg: logg}, nil
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, req Direct) {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		if result := d.sender.Send(sendCtx, req); !result.OK {
			d.logg.Warn(d.logg.WithField(sendCtx, "error", result.Error), "inline notification failed")
		}
	}()
}

// Wait blocks until in-flight sends finish. Used at shutdown.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
