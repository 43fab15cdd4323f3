package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/armory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/armory-backend/pkg/errors"
	"github.com/angelmondragon/armory-backend/pkg/outbox"
	"github.com/angelmondragon/armory-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (string, error)
}

// Enqueuer stages a notification request in the outbox so it reaches the
// notification consumer through the publisher instead of being sent inline.
type Enqueuer struct {
	tx      txRunner
	emitter eventEmitter
}

func NewEnqueuer(tx txRunner, emitter eventEmitter) (*Enqueuer, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Enqueuer{tx: tx, emitter: emitter}, nil
}

// Enqueue returns the outbox event id the consumer will see.
func (e *Enqueuer) Enqueue(ctx context.Context, actor string, req Request) (string, error) {
	raw, err := EncodeRequest(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification request")
	}

	aggregateID := uuid.New()
	if ref, ok := req.(PersonRef); ok && ref.PersonID != uuid.Nil {
		aggregateID = ref.PersonID
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   aggregateID,
		Data:          payloads.NotificationRequestedEvent{Request: raw},
	}
	if actor = strings.TrimSpace(actor); actor != "" {
		event.Actor = &outbox.ActorRef{Subject: actor}
	}

	var eventID string
	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var emitErr error
		eventID, emitErr = e.emitter.Emit(ctx, tx, event)
		return emitErr
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue notification request")
	}
	return eventID, nil
}
