package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/armory-backend/pkg/config"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
	"github.com/angelmondragon/armory-backend/pkg/enums"
	"github.com/angelmondragon/armory-backend/pkg/outbox"
	"github.com/angelmondragon/armory-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveChangeBatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	caliber := "9mm"
	rounds := 120
	lot := &models.AmmoLot{ID: uuid.New(), Caliber: &caliber, RoundsAvailable: &rounds}
	event := models.OutboxEvent{
		EventType:     enums.EventAmmoChanged,
		AggregateType: enums.AggregateAmmoLot,
		AggregateID:   lot.ID,
		Payload: mustEnvelope(t, mustMarshal(t, payloads.ChangeBatch{Records: []payloads.ChangeRecord{
			{EventName: enums.ChangeModify, NewImage: lot},
		}})),
	}

	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	assert.Equal(t, "ammo-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)

	batch, ok := resolved.Payload.(*payloads.ChangeBatch)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	require.Len(t, batch.Records, 1)
	assert.True(t, batch.HasModify())
	assert.Equal(t, "9mm", batch.Records[0].NewImage.CaliberKey())
}

func TestEventRegistryResolveNotificationTopic(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"request":{"personId":"p1"}}`)),
	}

	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	assert.Equal(t, "notification-topic", resolved.Descriptor.Topic)
}

func TestEventRegistryResolveRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("ammo_sold"),
			AggregateType: enums.AggregateAmmoLot,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{"records":[]}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventAmmoChanged,
			AggregateType: enums.AggregateNotification,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{"records":[]}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventAmmoChanged,
			AggregateType: enums.AggregateAmmoLot,
			Payload:       mustEnvelope(t, []byte(`{"records":[]}`)),
		},
		"null payload": {
			EventType:     enums.EventAmmoChanged,
			AggregateType: enums.AggregateAmmoLot,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte("null")),
		},
		"garbled envelope": {
			EventType:     enums.EventAmmoChanged,
			AggregateType: enums.AggregateAmmoLot,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			var nonRetry NonRetryableError
			assert.True(t, errors.As(err, &nonRetry), "expected non-retryable error, got %T", err)
		})
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"})
	assert.Error(t, err)
	_, err = NewEventRegistry(config.PubSubConfig{AmmoChangesTopic: "a"})
	assert.Error(t, err)
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		AmmoChangesTopic:  "ammo-topic",
		NotificationTopic: "notification-topic",
	})
	require.NoError(t, err)
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	require.NoError(t, err)
	return data
}
