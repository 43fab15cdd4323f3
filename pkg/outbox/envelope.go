package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies who produced the event. Subject is the admin token subject;
// events produced by the evaluator carry no actor.
type ActorRef struct {
	Subject string `json:"subject"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events and
// carried as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope wraps data in a version 1 envelope with a fresh event id.
func NewEnvelope(eventID string, occurredAt time.Time, actor *ActorRef, data any) (PayloadEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return PayloadEnvelope{}, err
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: occurredAt,
		Actor:      actor,
		Data:       payload,
	}, nil
}

// DecodeEnvelope parses an envelope and unmarshals its data into out.
func DecodeEnvelope(raw []byte, out any) (PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return PayloadEnvelope{}, err
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return envelope, err
		}
	}
	return envelope, nil
}
