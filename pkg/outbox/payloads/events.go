package payloads

import (
	"encoding/json"

	"github.com/angelmondragon/armory-backend/pkg/db/models"
	"github.com/angelmondragon/armory-backend/pkg/enums"
)

// ChangeRecord is one entry of the ammo change stream. NewImage is nil for
// removals and OldImage is nil for inserts.
type ChangeRecord struct {
	EventName enums.ChangeEventName `json:"eventName"`
	NewImage  *models.AmmoLot       `json:"newImage,omitempty"`
	OldImage  *models.AmmoLot       `json:"oldImage,omitempty"`
}

// ChangeBatch groups the records written by a single inventory operation.
type ChangeBatch struct {
	Records []ChangeRecord `json:"records"`
}

// HasModify reports whether any record in the batch is a modification.
func (b ChangeBatch) HasModify() bool {
	for _, record := range b.Records {
		if record.EventName == enums.ChangeModify {
			return true
		}
	}
	return false
}

// NotificationRequestedEvent carries a dispatcher request in its wire shape;
// the notify package decides whether it is the direct or person form.
type NotificationRequestedEvent struct {
	Request json.RawMessage `json:"request"`
}
