package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/armory-backend/pkg/enums"
)

// Person is an administrator-managed contact that threshold rules notify.
type Person struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name             string         `gorm:"column:name;not null" json:"name"`
	Phone            string         `gorm:"column:phone" json:"phone,omitempty"`
	Email            string         `gorm:"column:email" json:"email,omitempty"`
	PreferredChannel *enums.Channel `gorm:"column:preferred_channel" json:"preferredChannel,omitempty"`
	Active           *bool          `gorm:"column:active" json:"active,omitempty"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Person) TableName() string { return "persons" }

func (p *Person) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsActive treats a missing flag as active.
func (p Person) IsActive() bool {
	return p.Active == nil || *p.Active
}

// Channel returns the preferred channel, defaulting to SMS. Stored values are
// matched case-insensitively; unrecognized ones fall back to the default.
func (p Person) Channel() enums.Channel {
	if p.PreferredChannel == nil {
		return enums.DefaultChannel
	}
	channel, err := enums.ParseChannel(string(*p.PreferredChannel))
	if err != nil {
		return enums.DefaultChannel
	}
	return channel
}

// AddressFor returns the contact address used for channel: email for EMAIL,
// phone for everything else.
func (p Person) AddressFor(channel enums.Channel) string {
	if channel == enums.ChannelEmail {
		return strings.TrimSpace(p.Email)
	}
	return strings.TrimSpace(p.Phone)
}

// PrimaryKey satisfies db.Keyed for paginated scans.
func (p Person) PrimaryKey() uuid.UUID { return p.ID }
