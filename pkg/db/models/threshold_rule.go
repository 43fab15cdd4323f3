package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ThresholdRule asks for PersonID to be notified when the total rounds
// available for Caliber drop below MinRounds.
type ThresholdRule struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Caliber   string    `gorm:"column:caliber;not null" json:"caliber"`
	MinRounds int       `gorm:"column:min_rounds;not null" json:"minRounds"`
	PersonID  uuid.UUID `gorm:"column:person_id;type:uuid;not null" json:"personId"`
	Enabled   *bool     `gorm:"column:enabled" json:"enabled,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (ThresholdRule) TableName() string { return "threshold_rules" }

func (r *ThresholdRule) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsEnabled treats a missing flag as enabled.
func (r ThresholdRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Breached reports whether available is strictly below the configured minimum.
func (r ThresholdRule) Breached(available int) bool {
	return available < r.MinRounds
}

// PrimaryKey satisfies db.Keyed for paginated scans.
func (r ThresholdRule) PrimaryKey() uuid.UUID { return r.ID }
