package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnknownCaliber labels lots recorded without a caliber.
const UnknownCaliber = "Unknown"

// AmmoLot is the ammunition detail row for one physical lot of an inventory item.
// Several lots may share a caliber.
type AmmoLot struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID          uuid.UUID `gorm:"column:item_id;type:uuid;not null" json:"itemId"`
	Caliber         *string   `gorm:"column:caliber" json:"caliber,omitempty"`
	RoundsAvailable *int      `gorm:"column:rounds_available" json:"roundsAvailable,omitempty"`
	Brand           *string   `gorm:"column:brand" json:"brand,omitempty"`
	GrainWeight     *int      `gorm:"column:grain_weight" json:"grainWeight,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (AmmoLot) TableName() string { return "ammo_lots" }

func (a *AmmoLot) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CaliberKey is the aggregation key for the lot.
func (a AmmoLot) CaliberKey() string {
	if a.Caliber == nil || strings.TrimSpace(*a.Caliber) == "" {
		return UnknownCaliber
	}
	return *a.Caliber
}

// Rounds returns the available round count, treating unset as zero.
func (a AmmoLot) Rounds() int {
	if a.RoundsAvailable == nil {
		return 0
	}
	return *a.RoundsAvailable
}

// PrimaryKey satisfies db.Keyed for paginated scans.
func (a AmmoLot) PrimaryKey() uuid.UUID { return a.ID }
