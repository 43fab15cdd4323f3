package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
)

// Repository persists ammo lots. Writes take the caller's transaction so the
// change record lands in the outbox atomically.
type Repository struct {
	db    *gorm.DB
	table string
}

func NewRepository(conn *gorm.DB, table string) *Repository {
	if table == "" {
		table = models.AmmoLot{}.TableName()
	}
	return &Repository{db: conn, table: table}
}

func (r *Repository) CreateTx(tx *gorm.DB, lot *models.AmmoLot) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Table(r.table).Create(lot).Error
}

// FindForUpdateTx loads a lot and locks its row for the rest of the transaction.
func (r *Repository) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*models.AmmoLot, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var lot models.AmmoLot
	err := tx.Table(r.table).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&lot).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *Repository) UpdateTx(tx *gorm.DB, lot *models.AmmoLot) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	lot.UpdatedAt = time.Now().UTC()
	result := tx.Table(r.table).Where("id = ?", lot.ID).Updates(map[string]any{
		"item_id":          lot.ItemID,
		"caliber":          lot.Caliber,
		"rounds_available": lot.RoundsAvailable,
		"brand":            lot.Brand,
		"grain_weight":     lot.GrainWeight,
		"updated_at":       lot.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	result := tx.Table(r.table).Where("id = ?", id).Delete(&models.AmmoLot{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AmmoLot, error) {
	var lot models.AmmoLot
	if err := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).First(&lot).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

// Pages returns a continuation-token page reader over the table.
func (r *Repository) Pages(pageSize int) db.PageFunc[models.AmmoLot] {
	return db.ScanTable[models.AmmoLot](r.db, r.table, pageSize)
}
