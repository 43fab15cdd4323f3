package thresholds

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
)

// Repository persists threshold rules in the configured table.
type Repository struct {
	db    *gorm.DB
	table string
}

func NewRepository(conn *gorm.DB, table string) *Repository {
	if table == "" {
		table = models.ThresholdRule{}.TableName()
	}
	return &Repository{db: conn, table: table}
}

func (r *Repository) Create(ctx context.Context, rule *models.ThresholdRule) (*models.ThresholdRule, error) {
	if err := r.db.WithContext(ctx).Table(r.table).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ThresholdRule, error) {
	var rule models.ThresholdRule
	if err := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *Repository) Update(ctx context.Context, rule *models.ThresholdRule) error {
	rule.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Table(r.table).Where("id = ?", rule.ID).Updates(map[string]any{
		"caliber":    rule.Caliber,
		"min_rounds": rule.MinRounds,
		"person_id":  rule.PersonID,
		"enabled":    rule.Enabled,
		"updated_at": rule.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).Delete(&models.ThresholdRule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Pages returns a continuation-token page reader over the table.
func (r *Repository) Pages(pageSize int) db.PageFunc[models.ThresholdRule] {
	return db.ScanTable[models.ThresholdRule](r.db, r.table, pageSize)
}
