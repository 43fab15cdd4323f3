package persons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
)

// Repository persists contacts in the configured persons table.
type Repository struct {
	db    *gorm.DB
	table string
}

func NewRepository(conn *gorm.DB, table string) *Repository {
	if table == "" {
		table = models.Person{}.TableName()
	}
	return &Repository{db: conn, table: table}
}

func (r *Repository) Create(ctx context.Context, person *models.Person) (*models.Person, error) {
	if err := r.db.WithContext(ctx).Table(r.table).Create(person).Error; err != nil {
		return nil, err
	}
	return person, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	var person models.Person
	if err := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).First(&person).Error; err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *Repository) Update(ctx context.Context, person *models.Person) error {
	person.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Table(r.table).Where("id = ?", person.ID).Updates(map[string]any{
		"name":              person.Name,
		"phone":             person.Phone,
		"email":             person.Email,
		"preferred_channel": person.PreferredChannel,
		"active":            person.Active,
		"updated_at":        person.UpdatedAt,
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
	result := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).Delete(&models.Person{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Pages returns a continuation-token page reader over the table.
func (r *Repository) Pages(pageSize int) db.PageFunc[models.Person] {
	return db.ScanTable[models.Person](r.db, r.table, pageSize)
}
