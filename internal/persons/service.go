package persons

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
	"github.com/angelmondragon/armory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/armory-backend/pkg/errors"
	"github.com/angelmondragon/armory-backend/pkg/pagination"
	"github.com/angelmondragon/armory-backend/pkg/types"
)

type personsRepository interface {
	Create(ctx context.Context, person *models.Person) (*models.Person, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Person, error)
	Update(ctx context.Context, person *models.Person) error
	Delete(ctx context.Context, id uuid.UUID) error
	Pages(pageSize int) db.PageFunc[models.Person]
}

// Service manages notification contacts.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Person, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Person, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Person, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params) (*types.ListResult[models.Person], error)
}

// CreateInput describes a new contact. PreferredChannel and Active may be omitted.
type CreateInput struct {
	Name             string
	Phone            string
	Email            string
	PreferredChannel *string
	Active           *bool
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name             *string
	Phone            *string
	Email            *string
	PreferredChannel *string
	Active           *bool
}

type service struct {
	repo personsRepository
}

func NewService(repo personsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("persons repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Person, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	channel, err := parseChannel(input.PreferredChannel)
	if err != nil {
		return nil, err
	}

	person := &models.Person{
		Name:             name,
		Phone:            strings.TrimSpace(input.Phone),
		Email:            strings.TrimSpace(input.Email),
		PreferredChannel: channel,
		Active:           input.Active,
	}
	created, err := s.repo.Create(ctx, person)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create person")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	person, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "person not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup person")
	}
	return person, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Person, error) {
	person, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		person.Name = name
	}
	if input.Phone != nil {
		person.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Email != nil {
		person.Email = strings.TrimSpace(*input.Email)
	}
	if input.PreferredChannel != nil {
		channel, err := parseChannel(input.PreferredChannel)
		if err != nil {
			return nil, err
		}
		person.PreferredChannel = channel
	}
	if input.Active != nil {
		active := *input.Active
		person.Active = &active
	}

	if err := s.repo.Update(ctx, person); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "person not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update person")
	}
	return person, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "person not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete person")
	}
	return nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*types.ListResult[models.Person], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.Pages(params.Limit)(ctx, params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list persons")
	}
	items := page.Items
	if items == nil {
		items = []models.Person{}
	}
	return &types.ListResult[models.Person]{Items: items, NextCursor: page.NextToken}, nil
}

// parseChannel accepts a blank value as "use the default".
func parseChannel(raw *string) (*enums.Channel, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	channel, err := enums.ParseChannel(*raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "preferredChannel must be SMS, WHATSAPP or EMAIL")
	}
	return &channel, nil
}
