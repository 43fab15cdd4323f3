package thresholds

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/armory-backend/pkg/errors"
	"github.com/angelmondragon/armory-backend/pkg/pagination"
	"github.com/angelmondragon/armory-backend/pkg/types"
)

type rulesRepository interface {
	Create(ctx context.Context, rule *models.ThresholdRule) (*models.ThresholdRule, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ThresholdRule, error)
	Update(ctx context.Context, rule *models.ThresholdRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	Pages(pageSize int) db.PageFunc[models.ThresholdRule]
}

type personLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Person, error)
}

// Service manages threshold rules.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.ThresholdRule, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ThresholdRule, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.ThresholdRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params) (*types.ListResult[models.ThresholdRule], error)
}

type CreateInput struct {
	Caliber   string
	MinRounds int
	PersonID  uuid.UUID
	Enabled   *bool
}

type UpdateInput struct {
	Caliber   *string
	MinRounds *int
	PersonID  *uuid.UUID
	Enabled   *bool
}

type service struct {
	repo    rulesRepository
	persons personLookup
}

func NewService(repo rulesRepository, persons personLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("threshold repository required")
	}
	if persons == nil {
		return nil, fmt.Errorf("person lookup required")
	}
	return &service{repo: repo, persons: persons}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.ThresholdRule, error) {
	caliber := strings.TrimSpace(input.Caliber)
	if caliber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "caliber is required")
	}
	if input.MinRounds < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minRounds must be >= 0")
	}
	if err := s.ensurePerson(ctx, input.PersonID); err != nil {
		return nil, err
	}

	rule := &models.ThresholdRule{
		Caliber:   caliber,
		MinRounds: input.MinRounds,
		PersonID:  input.PersonID,
		Enabled:   input.Enabled,
	}
	created, err := s.repo.Create(ctx, rule)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create threshold rule")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.ThresholdRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "threshold rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup threshold rule")
	}
	return rule, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.ThresholdRule, error) {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Caliber != nil {
		caliber := strings.TrimSpace(*input.Caliber)
		if caliber == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "caliber cannot be blank")
		}
		rule.Caliber = caliber
	}
	if input.MinRounds != nil {
		if *input.MinRounds < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minRounds must be >= 0")
		}
		rule.MinRounds = *input.MinRounds
	}
	if input.PersonID != nil && *input.PersonID != rule.PersonID {
		if err := s.ensurePerson(ctx, *input.PersonID); err != nil {
			return nil, err
		}
		rule.PersonID = *input.PersonID
	}
	if input.Enabled != nil {
		enabled := *input.Enabled
		rule.Enabled = &enabled
	}

	if err := s.repo.Update(ctx, rule); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "threshold rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update threshold rule")
	}
	return rule, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "threshold rule not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete threshold rule")
	}
	return nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*types.ListResult[models.ThresholdRule], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.Pages(params.Limit)(ctx, params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list threshold rules")
	}
	items := page.Items
	if items == nil {
		items = []models.ThresholdRule{}
	}
	return &types.ListResult[models.ThresholdRule]{Items: items, NextCursor: page.NextToken}, nil
}

// ensurePerson rejects rules that point at a contact that does not exist.
// Inactive contacts are accepted; the evaluator skips them at send time.
func (s *service) ensurePerson(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "personId is required")
	}
	if _, err := s.persons.FindByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeValidation, "personId does not reference a known person")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup person")
	}
	return nil
}
