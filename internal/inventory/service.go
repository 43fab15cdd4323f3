package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
	"github.com/angelmondragon/armory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/armory-backend/pkg/errors"
	"github.com/angelmondragon/armory-backend/pkg/logger"
	"github.com/angelmondragon/armory-backend/pkg/outbox"
	"github.com/angelmondragon/armory-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/armory-backend/pkg/pagination"
	"github.com/angelmondragon/armory-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lotsRepository interface {
	CreateTx(tx *gorm.DB, lot *models.AmmoLot) error
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*models.AmmoLot, error)
	UpdateTx(tx *gorm.DB, lot *models.AmmoLot) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AmmoLot, error)
	Pages(pageSize int) db.PageFunc[models.AmmoLot]
}

type changeEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (string, error)
}

// Service is ammo lot CRUD. Every write publishes a change batch.
type Service interface {
	Create(ctx context.Context, actor string, input LotInput) (*models.AmmoLot, error)
	Get(ctx context.Context, id uuid.UUID) (*models.AmmoLot, error)
	Update(ctx context.Context, actor string, id uuid.UUID, input LotInput) (*models.AmmoLot, error)
	Adjust(ctx context.Context, actor string, adjustments []Adjustment) ([]models.AmmoLot, error)
	Delete(ctx context.Context, actor string, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params) (*types.ListResult[models.AmmoLot], error)
}

// LotInput carries lot fields. On update nil fields are left untouched; on
// create they stay unset.
type LotInput struct {
	ItemID          *uuid.UUID
	Caliber         *string
	RoundsAvailable *int
	Brand           *string
	GrainWeight     *int
}

// Adjustment sets the round count of one lot.
type Adjustment struct {
	ID              uuid.UUID
	RoundsAvailable int
}

type service struct {
	tx      txRunner
	repo    lotsRepository
	emitter changeEmitter
	logg    *logger.Logger
}

func NewService(tx txRunner, repo lotsRepository, emitter changeEmitter, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ammo repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{tx: tx, repo: repo, emitter: emitter, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, actor string, input LotInput) (*models.AmmoLot, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	lot := &models.AmmoLot{}
	applyInput(lot, input)
	if lot.ItemID == uuid.Nil {
		lot.ItemID = uuid.New()
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, lot); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ammo lot")
		}
		image := *lot
		return s.emit(ctx, tx, actor, lot.ID, payloads.ChangeRecord{
			EventName: enums.ChangeInsert,
			NewImage:  &image,
		})
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.AmmoLot, error) {
	lot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return lot, nil
}

func (s *service) Update(ctx context.Context, actor string, id uuid.UUID, input LotInput) (*models.AmmoLot, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var updated *models.AmmoLot
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		lot, err := s.repo.FindForUpdateTx(tx, id)
		if err != nil {
			return mapLookupError(err)
		}
		before := *lot
		applyInput(lot, input)
		if err := s.repo.UpdateTx(tx, lot); err != nil {
			return mapWriteError(err, "update ammo lot")
		}
		after := *lot
		updated = lot
		return s.emit(ctx, tx, actor, lot.ID, payloads.ChangeRecord{
			EventName: enums.ChangeModify,
			NewImage:  &after,
			OldImage:  &before,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Adjust applies several round counts in one transaction and publishes a
// single batch of MODIFY records, the way a stocktake lands in the stream.
func (s *service) Adjust(ctx context.Context, actor string, adjustments []Adjustment) ([]models.AmmoLot, error) {
	if len(adjustments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one adjustment is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(adjustments))
	for _, adj := range adjustments {
		if adj.ID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment id is required")
		}
		if adj.RoundsAvailable < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "roundsAvailable must be >= 0")
		}
		if _, dup := seen[adj.ID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("lot %s adjusted twice", adj.ID))
		}
		seen[adj.ID] = struct{}{}
	}

	lots := make([]models.AmmoLot, 0, len(adjustments))
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		records := make([]payloads.ChangeRecord, 0, len(adjustments))
		for _, adj := range adjustments {
			lot, err := s.repo.FindForUpdateTx(tx, adj.ID)
			if err != nil {
				return mapLookupError(err)
			}
			before := *lot
			rounds := adj.RoundsAvailable
			lot.RoundsAvailable = &rounds
			if err := s.repo.UpdateTx(tx, lot); err != nil {
				return mapWriteError(err, "adjust ammo lot")
			}
			after := *lot
			lots = append(lots, after)
			records = append(records, payloads.ChangeRecord{EventName: enums.ChangeModify, NewImage: &after, OldImage: &before})
		}
		return s.emit(ctx, tx, actor, adjustments[0].ID, records...)
	})
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (s *service) Delete(ctx context.Context, actor string, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		lot, err := s.repo.FindForUpdateTx(tx, id)
		if err != nil {
			return mapLookupError(err)
		}
		if err := s.repo.DeleteTx(tx, id); err != nil {
			return mapWriteError(err, "delete ammo lot")
		}
		return s.emit(ctx, tx, actor, id, payloads.ChangeRecord{
			EventName: enums.ChangeRemove,
			OldImage:  lot,
		})
	})
}

func (s *service) List(ctx context.Context, params pagination.Params) (*types.ListResult[models.AmmoLot], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.Pages(params.Limit)(ctx, params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ammo lots")
	}
	items := page.Items
	if items == nil {
		items = []models.AmmoLot{}
	}
	return &types.ListResult[models.AmmoLot]{Items: items, NextCursor: page.NextToken}, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor string, aggregateID uuid.UUID, records ...payloads.ChangeRecord) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventAmmoChanged,
		AggregateType: enums.AggregateAmmoLot,
		AggregateID:   aggregateID,
		Data:          payloads.ChangeBatch{Records: records},
	}
	if actor = strings.TrimSpace(actor); actor != "" {
		event.Actor = &outbox.ActorRef{Subject: actor}
	}
	eventID, err := s.emitter.Emit(ctx, tx, event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue ammo change")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":     eventID,
		"aggregate_id": aggregateID.String(),
		"records":      len(records),
		"change":       records[0].EventName,
	})
	s.logg.Debug(logCtx, "ammo change queued")
	return nil
}

func validateInput(input LotInput) error {
	if input.RoundsAvailable != nil && *input.RoundsAvailable < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "roundsAvailable must be >= 0")
	}
	if input.GrainWeight != nil && *input.GrainWeight < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "grainWeight must be >= 0")
	}
	return nil
}

func applyInput(lot *models.AmmoLot, input LotInput) {
	if input.ItemID != nil {
		lot.ItemID = *input.ItemID
	}
	if input.Caliber != nil {
		lot.Caliber = trimmedOrNil(*input.Caliber)
	}
	if input.RoundsAvailable != nil {
		rounds := *input.RoundsAvailable
		lot.RoundsAvailable = &rounds
	}
	if input.Brand != nil {
		lot.Brand = trimmedOrNil(*input.Brand)
	}
	if input.GrainWeight != nil {
		grain := *input.GrainWeight
		lot.GrainWeight = &grain
	}
}

// trimmedOrNil stores blank strings as NULL so the lot reads as "no caliber".
func trimmedOrNil(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func mapLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ammo lot not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup ammo lot")
}

func mapWriteError(err error, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ammo lot not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
