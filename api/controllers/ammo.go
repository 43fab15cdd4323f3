package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/armory-backend/api/middleware"
	"github.com/angelmondragon/armory-backend/api/responses"
	"github.com/angelmondragon/armory-backend/api/validators"
	"github.com/angelmondragon/armory-backend/internal/inventory"
	"github.com/angelmondragon/armory-backend/pkg/logger"
)

type ammoLotRequest struct {
	ItemID          *uuid.UUID `json:"itemId"`
	Caliber         *string    `json:"caliber" validate:"omitempty,max=64"`
	RoundsAvailable *int       `json:"roundsAvailable" validate:"omitempty,gte=0"`
	Brand           *string    `json:"brand" validate:"omitempty,max=128"`
	GrainWeight     *int       `json:"grainWeight" validate:"omitempty,gte=0"`
}

func (req ammoLotRequest) input() inventory.LotInput {
	return inventory.LotInput{
		ItemID:          req.ItemID,
		Caliber:         req.Caliber,
		RoundsAvailable: req.RoundsAvailable,
		Brand:           req.Brand,
		GrainWeight:     req.GrainWeight,
	}
}

type adjustRequest struct {
	Adjustments []struct {
		ID              uuid.UUID `json:"id" validate:"required"`
		RoundsAvailable int       `json:"roundsAvailable" validate:"gte=0"`
	} `json:"adjustments" validate:"required,min=1,dive"`
}

func AdminListAmmo(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminGetAmmo(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "lotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lot, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lot)
	}
}

func AdminCreateAmmo(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ammoLotRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lot, err := svc.Create(r.Context(), middleware.SubjectFromContext(r.Context()), body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, lot)
	}
}

func AdminUpdateAmmo(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "lotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body ammoLotRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lot, err := svc.Update(r.Context(), middleware.SubjectFromContext(r.Context()), id, body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lot)
	}
}

// AdminAdjustAmmo applies a stocktake: several round counts in one change batch.
func AdminAdjustAmmo(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body adjustRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adjustments := make([]inventory.Adjustment, 0, len(body.Adjustments))
		for _, adj := range body.Adjustments {
			adjustments = append(adjustments, inventory.Adjustment{ID: adj.ID, RoundsAvailable: adj.RoundsAvailable})
		}
		lots, err := svc.Adjust(r.Context(), middleware.SubjectFromContext(r.Context()), adjustments)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lots)
	}
}

func AdminDeleteAmmo(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "lotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), middleware.SubjectFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
