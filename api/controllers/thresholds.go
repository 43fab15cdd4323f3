package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/armory-backend/api/responses"
	"github.com/angelmondragon/armory-backend/api/validators"
	"github.com/angelmondragon/armory-backend/internal/thresholds"
	"github.com/angelmondragon/armory-backend/pkg/logger"
)

type createThresholdRequest struct {
	Caliber   string    `json:"caliber" validate:"required,max=64"`
	MinRounds int       `json:"minRounds" validate:"gte=0"`
	PersonID  uuid.UUID `json:"personId" validate:"required"`
	Enabled   *bool     `json:"enabled"`
}

type updateThresholdRequest struct {
	Caliber   *string    `json:"caliber" validate:"omitempty,max=64"`
	MinRounds *int       `json:"minRounds" validate:"omitempty,gte=0"`
	PersonID  *uuid.UUID `json:"personId"`
	Enabled   *bool      `json:"enabled"`
}

func AdminListThresholds(svc thresholds.Service, logg *logger.Logger) http.HandlerFunc {
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

func AdminCreateThreshold(svc thresholds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createThresholdRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rule, err := svc.Create(r.Context(), thresholds.CreateInput{
			Caliber:   body.Caliber,
			MinRounds: body.MinRounds,
			PersonID:  body.PersonID,
			Enabled:   body.Enabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rule)
	}
}

func AdminUpdateThreshold(svc thresholds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateThresholdRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rule, err := svc.Update(r.Context(), id, thresholds.UpdateInput{
			Caliber:   body.Caliber,
			MinRounds: body.MinRounds,
			PersonID:  body.PersonID,
			Enabled:   body.Enabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

func AdminDeleteThreshold(svc thresholds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
