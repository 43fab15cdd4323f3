package controllers

import (
	"net/http"

	"github.com/angelmondragon/armory-backend/api/responses"
	"github.com/angelmondragon/armory-backend/api/validators"
	"github.com/angelmondragon/armory-backend/internal/persons"
	"github.com/angelmondragon/armory-backend/pkg/logger"
)

type createPersonRequest struct {
	Name             string  `json:"name" validate:"required,max=128"`
	Phone            string  `json:"phone" validate:"omitempty,e164"`
	Email            string  `json:"email" validate:"omitempty,email"`
	PreferredChannel *string `json:"preferredChannel"`
	Active           *bool   `json:"active"`
}

type updatePersonRequest struct {
	Name             *string `json:"name" validate:"omitempty,max=128"`
	Phone            *string `json:"phone" validate:"omitempty,e164"`
	Email            *string `json:"email" validate:"omitempty,email"`
	PreferredChannel *string `json:"preferredChannel"`
	Active           *bool   `json:"active"`
}

func AdminListPersons(svc persons.Service, logg *logger.Logger) http.HandlerFunc {
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

func AdminCreatePerson(svc persons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createPersonRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		person, err := svc.Create(r.Context(), persons.CreateInput{
			Name:             body.Name,
			Phone:            body.Phone,
			Email:            body.Email,
			PreferredChannel: body.PreferredChannel,
			Active:           body.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, person)
	}
}

func AdminUpdatePerson(svc persons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "personId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updatePersonRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		person, err := svc.Update(r.Context(), id, persons.UpdateInput{
			Name:             body.Name,
			Phone:            body.Phone,
			Email:            body.Email,
			PreferredChannel: body.PreferredChannel,
			Active:           body.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, person)
	}
}

func AdminDeletePerson(svc persons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "personId")
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
