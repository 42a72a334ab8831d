package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"dental-registration/database"
	"dental-registration/registration"
)

type profileRequest struct {
	FullName    string  `json:"nombre_completo" validate:"required,min=3,max=100,person_name"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       *string `json:"telefono" validate:"omitempty,mobile_phone"`
	CareerYear  string  `json:"anio_carrera" validate:"required,career_year"`
	CasesNeeded *int    `json:"casos_necesarios" validate:"omitempty,min=1,max=100"`
	City        string  `json:"ciudad" validate:"required,city"`
	University  *string `json:"universidad" validate:"omitempty,max=100"`
}

func (p profileRequest) toProfile() registration.Profile {
	return registration.Profile{
		FullName:    p.FullName,
		Email:       p.Email,
		Phone:       p.Phone,
		CareerYear:  p.CareerYear,
		CasesNeeded: p.CasesNeeded,
		City:        p.City,
		University:  p.University,
	}
}

// completeRegistrationRequest leaves the entries to the registrar, which
// reports the specific reason an entry is rejected.
type completeRegistrationRequest struct {
	profileRequest
	Entries []registration.EntryInput `json:"especialidades_horarios"`
}

type basicRegistrationRequest struct {
	profileRequest
	Specialties    []string `json:"especialidades" validate:"required,min=1"`
	AvailableDays  []string `json:"dias_disponibles" validate:"required,min=1"`
	AvailableHours []string `json:"horarios_disponibles" validate:"required,min=1"`
}

// decodeBody reads at most maxBodyBytes of JSON into dst and writes the
// error response itself when it fails.
func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxBodyBytes())
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		a.Error(w, http.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil)
		return false
	}
	a.Error(w, http.StatusBadRequest, "validation_error", "invalid request body", nil)
	return false
}

func (a *API) registerComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRegistrationRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		a.Error(w, http.StatusBadRequest, "validation_error", "validation failed", validationDetails(err))
		return
	}

	res, err := a.registrar.Register(r.Context(), registration.Request{
		Profile: req.toProfile(),
		Entries: req.Entries,
	})
	if err != nil {
		a.registrationError(w, err)
		return
	}

	a.Response(w, http.StatusCreated, map[string]any{
		"message":                    "student registered with specialties and schedule",
		"id":                         res.StudentID,
		"especialidades_registradas": res.AssignedCount,
		"codigo_estudiante":          res.StudentCode,
	})
}

func (a *API) registerBasic(w http.ResponseWriter, r *http.Request) {
	var req basicRegistrationRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		a.Error(w, http.StatusBadRequest, "validation_error", "validation failed", validationDetails(err))
		return
	}

	s, err := a.registrar.RegisterBasic(r.Context(), registration.BasicRequest{
		Profile:        req.toProfile(),
		Specialties:    req.Specialties,
		AvailableDays:  req.AvailableDays,
		AvailableHours: req.AvailableHours,
	})
	if err != nil {
		a.registrationError(w, err)
		return
	}

	a.Response(w, http.StatusCreated, s)
}

var errorClasses = map[error]string{
	registration.ErrValidation:       "validation_error",
	registration.ErrIncompleteEntry:  "incomplete_entry",
	registration.ErrInvalidClinic:    "invalid_clinic",
	registration.ErrInvalidWeekday:   "invalid_weekday",
	registration.ErrScheduleConflict: "schedule_conflict",
	registration.ErrEmailTaken:       "email_taken",
}

// registrationError maps registrar errors to responses: client mistakes
// are 400, a duplicate email hitting the unique constraint is 409 and
// anything else is 500 without internals.
func (a *API) registrationError(w http.ResponseWriter, err error) {
	var details map[string]any
	var regErr *registration.Error
	if errors.As(err, &regErr) {
		details = regErr.Details
	}

	class := registration.Class(err)
	if name, ok := errorClasses[class]; ok {
		a.Error(w, http.StatusBadRequest, name, err.Error(), details)
		return
	}

	if database.IsUniqueViolation(err, database.StudentEmailConstraint) {
		a.Error(w, http.StatusConflict, "email_taken", "email is already registered", nil)
		return
	}

	a.log.WithError(err).Error("registration failed")
	a.Error(w, http.StatusInternalServerError, "persistence_error", "internal server error", nil)
}
