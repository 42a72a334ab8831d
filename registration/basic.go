package registration

import (
	"context"
	"strings"

	"dental-registration/catalog"
	"dental-registration/database"
	"dental-registration/student"

	"github.com/sirupsen/logrus"
)

// BasicRequest is the single-form registration: preferred specialties,
// days and shifts as plain lists, without concrete time slots.
type BasicRequest struct {
	Profile        Profile
	Specialties    []string
	AvailableDays  []string
	AvailableHours []string
}

// RegisterBasic stores a student from the basic form. Unlike Register it
// refuses an email that is already registered.
func (r *Registrar) RegisterBasic(ctx context.Context, req BasicRequest) (student.Student, error) {
	p := req.Profile
	if err := validateProfile(p); err != nil {
		return student.Student{}, err
	}

	for _, list := range []struct {
		name   string
		values []string
		set    catalog.Set
	}{
		{"especialidades", req.Specialties, catalog.Specialties},
		{"dias_disponibles", req.AvailableDays, catalog.AvailableDays},
		{"horarios_disponibles", req.AvailableHours, catalog.AvailableHours},
	} {
		if len(list.values) == 0 {
			return student.Student{}, newError(ErrValidation, map[string]any{"field": list.name},
				"%s must contain at least one value", list.name)
		}
		var invalid []string
		for _, v := range list.values {
			if !list.set.Contains(v) {
				invalid = append(invalid, v)
			}
		}
		if len(invalid) > 0 {
			return student.Student{}, newError(ErrValidation, map[string]any{"field": list.name, "invalid": invalid},
				"invalid %s: %s", list.name, strings.Join(invalid, ", "))
		}
	}

	email := catalog.NormalizeEmail(p.Email)

	existing, err := r.emails.FindByEmail(ctx, email)
	if err != nil {
		return student.Student{}, persistenceError("check email", err)
	}
	if existing != nil {
		r.log.WithFields(logrus.Fields{
			"email":       email,
			"existing_id": existing.ID,
		}).Info("email already registered")
		return student.Student{}, newError(ErrEmailTaken, map[string]any{
			"id":              existing.ID,
			"nombre_completo": existing.FullName,
		}, "email is already registered")
	}

	casesNeeded := catalog.DefaultCasesNeeded
	if p.CasesNeeded != nil {
		casesNeeded = *p.CasesNeeded
	}

	created, err := student.NewAccessor(r.db).InsertStudent(ctx, student.Student{
		FullName:       strings.TrimSpace(p.FullName),
		Email:          email,
		Phone:          p.Phone,
		CareerYear:     strings.TrimSpace(p.CareerYear),
		City:           catalog.Canonical(p.City),
		University:     p.University,
		CasesNeeded:    casesNeeded,
		Specialties:    req.Specialties,
		AvailableDays:  req.AvailableDays,
		AvailableHours: req.AvailableHours,
	}, r.now())
	if err != nil {
		if database.IsUniqueViolation(err, database.StudentEmailConstraint) {
			return student.Student{}, newError(ErrEmailTaken, nil, "email is already registered")
		}
		return student.Student{}, persistenceError("insert student", err)
	}

	r.log.WithFields(logrus.Fields{
		"student_id": created.ID,
		"email":      created.Email,
		"city":       created.City,
	}).Info("student registered")

	return created, nil
}
