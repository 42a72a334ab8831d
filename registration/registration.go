// Package registration turns a student profile plus a batch of schedule
// entries into persisted rows. A batch is stored completely or not at all.
package registration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dental-registration/catalog"
	"dental-registration/schedule"
	"dental-registration/student"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultTxTimeout = 10 * time.Second

type Profile struct {
	FullName    string
	Email       string
	Phone       *string
	CareerYear  string
	CasesNeeded *int
	City        string
	University  *string
}

// EntryInput is one requested schedule slot as received from the client.
type EntryInput struct {
	Specialty       string `json:"especialidad"`
	Clinic          string `json:"clinica"`
	Weekday         string `json:"dia_semana"`
	Start           string `json:"hora_inicio"`
	End             string `json:"hora_fin"`
	PatientCapacity *int   `json:"capacidad_pacientes,omitempty"`
}

type Request struct {
	Profile Profile
	Entries []EntryInput
}

type Result struct {
	StudentID     uuid.UUID
	AssignedCount int
	// StudentCode is always nil; codes come from the matching service.
	StudentCode *string
}

// EmailLookup finds the student registered under an email, if any.
type EmailLookup interface {
	FindByEmail(ctx context.Context, email string) (*student.Student, error)
}

type Registrar struct {
	db        *sql.DB
	emails    EmailLookup
	log       logrus.FieldLogger
	txTimeout time.Duration
	now       func() time.Time
}

type Option func(*Registrar)

// WithTxTimeout bounds how long a registration transaction may stay open.
func WithTxTimeout(d time.Duration) Option {
	return func(r *Registrar) {
		if d > 0 {
			r.txTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registrar) { r.now = now }
}

func WithEmailLookup(l EmailLookup) Option {
	return func(r *Registrar) { r.emails = l }
}

func NewRegistrar(db *sql.DB, log logrus.FieldLogger, opts ...Option) *Registrar {
	r := &Registrar{
		db:        db,
		emails:    student.NewAccessor(db),
		log:       log,
		txTimeout: defaultTxTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates every entry, checks the batch for overlapping slots
// and then stores the student and all entries in one transaction. The
// first failure aborts the whole batch.
func (r *Registrar) Register(ctx context.Context, req Request) (Result, error) {
	p := req.Profile
	if err := validateProfile(p); err != nil {
		return Result{}, err
	}
	if len(req.Entries) == 0 {
		return Result{}, newError(ErrValidation, nil, "at least one specialty with its schedule is required")
	}

	entries, err := prepareEntries(req.Entries)
	if err != nil {
		return Result{}, err
	}

	casesNeeded := catalog.DefaultCasesNeeded
	if p.CasesNeeded != nil {
		casesNeeded = *p.CasesNeeded
	}

	s := student.Student{
		FullName:    strings.TrimSpace(p.FullName),
		Email:       catalog.NormalizeEmail(p.Email),
		Phone:       p.Phone,
		CareerYear:  strings.TrimSpace(p.CareerYear),
		City:        catalog.Canonical(p.City),
		University:  p.University,
		CasesNeeded: casesNeeded,
	}

	studentID, err := r.persist(ctx, s, entries)
	if err != nil {
		r.log.WithError(err).WithField("email", s.Email).Warn("complete registration rolled back")
		return Result{}, err
	}

	r.log.WithFields(logrus.Fields{
		"student_id": studentID,
		"email":      s.Email,
		"entries":    len(entries),
	}).Info("student registered with schedule")

	return Result{StudentID: studentID, AssignedCount: len(entries)}, nil
}

// validateProfile checks the fields every registration path needs. Career
// year and city must come from their catalogs.
func validateProfile(p Profile) error {
	if strings.TrimSpace(p.FullName) == "" || strings.TrimSpace(p.Email) == "" || strings.TrimSpace(p.CareerYear) == "" {
		return newError(ErrValidation, nil, "full name, email and career year are required")
	}
	if !catalog.CareerYears.Contains(strings.TrimSpace(p.CareerYear)) {
		return newError(ErrValidation, map[string]any{"field": "anio_carrera"},
			"invalid career year %q, must be one of %s", p.CareerYear, catalog.CareerYears)
	}
	if !catalog.Cities.Contains(catalog.Canonical(p.City)) {
		return newError(ErrValidation, map[string]any{"field": "ciudad"},
			"invalid city %q, must be one of %s", p.City, catalog.Cities)
	}
	return nil
}

// prepareEntries validates the inputs in order and rejects any entry that
// overlaps one accepted before it for the same weekday.
func prepareEntries(inputs []EntryInput) ([]schedule.Entry, error) {
	accepted := make([]schedule.Entry, 0, len(inputs))
	for i, in := range inputs {
		e, err := toEntry(i, in)
		if err != nil {
			return nil, err
		}

		if c, found := schedule.FindConflict(accepted, e.Range()); found {
			return nil, newError(ErrScheduleConflict, map[string]any{
				"index":          i,
				"entry":          in,
				"conflicts_with": c.Range().String(),
			}, "schedule conflict: %s overlaps %s", e.Range(), c.Range())
		}

		accepted = append(accepted, e)
	}
	return accepted, nil
}

func toEntry(i int, in EntryInput) (schedule.Entry, error) {
	details := map[string]any{"index": i, "entry": in}

	specialty := catalog.Canonical(in.Specialty)
	clinic := catalog.Canonical(in.Clinic)
	if specialty == "" || clinic == "" || strings.TrimSpace(in.Weekday) == "" ||
		strings.TrimSpace(in.Start) == "" || strings.TrimSpace(in.End) == "" {
		return schedule.Entry{}, newError(ErrIncompleteEntry, details, "incomplete data for schedule entry %d", i+1)
	}

	if !catalog.Clinics.Contains(clinic) {
		return schedule.Entry{}, newError(ErrInvalidClinic, details, "invalid clinic: %s", clinic)
	}

	day := catalog.NormalizeWeekday(in.Weekday)
	if !catalog.Weekdays.Contains(day) {
		return schedule.Entry{}, newError(ErrInvalidWeekday, details, "invalid weekday: %s", in.Weekday)
	}

	if !catalog.Specialties.Contains(specialty) {
		return schedule.Entry{}, newError(ErrValidation, details, "invalid specialty: %s", specialty)
	}

	start, err := schedule.ParseClock(strings.TrimSpace(in.Start))
	if err != nil {
		return schedule.Entry{}, newError(ErrValidation, details, "invalid start time %q", in.Start)
	}
	end, err := schedule.ParseClock(strings.TrimSpace(in.End))
	if err != nil {
		return schedule.Entry{}, newError(ErrValidation, details, "invalid end time %q", in.End)
	}
	span := schedule.Candidate{Weekday: day, Start: start, End: end}
	if err := span.Validate(); err != nil {
		return schedule.Entry{}, newError(ErrValidation, details, "schedule entry %d: %v", i+1, err)
	}

	capacity := catalog.DefaultPatientCapacity
	if in.PatientCapacity != nil {
		capacity = *in.PatientCapacity
	}
	if capacity < catalog.MinPatientCapacity || capacity > catalog.MaxPatientCapacity {
		return schedule.Entry{}, newError(ErrValidation, details, "patient capacity must be between %d and %d, got %d",
			catalog.MinPatientCapacity, catalog.MaxPatientCapacity, capacity)
	}

	return schedule.Entry{
		Specialty:       specialty,
		Clinic:          clinic,
		Weekday:         day,
		Start:           start,
		End:             end,
		PatientCapacity: capacity,
		Active:          true,
	}, nil
}

// persist runs detached from the request context so a client disconnect
// cannot leave the transaction half-applied; the timeout still bounds it.
func (r *Registrar) persist(ctx context.Context, s student.Student, entries []schedule.Entry) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.txTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return uuid.Nil, persistenceError("begin transaction", err)
	}

	now := r.now()

	created, err := student.NewAccessor(tx).InsertStudent(ctx, s, now)
	if err != nil {
		return uuid.Nil, r.rollback(tx, persistenceError("insert student", err))
	}

	entryAccessor := schedule.NewAccessor(tx)
	for i := range entries {
		entries[i].StudentID = created.ID
		if _, err := entryAccessor.InsertEntry(ctx, entries[i], now); err != nil {
			return uuid.Nil, r.rollback(tx, persistenceError(fmt.Sprintf("insert schedule entry %d", i+1), err))
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, persistenceError("commit", err)
	}

	return created.ID, nil
}

// rollback undoes tx and returns cause. A failed rollback is logged only.
func (r *Registrar) rollback(tx *sql.Tx, cause error) error {
	if err := tx.Rollback(); err != nil {
		r.log.WithError(err).WithField("cause", cause.Error()).Error("rollback failed")
	}
	return cause
}
