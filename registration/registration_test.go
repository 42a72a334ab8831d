package registration_test

import (
	"context"
	"database/sql"
	"dental-registration/registration"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	clinicChild = "Clínica para el Niño y Adolescente"
	clinicAdult = "Clínica Integral Adulto y Gerontología"

	insertStudentQuery = `INSERT INTO students (id, full_name, career_year, phone, email, university, city, status, cases_needed, active_cases, completed_cases, specialties, available_days, available_hours, registered_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	insertEntryQuery   = `INSERT INTO schedule_entries (id, student_id, specialty, clinic, weekday, start_time, end_time, patient_capacity, active, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
)

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func setupRegistrar(t *testing.T) (*registration.Registrar, sqlmock.Sqlmock, *logtest.Hook) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	r := registration.NewRegistrar(db, logger,
		registration.WithClock(func() time.Time { return now }),
		registration.WithTxTimeout(time.Second),
	)
	return r, dbMock, hook
}

func profile() registration.Profile {
	return registration.Profile{
		FullName:   "Ana Pérez",
		Email:      " Ana.Perez@Example.com",
		CareerYear: "5to",
		City:       "Metropolitana",
	}
}

func entryInput(day, start, end string) registration.EntryInput {
	return registration.EntryInput{
		Specialty: "Endodoncia",
		Clinic:    clinicChild,
		Weekday:   day,
		Start:     start,
		End:       end,
	}
}

func intPtr(i int) *int { return &i }

func expectStudentInsert(dbMock sqlmock.Sqlmock) {
	dbMock.ExpectExec(regexp.QuoteMeta(insertStudentQuery)).
		WithArgs(sqlmock.AnyArg(), "Ana Pérez", "5to", nil, "ana.perez@example.com", nil, "Metropolitana", "activo",
			10, 0, 0, []byte("[]"), []byte("[]"), []byte("[]"), now).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func expectEntryInsert(dbMock sqlmock.Sqlmock, day, start, end string, capacity int) {
	dbMock.ExpectExec(regexp.QuoteMeta(insertEntryQuery)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Endodoncia", clinicChild, day, start, end, capacity, true, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("entries on different weekdays", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)

		dbMock.ExpectBegin()
		expectStudentInsert(dbMock)
		expectEntryInsert(dbMock, "lunes", "08:00", "10:00", 1)
		expectEntryInsert(dbMock, "martes", "09:00", "11:00", 1)
		dbMock.ExpectCommit()

		res, err := r.Register(t.Context(), registration.Request{
			Profile: profile(),
			Entries: []registration.EntryInput{
				entryInput("lunes", "08:00", "10:00"),
				entryInput("martes", "09:00", "11:00"),
			},
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, res.StudentID)
		assert.Equal(t, 2, res.AssignedCount)
		assert.Nil(t, res.StudentCode)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("touching ranges on the same day", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)

		dbMock.ExpectBegin()
		expectStudentInsert(dbMock)
		expectEntryInsert(dbMock, "lunes", "08:00", "10:00", 1)
		expectEntryInsert(dbMock, "lunes", "10:00", "12:00", 1)
		dbMock.ExpectCommit()

		res, err := r.Register(t.Context(), registration.Request{
			Profile: profile(),
			Entries: []registration.EntryInput{
				entryInput("lunes", "08:00", "10:00"),
				entryInput("lunes", "10:00", "12:00"),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, res.AssignedCount)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("weekday is normalized and capacity kept", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)

		in := entryInput(" Miércoles", "14:00", "16:00")
		in.PatientCapacity = intPtr(5)

		dbMock.ExpectBegin()
		expectStudentInsert(dbMock)
		expectEntryInsert(dbMock, "miercoles", "14:00", "16:00", 5)
		dbMock.ExpectCommit()

		_, err := r.Register(t.Context(), registration.Request{Profile: profile(), Entries: []registration.EntryInput{in}})
		require.NoError(t, err)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("overlap on the same day writes nothing", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)

		_, err := r.Register(t.Context(), registration.Request{
			Profile: profile(),
			Entries: []registration.EntryInput{
				entryInput("lunes", "08:00", "10:00"),
				entryInput("lunes", "09:00", "11:00"),
			},
		})
		require.ErrorIs(t, err, registration.ErrScheduleConflict)

		var regErr *registration.Error
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, "lunes 08:00-10:00", regErr.Details["conflicts_with"])
		assert.Equal(t, 1, regErr.Details["index"])

		// no BEGIN, no INSERT
		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("overlap with a different clinic still conflicts", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)

		second := entryInput("viernes", "08:00", "09:00")
		second.Clinic = clinicAdult
		second.Specialty = "Corona"

		_, err := r.Register(t.Context(), registration.Request{
			Profile: profile(),
			Entries: []registration.EntryInput{entryInput("viernes", "07:00", "12:00"), second},
		})
		require.ErrorIs(t, err, registration.ErrScheduleConflict)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("start not before end", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)

		for _, in := range []registration.EntryInput{
			entryInput("jueves", "10:00", "10:00"),
			entryInput("jueves", "11:00", "09:00"),
		} {
			_, err := r.Register(t.Context(), registration.Request{
				Profile: profile(),
				Entries: []registration.EntryInput{entryInput("lunes", "08:00", "09:00"), in},
			})
			require.ErrorIs(t, err, registration.ErrValidation)
		}

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("capacity out of range", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)

		for _, capacity := range []int{0, 6, -1} {
			in := entryInput("lunes", "08:00", "09:00")
			in.PatientCapacity = intPtr(capacity)

			_, err := r.Register(t.Context(), registration.Request{Profile: profile(), Entries: []registration.EntryInput{in}})
			require.ErrorIs(t, err, registration.ErrValidation, "capacity %d", capacity)
		}

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("entry validation order", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)

		incomplete := entryInput("lunes", "08:00", "")
		badClinic := entryInput("lunes", "08:00", "09:00")
		badClinic.Clinic = "Clínica Central"
		badDay := entryInput("domingo", "08:00", "09:00")
		badSpecialty := entryInput("lunes", "08:00", "09:00")
		badSpecialty.Specialty = "Ortodoncia"
		badTime := entryInput("lunes", "8am", "09:00")

		tests := []struct {
			name string
			in   registration.EntryInput
			want error
		}{
			{"missing end", incomplete, registration.ErrIncompleteEntry},
			{"unknown clinic", badClinic, registration.ErrInvalidClinic},
			{"sunday", badDay, registration.ErrInvalidWeekday},
			{"unknown specialty", badSpecialty, registration.ErrValidation},
			{"malformed time", badTime, registration.ErrValidation},
		}
		for _, tt := range tests {
			_, err := r.Register(t.Context(), registration.Request{Profile: profile(), Entries: []registration.EntryInput{tt.in}})
			require.ErrorIs(t, err, tt.want, tt.name)
			assert.Equal(t, tt.want, registration.Class(err), tt.name)
		}

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("incomplete entry echoes payload", func(t *testing.T) {
		t.Parallel()
		r, _, _ := setupRegistrar(t)

		in := registration.EntryInput{Specialty: "Corona", Clinic: clinicChild}
		_, err := r.Register(t.Context(), registration.Request{Profile: profile(), Entries: []registration.EntryInput{in}})

		var regErr *registration.Error
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, in, regErr.Details["entry"])
	})

	t.Run("missing profile fields and empty batch", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)

		p := profile()
		p.CareerYear = ""
		_, err := r.Register(t.Context(), registration.Request{Profile: p, Entries: []registration.EntryInput{entryInput("lunes", "08:00", "09:00")}})
		require.ErrorIs(t, err, registration.ErrValidation)

		_, err = r.Register(t.Context(), registration.Request{Profile: profile()})
		require.ErrorIs(t, err, registration.ErrValidation)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("career year and city outside the catalog", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)
		entries := []registration.EntryInput{entryInput("lunes", "08:00", "09:00")}

		p := profile()
		p.CareerYear = "3ro"
		_, err := r.Register(t.Context(), registration.Request{Profile: p, Entries: entries})
		require.ErrorIs(t, err, registration.ErrValidation)
		require.NotErrorIs(t, err, registration.ErrPersistence)
		var regErr *registration.Error
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, "anio_carrera", regErr.Details["field"])

		p = profile()
		p.City = "Antofagasta"
		_, err = r.Register(t.Context(), registration.Request{Profile: p, Entries: entries})
		require.ErrorIs(t, err, registration.ErrValidation)
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, "ciudad", regErr.Details["field"])

		p = profile()
		p.City = ""
		_, err = r.Register(t.Context(), registration.Request{Profile: p, Entries: entries})
		require.ErrorIs(t, err, registration.ErrValidation)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("entry insert failure rolls back", func(t *testing.T) {
		t.Parallel()
		r, dbMock, hook := setupRegistrar(t)

		driverErr := errors.New("connection reset by peer")

		dbMock.ExpectBegin()
		expectStudentInsert(dbMock)
		expectEntryInsert(dbMock, "lunes", "08:00", "10:00", 1)
		dbMock.ExpectExec(regexp.QuoteMeta(insertEntryQuery)).WillReturnError(driverErr)
		dbMock.ExpectRollback()

		_, err := r.Register(t.Context(), registration.Request{
			Profile: profile(),
			Entries: []registration.EntryInput{
				entryInput("lunes", "08:00", "10:00"),
				entryInput("martes", "08:00", "10:00"),
			},
		})
		require.ErrorIs(t, err, registration.ErrPersistence)
		require.ErrorIs(t, err, driverErr)

		require.NoError(t, dbMock.ExpectationsWereMet())
		for _, entry := range hook.AllEntries() {
			assert.NotEqual(t, "rollback failed", entry.Message)
		}
	})

	t.Run("rollback failure does not mask the cause", func(t *testing.T) {
		t.Parallel()
		r, dbMock, hook := setupRegistrar(t)

		insertErr := errors.New("duplicate key value")

		dbMock.ExpectBegin()
		dbMock.ExpectExec(regexp.QuoteMeta(insertStudentQuery)).WillReturnError(insertErr)
		dbMock.ExpectRollback().WillReturnError(errors.New("bad connection"))

		_, err := r.Register(t.Context(), registration.Request{
			Profile: profile(),
			Entries: []registration.EntryInput{entryInput("lunes", "08:00", "10:00")},
		})
		require.ErrorIs(t, err, insertErr)
		require.ErrorIs(t, err, registration.ErrPersistence)

		require.NoError(t, dbMock.ExpectationsWereMet())

		var logged bool
		for _, entry := range hook.AllEntries() {
			if entry.Message == "rollback failed" {
				logged = true
				assert.Equal(t, logrus.ErrorLevel, entry.Level)
			}
		}
		assert.True(t, logged)
	})

	t.Run("begin and commit failures", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)

		req := registration.Request{Profile: profile(), Entries: []registration.EntryInput{entryInput("sabado", "09:00", "13:00")}}

		dbMock.ExpectBegin().WillReturnError(sql.ErrConnDone)
		_, err := r.Register(t.Context(), req)
		require.ErrorIs(t, err, registration.ErrPersistence)

		dbMock.ExpectBegin()
		expectStudentInsert(dbMock)
		expectEntryInsert(dbMock, "sabado", "09:00", "13:00", 1)
		dbMock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
		_, err = r.Register(t.Context(), req)
		require.ErrorIs(t, err, registration.ErrPersistence)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("cancelled request still resolves the transaction", func(t *testing.T) {
		t.Parallel()
		r, dbMock, _ := setupRegistrar(t)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		dbMock.ExpectBegin()
		expectStudentInsert(dbMock)
		expectEntryInsert(dbMock, "lunes", "08:00", "10:00", 1)
		dbMock.ExpectCommit()

		res, err := r.Register(ctx, registration.Request{
			Profile: profile(),
			Entries: []registration.EntryInput{entryInput("lunes", "08:00", "10:00")},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.AssignedCount)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})
}
