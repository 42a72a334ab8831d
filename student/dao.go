package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dental-registration/catalog"

	"github.com/google/uuid"
)

// InsertStudent stores s as an active student without a student code.
func (a *Accessor) InsertStudent(ctx context.Context, s Student, now time.Time) (Student, error) {
	if err := s.Validate(); err != nil {
		return Student{}, err
	}

	s.ID = uuid.New()
	s.Code = nil
	s.Email = catalog.NormalizeEmail(s.Email)
	s.Status = catalog.StatusActive
	s.ActiveCases = 0
	s.CompletedCases = 0
	s.RegisteredAt = now

	query := `INSERT INTO students (id, full_name, career_year, phone, email, university, city, status, cases_needed, active_cases, completed_cases, specialties, available_days, available_hours, registered_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if _, err := a.db.ExecContext(ctx, query,
		s.ID, s.FullName, s.CareerYear, s.Phone, s.Email, s.University, s.City, s.Status,
		s.CasesNeeded, s.ActiveCases, s.CompletedCases,
		s.Specialties, s.AvailableDays, s.AvailableHours, s.RegisteredAt,
	); err != nil {
		return Student{}, fmt.Errorf("exec context: %w", err)
	}

	return s, nil
}

func (a *Accessor) GetStudents(ctx context.Context) ([]Student, error) {
	query := `SELECT id, student_code, full_name, career_year, city, status, registered_at FROM students ORDER BY registered_at DESC`
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query context: %w", err)
	}
	defer rows.Close()

	students := []Student{}
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Code, &s.FullName, &s.CareerYear, &s.City, &s.Status, &s.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return students, nil
}

// GetStudent returns nil, nil when no student has the given id.
func (a *Accessor) GetStudent(ctx context.Context, id uuid.UUID) (*Student, error) {
	var s Student

	query := `SELECT id, student_code, full_name, career_year, phone, email, university, city, status, cases_needed, active_cases, completed_cases, specialties, available_days, available_hours, registered_at FROM students WHERE id = $1`
	row := a.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&s.ID, &s.Code, &s.FullName, &s.CareerYear, &s.Phone, &s.Email, &s.University, &s.City, &s.Status,
		&s.CasesNeeded, &s.ActiveCases, &s.CompletedCases,
		&s.Specialties, &s.AvailableDays, &s.AvailableHours, &s.RegisteredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	return &s, nil
}

// FindByEmail looks a student up by normalized email. It returns nil, nil
// when the address is free.
func (a *Accessor) FindByEmail(ctx context.Context, email string) (*Student, error) {
	var s Student

	query := `SELECT id, full_name, student_code, registered_at FROM students WHERE LOWER(TRIM(email)) = $1`
	row := a.db.QueryRowContext(ctx, query, catalog.NormalizeEmail(email))
	if err := row.Scan(&s.ID, &s.FullName, &s.Code, &s.RegisteredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	return &s, nil
}

func (a *Accessor) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{}

	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&stats.Total); err != nil {
		return Stats{}, fmt.Errorf("count students: %w", err)
	}

	var err error
	stats.ByCity, err = a.countBy(ctx, `SELECT city, COUNT(*) FROM students GROUP BY city ORDER BY city`)
	if err != nil {
		return Stats{}, fmt.Errorf("count by city: %w", err)
	}
	stats.ByCareerYear, err = a.countBy(ctx, `SELECT career_year, COUNT(*) FROM students GROUP BY career_year ORDER BY career_year`)
	if err != nil {
		return Stats{}, fmt.Errorf("count by career year: %w", err)
	}

	return stats, nil
}

func (a *Accessor) countBy(ctx context.Context, query string) ([]CountByValue, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []CountByValue{}
	for rows.Next() {
		var c CountByValue
		if err := rows.Scan(&c.Value, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
