package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const entryColumns = `id, student_id, specialty, clinic, weekday, start_time, end_time, patient_capacity, active, created_at`

// InsertEntry stores e as an active entry and returns it with its new ID.
func (a *Accessor) InsertEntry(ctx context.Context, e Entry, now time.Time) (Entry, error) {
	e.ID = uuid.New()
	e.Active = true
	e.CreatedAt = now

	query := `INSERT INTO schedule_entries (` + entryColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := a.db.ExecContext(ctx, query,
		e.ID, e.StudentID, e.Specialty, e.Clinic, e.Weekday, e.Start, e.End, e.PatientCapacity, e.Active, e.CreatedAt,
	); err != nil {
		return Entry{}, fmt.Errorf("exec context: %w", err)
	}

	return e, nil
}

func (a *Accessor) GetEntries(ctx context.Context, studentID uuid.UUID) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM schedule_entries WHERE student_id = $1 ORDER BY created_at, start_time`
	rows, err := a.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("query context: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.Specialty, &e.Clinic, &e.Weekday,
			&e.Start, &e.End, &e.PatientCapacity, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return entries, nil
}
