package schedule

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Entry is one availability slot a student offers: a specialty practised
// at a clinic on a weekday between Start and End.
type Entry struct {
	ID              uuid.UUID `json:"id"`
	StudentID       uuid.UUID `json:"id_estudiante"`
	Specialty       string    `json:"especialidad"`
	Clinic          string    `json:"clinica"`
	Weekday         string    `json:"dia_semana"`
	Start           Clock     `json:"hora_inicio"`
	End             Clock     `json:"hora_fin"`
	PatientCapacity int       `json:"capacidad_pacientes"`
	Active          bool      `json:"activo"`
	CreatedAt       time.Time `json:"fecha_creacion"`
}

// Range returns the weekday and time span of e.
func (e Entry) Range() Candidate {
	return Candidate{Weekday: e.Weekday, Start: e.Start, End: e.End}
}

// Candidate is a proposed [Start, End) span on a weekday.
type Candidate struct {
	Weekday string
	Start   Clock
	End     Clock
}

func (c Candidate) Validate() error {
	if c.Weekday == "" {
		return errors.New("weekday is required")
	}
	if c.Start >= c.End {
		return errors.New("start time must be before end time")
	}
	return nil
}

func (c Candidate) String() string {
	return c.Weekday + " " + c.Start.String() + "-" + c.End.String()
}
