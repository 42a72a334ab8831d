package student

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StringList is stored as a JSON array column.
type StringList []string

// Value implements driver.Valuer for INSERT/UPDATE.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for SELECT.
func (l *StringList) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("not a []byte: %T", value)
	}
}

type Student struct {
	ID uuid.UUID `json:"id"`
	// Code is assigned later by the matching service. It is never set here.
	Code           *string    `json:"codigo_estudiante"`
	FullName       string     `json:"nombre_completo"`
	CareerYear     string     `json:"anio_carrera"`
	Phone          *string    `json:"telefono,omitempty"`
	Email          string     `json:"email,omitempty"`
	University     *string    `json:"universidad,omitempty"`
	City           string     `json:"ciudad"`
	Status         string     `json:"estado"`
	CasesNeeded    int        `json:"casos_necesarios"`
	ActiveCases    int        `json:"casos_activos"`
	CompletedCases int        `json:"casos_completados"`
	Specialties    StringList `json:"especialidades,omitempty"`
	AvailableDays  StringList `json:"dias_disponibles,omitempty"`
	AvailableHours StringList `json:"horarios_disponibles,omitempty"`
	RegisteredAt   time.Time  `json:"fecha_registro"`
}

func (s *Student) Validate() error {
	if s.FullName == "" {
		return errors.New("full name is required")
	}
	if s.Email == "" {
		return errors.New("email is required")
	}
	if s.CareerYear == "" {
		return errors.New("career year is required")
	}
	return nil
}

type CountByValue struct {
	Value string `json:"valor"`
	Count int    `json:"cantidad"`
}

type Stats struct {
	Total        int            `json:"total_estudiantes"`
	ByCity       []CountByValue `json:"por_ciudad"`
	ByCareerYear []CountByValue `json:"por_anio"`
}
