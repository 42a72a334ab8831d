// Package catalog holds the closed value sets accepted by the registration
// form. Validators reference these sets instead of repeating literals.
package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Set is an ordered, immutable list of accepted values.
type Set struct {
	values []string
	index  map[string]struct{}
}

func newSet(values ...string) Set {
	index := make(map[string]struct{}, len(values))
	for _, v := range values {
		index[norm.NFC.String(v)] = struct{}{}
	}
	return Set{values: values, index: index}
}

// Contains reports whether v is a member. Comparison is exact after NFC
// normalization so precomposed and decomposed accents match.
func (s Set) Contains(v string) bool {
	_, ok := s.index[norm.NFC.String(v)]
	return ok
}

// Values returns a copy of the members in declaration order.
func (s Set) Values() []string {
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}

func (s Set) String() string {
	return strings.Join(s.values, ", ")
}

const (
	ClinicChildAdolescent = "Clínica para el Niño y Adolescente"
	ClinicAdultGeriatric  = "Clínica Integral Adulto y Gerontología"
)

const (
	YearFourth = "4to"
	YearFifth  = "5to"
)

const (
	StatusActive   = "activo"
	StatusInactive = "inactivo"
)

// DefaultCasesNeeded is used when a registration does not state how many
// clinical cases the student still needs.
const DefaultCasesNeeded = 10

const (
	DefaultPatientCapacity = 1
	MinPatientCapacity     = 1
	MaxPatientCapacity     = 5
)

var (
	Clinics = newSet(ClinicChildAdolescent, ClinicAdultGeriatric)

	// Weekdays are stored lowercase without accents.
	Weekdays = newSet("lunes", "martes", "miercoles", "jueves", "viernes", "sabado")

	Specialties = newSet(
		"Endodoncia",
		"Resina Simple",
		"Resina Compuesta",
		"Corona",
		"Exodoncia Simple",
		"Incrustación",
		"Prótesis",
		"Destartraje",
		"Pulido Radicular",
	)

	Cities = newSet("Metropolitana", "Valparaíso", "Concepción", "Otros")

	CareerYears = newSet(YearFourth, YearFifth)

	// AvailableDays and AvailableHours are the labels used by the basic
	// registration form.
	AvailableDays  = newSet("Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado")
	AvailableHours = newSet("Manana", "Tarde")
)

// NormalizeWeekday lowercases and trims v and strips diacritics, so
// "Miércoles" becomes "miercoles".
func NormalizeWeekday(v string) string {
	lower := strings.ToLower(strings.TrimSpace(v))
	// Chained transformers keep state, so each call builds its own.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, lower)
	if err != nil {
		return lower
	}
	return folded
}

// Canonical trims v and returns it in NFC, the form catalog values are
// stored in.
func Canonical(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}

// NormalizeEmail lowercases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
