package api

import (
	"dental-registration/schedule"
	"dental-registration/student"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type getStudentsResponse struct {
	Students []student.Student `json:"estudiantes"`
	Total    int               `json:"total"`
}

func (a *API) getStudents(w http.ResponseWriter, r *http.Request) {
	students, err := student.NewAccessor(a.db).GetStudents(r.Context())
	if err != nil {
		a.internalError(w, err, "get students")
		return
	}
	a.Response(w, http.StatusOK, getStudentsResponse{
		Students: students,
		Total:    len(students),
	})
}

type getStudentResponse struct {
	Student  *student.Student `json:"estudiante"`
	Schedule []schedule.Entry `json:"especialidades_horarios"`
}

func (a *API) getStudent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		a.Error(w, http.StatusBadRequest, "validation_error", "student ID is required", nil)
		return
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		a.Error(w, http.StatusBadRequest, "validation_error", "invalid student ID", nil)
		return
	}

	s, err := student.NewAccessor(a.db).GetStudent(r.Context(), parsedID)
	if err != nil {
		a.internalError(w, err, "get student")
		return
	}
	if s == nil {
		a.Error(w, http.StatusNotFound, "not_found", "student not found", nil)
		return
	}

	entries, err := schedule.NewAccessor(a.db).GetEntries(r.Context(), parsedID)
	if err != nil {
		a.internalError(w, err, "get schedule entries")
		return
	}

	a.Response(w, http.StatusOK, getStudentResponse{Student: s, Schedule: entries})
}

func (a *API) checkEmail(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	if !strings.Contains(email, "@") {
		a.Error(w, http.StatusBadRequest, "validation_error", "invalid email", nil)
		return
	}

	existing, err := student.NewAccessor(a.db).FindByEmail(r.Context(), email)
	if err != nil {
		a.internalError(w, err, "check email")
		return
	}

	available := existing == nil
	message := "email available"
	if !available {
		message = "email already registered"
	}
	a.Response(w, http.StatusOK, map[string]any{
		"disponible": available,
		"message":    message,
		"timestamp":  a.now().UTC().Format(time.RFC3339),
	})
}

func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := student.NewAccessor(a.db).GetStats(r.Context())
	if err != nil {
		a.internalError(w, err, "get stats")
		return
	}
	a.Response(w, http.StatusOK, stats)
}

func (a *API) internalError(w http.ResponseWriter, err error, op string) {
	a.log.WithError(err).WithField("op", op).Error("request failed")
	a.Error(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
}
