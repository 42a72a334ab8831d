package api

import (
	"net/http"
	"time"
)

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if err := a.db.PingContext(r.Context()); err != nil {
		a.log.WithError(err).Error("health check: database unreachable")
		a.Error(w, http.StatusServiceUnavailable, "unavailable", "database unreachable", nil)
		return
	}
	a.Response(w, http.StatusOK, map[string]any{
		"message":   "OK",
		"timestamp": a.now().UTC().Format(time.RFC3339),
		"uptime":    int(a.now().Sub(a.started).Seconds()),
	})
}

func (a *API) info(w http.ResponseWriter, _ *http.Request) {
	a.Response(w, http.StatusOK, map[string]any{
		"name":    "dental student registration",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"GET /health":                                  "service and database status",
			"GET /api/estudiantes":                         "list registered students",
			"GET /api/estudiantes/{id}":                    "student with schedule entries",
			"POST /api/estudiantes":                        "basic registration",
			"POST /api/estudiantes/registro-completo":      "registration with specialties and schedule",
			"GET /api/estudiantes/verificar-email/{email}": "email availability",
			"GET /api/estudiantes/estadisticas":            "registration statistics",
		},
		"note": "student codes are assigned later by the matching service",
	})
}
