package handlers

import (
	"net/http"

	"github.com/Dosada05/roster-system/db"
)

// PoolStatus is implemented by *db.Pool.
type PoolStatus interface {
	Status() db.Status
}

type SystemHandler struct {
	pool        PoolStatus
	environment string
}

func NewSystemHandler(pool PoolStatus, environment string) *SystemHandler {
	return &SystemHandler{pool: pool, environment: environment}
}

func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	response := jsonResponse{
		"message":     "API Players - Online",
		"status":      "OK",
		"environment": h.environment,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Health reports the pool state without forcing a connection attempt.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.pool.Status()

	code := http.StatusOK
	overall := "OK"
	if status.State == db.StateFailed {
		code = http.StatusServiceUnavailable
		overall = "DEGRADED"
	}

	response := jsonResponse{
		"status":   overall,
		"database": status,
	}
	if err := writeJSON(w, code, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
