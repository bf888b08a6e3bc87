package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-logbook/internal/models"
	"github.com/ukydev/vehicle-logbook/internal/store"
	"github.com/ukydev/vehicle-logbook/internal/validation"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// decodeRequest reads a JSON body into v and validates it.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	if err := validation.Struct(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrVehicleNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrVehicleExists), errors.Is(err, store.ErrMileageDecrease):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrInvalidDate),
		errors.Is(err, models.ErrNegativeMileage),
		errors.Is(err, models.ErrNegativeCost),
		errors.Is(err, models.ErrEmptyPlate):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.WithError(err).Error("Unhandled error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
