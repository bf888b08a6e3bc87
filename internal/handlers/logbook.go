package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/vehicle-logbook/internal/models"
	"github.com/ukydev/vehicle-logbook/internal/store"
)

// VehicleStore is the registry the handlers operate on.
type VehicleStore interface {
	Create(ctx context.Context, licensePlate string, initialMileage int) (models.VehicleSnapshot, error)
	Get(plate string) (models.VehicleSnapshot, error)
	List() []models.VehicleSnapshot
	Alerts(plate string) ([]models.Alert, error)
	Records(plate string) ([]models.MaintenanceRecord, error)
	AddRecord(ctx context.Context, plate string, record models.MaintenanceRecord) (models.VehicleSnapshot, error)
	UpdateMileage(ctx context.Context, plate string, mileage int) (models.VehicleSnapshot, error)
}

// LogbookHandler serves vehicles, their maintenance history and alerts
type LogbookHandler struct {
	store VehicleStore
	now   func() time.Time
}

// NewLogbookHandler creates a new logbook handler
func NewLogbookHandler(store VehicleStore) *LogbookHandler {
	return &LogbookHandler{store: store, now: time.Now}
}

// AlertsResponse lists the structured alerts of a vehicle
type AlertsResponse struct {
	LicensePlate string         `json:"license_plate"`
	Alerts       []models.Alert `json:"alerts"`
}

// CostsResponse is the monthly cost breakdown of a vehicle
type CostsResponse struct {
	LicensePlate string               `json:"license_plate"`
	TotalCost    float64              `json:"total_cost"`
	Months       []models.MonthlyCost `json:"months"`
}

// ListVehicles returns every vehicle snapshot
func (h *LogbookHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.List())
}

// CreateVehicle registers a vehicle
func (h *LogbookHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVehicleRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	snap, err := h.store.Create(r.Context(), req.LicensePlate, req.InitialMileage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// GetVehicle returns one vehicle snapshot
func (h *LogbookHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Get(chi.URLParam(r, "plate"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetAlerts returns the structured alerts of one vehicle
func (h *LogbookHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	plate := store.NormalizePlate(chi.URLParam(r, "plate"))
	alerts, err := h.store.Alerts(plate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AlertsResponse{LicensePlate: plate, Alerts: alerts})
}

// GetCosts returns maintenance costs grouped by month
func (h *LogbookHandler) GetCosts(w http.ResponseWriter, r *http.Request) {
	plate := store.NormalizePlate(chi.URLParam(r, "plate"))
	records, err := h.store.Records(plate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CostsResponse{
		LicensePlate: plate,
		TotalCost:    models.TotalCost(records),
		Months:       models.MonthlyCosts(records),
	})
}

// ExportLogbook sends the vehicle snapshot as a downloadable document
func (h *LogbookHandler) ExportLogbook(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Get(chi.URLParam(r, "plate"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", ReportFilename(snap.LicensePlate, h.now())+".json"))
	writeJSON(w, http.StatusOK, snap)
}

// AddRecord attaches a maintenance record to a vehicle
func (h *LogbookHandler) AddRecord(w http.ResponseWriter, r *http.Request) {
	var req models.MaintenanceRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	record, err := req.Record()
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := h.store.AddRecord(r.Context(), chi.URLParam(r, "plate"), record)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// UpdateMileage moves a vehicle's odometer forward
func (h *LogbookHandler) UpdateMileage(w http.ResponseWriter, r *http.Request) {
	var req models.MileageRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	snap, err := h.store.UpdateMileage(r.Context(), chi.URLParam(r, "plate"), req.Mileage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ReportFilename names an exported logbook, e.g. Logbook_12-AA-34_20251115.
func ReportFilename(licensePlate string, at time.Time) string {
	return fmt.Sprintf("Logbook_%s_%s", licensePlate, at.Format("20060102"))
}
