package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrEmptyPlate = errors.New("license plate is required")

// Vehicle holds one vehicle's odometer reading, its maintenance history and
// the alerts derived from both.
//
// Records are kept sorted by date, most recent first. Alerts are rebuilt from
// scratch after every mutation. A Vehicle performs no locking; callers
// sharing one across goroutines must serialize access.
type Vehicle struct {
	LicensePlate string

	currentMileage int
	records        []MaintenanceRecord
	alerts         []Alert
	nextSeq        uint64
	now            func() time.Time
}

// VehicleOption configures a Vehicle.
type VehicleOption func(*Vehicle)

// WithClock sets the wall clock used to date inspection alerts.
func WithClock(now func() time.Time) VehicleOption {
	return func(v *Vehicle) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVehicle creates a vehicle with an empty history.
func NewVehicle(licensePlate string, initialMileage int, opts ...VehicleOption) (*Vehicle, error) {
	licensePlate = strings.TrimSpace(licensePlate)
	if licensePlate == "" {
		return nil, ErrEmptyPlate
	}
	if initialMileage < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeMileage, initialMileage)
	}
	v := &Vehicle{
		LicensePlate:   licensePlate,
		currentMileage: initialMileage,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// CurrentMileage returns the odometer reading in kilometers.
func (v *Vehicle) CurrentMileage() int {
	return v.currentMileage
}

// Records returns a copy of the history, most recent first.
func (v *Vehicle) Records() []MaintenanceRecord {
	out := make([]MaintenanceRecord, len(v.records))
	copy(out, v.records)
	return out
}

// UpdateMileage moves the odometer forward. A reading lower than the current
// one is rejected without mutation and reported by returning false.
func (v *Vehicle) UpdateMileage(newMileage int) bool {
	if newMileage < v.currentMileage {
		return false
	}
	v.currentMileage = newMileage
	v.CheckAlerts()
	return true
}

// AddRecord appends a record to the history, keeps it sorted and moves the
// odometer to the record's mileage when that is not a step backwards.
// The record is stored even when the mileage update is rejected.
func (v *Vehicle) AddRecord(record MaintenanceRecord) {
	v.nextSeq++
	record.seq = v.nextSeq
	v.records = append(v.records, record)
	sort.SliceStable(v.records, func(i, j int) bool {
		return v.records[i].newerThan(v.records[j])
	})

	if !v.UpdateMileage(record.Mileage) {
		v.CheckAlerts()
	}
}

// FindMostRecentByCategory returns the latest record whose description
// contains keyword, ignoring case.
func (v *Vehicle) FindMostRecentByCategory(keyword string) (MaintenanceRecord, bool) {
	return v.findMostRecent(keyword)
}

// findMostRecent scans the whole history; it does not rely on sort order.
func (v *Vehicle) findMostRecent(keywords ...string) (MaintenanceRecord, bool) {
	return mostRecentMatching(v.records, keywords...)
}

func mostRecentMatching(records []MaintenanceRecord, keywords ...string) (MaintenanceRecord, bool) {
	var (
		best  MaintenanceRecord
		found bool
	)
	for _, r := range records {
		if !matchesAny(r, keywords) {
			continue
		}
		if !found || r.newerThan(best) {
			best = r
			found = true
		}
	}
	return best, found
}

func matchesAny(r MaintenanceRecord, keywords []string) bool {
	for _, k := range keywords {
		if r.Matches(k) {
			return true
		}
	}
	return false
}

// CheckAlerts re-evaluates every alert rule against the current history and
// mileage, replacing the previous alert set.
func (v *Vehicle) CheckAlerts() {
	v.alerts = EvaluateAlerts(v.records, v.currentMileage, v.now())
}

// Alerts returns the active alert messages keyed by category name.
// A missing category means no alert.
func (v *Vehicle) Alerts() map[string]string {
	out := make(map[string]string, len(v.alerts))
	for _, a := range v.alerts {
		out[string(a.Category)] = a.Message
	}
	return out
}

// AlertDetails returns the structured alerts behind Alerts.
func (v *Vehicle) AlertDetails() []Alert {
	out := make([]Alert, len(v.alerts))
	copy(out, v.alerts)
	return out
}

// VehicleSnapshot is the plain data handed to presentation and report layers.
type VehicleSnapshot struct {
	LicensePlate   string            `json:"license_plate" bson:"license_plate"`
	CurrentMileage int               `json:"current_mileage" bson:"current_mileage"`
	Records        []RecordSnapshot  `json:"records" bson:"records"`
	Alerts         map[string]string `json:"alerts" bson:"alerts"`
	TotalCost      float64           `json:"total_cost" bson:"total_cost"`
	UpdatedAt      time.Time         `json:"updated_at" bson:"updated_at"`
}

// Snapshot copies the vehicle state into a VehicleSnapshot.
func (v *Vehicle) Snapshot() VehicleSnapshot {
	records := make([]RecordSnapshot, 0, len(v.records))
	for _, r := range v.records {
		records = append(records, r.Snapshot())
	}
	return VehicleSnapshot{
		LicensePlate:   v.LicensePlate,
		CurrentMileage: v.currentMileage,
		Records:        records,
		Alerts:         v.Alerts(),
		TotalCost:      TotalCost(v.records),
		UpdatedAt:      v.now(),
	}
}

// RestoreVehicle rebuilds a vehicle from a snapshot by replaying its records
// oldest first, so insertion order on equal dates is preserved.
func RestoreVehicle(s VehicleSnapshot, opts ...VehicleOption) (*Vehicle, error) {
	v, err := NewVehicle(s.LicensePlate, s.CurrentMileage, opts...)
	if err != nil {
		return nil, err
	}
	for i := len(s.Records) - 1; i >= 0; i-- {
		rs := s.Records[i]
		record, err := NewMaintenanceRecord(rs.Description, rs.Date, rs.Mileage, rs.Cost)
		if err != nil {
			return nil, fmt.Errorf("restore %s record %s: %w", s.LicensePlate, rs.ID, err)
		}
		if rs.ID != "" {
			record.ID = rs.ID
		}
		v.AddRecord(record)
	}
	v.CheckAlerts()
	return v, nil
}

// CreateVehicleRequest is the input contract for registering a vehicle.
type CreateVehicleRequest struct {
	LicensePlate   string `json:"license_plate" validate:"required,plate"`
	InitialMileage int    `json:"initial_mileage" validate:"gte=0"`
}

// MileageRequest is the input contract for an odometer update.
type MileageRequest struct {
	Mileage int `json:"mileage" validate:"gte=0"`
}
