// Package store keeps the vehicles served by the process and serializes
// access to each of them.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-logbook/internal/models"
)

var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrVehicleExists   = errors.New("vehicle already exists")
	ErrMileageDecrease = errors.New("mileage is lower than the current reading")
)

// Archive mirrors vehicle snapshots to durable storage.
type Archive interface {
	SaveSnapshot(ctx context.Context, snapshot models.VehicleSnapshot) error
}

// Notifier is told about the active alerts of a vehicle after every change.
type Notifier interface {
	NotifyAlerts(ctx context.Context, licensePlate string, alerts []models.Alert) error
}

// Registry maps license plates to vehicles. Each vehicle has its own lock,
// so requests against different vehicles never wait on each other.
type Registry struct {
	mu       sync.RWMutex
	vehicles map[string]*entry

	clock    func() time.Time
	archive  Archive
	notifier Notifier
}

type entry struct {
	mu      sync.Mutex
	vehicle *models.Vehicle
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock handed to every vehicle.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.clock = now }
}

// WithArchive mirrors every change to a.
func WithArchive(a Archive) Option {
	return func(r *Registry) { r.archive = a }
}

// WithNotifier publishes alerts to n after every change.
func WithNotifier(n Notifier) Option {
	return func(r *Registry) { r.notifier = n }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		vehicles: make(map[string]*entry),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NormalizePlate is the registry key for a license plate.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// Create registers a new vehicle.
func (r *Registry) Create(ctx context.Context, licensePlate string, initialMileage int) (models.VehicleSnapshot, error) {
	v, err := models.NewVehicle(NormalizePlate(licensePlate), initialMileage, models.WithClock(r.clock))
	if err != nil {
		return models.VehicleSnapshot{}, err
	}
	e, err := r.insert(v)
	if err != nil {
		return models.VehicleSnapshot{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	log.WithFields(log.Fields{
		"license_plate":   v.LicensePlate,
		"initial_mileage": initialMileage,
	}).Info("Registered vehicle")
	return r.changed(ctx, v), nil
}

// Restore adds vehicles rebuilt from archived snapshots. Snapshots for
// plates already present are skipped.
func (r *Registry) Restore(snapshots []models.VehicleSnapshot) (int, error) {
	restored := 0
	for _, s := range snapshots {
		v, err := models.RestoreVehicle(s, models.WithClock(r.clock))
		if err != nil {
			return restored, err
		}
		if _, err := r.insert(v); err != nil {
			if errors.Is(err, ErrVehicleExists) {
				log.WithField("license_plate", v.LicensePlate).Warn("Skipping archived vehicle already in registry")
				continue
			}
			return restored, err
		}
		restored++
	}
	return restored, nil
}

func (r *Registry) insert(v *models.Vehicle) (*entry, error) {
	key := NormalizePlate(v.LicensePlate)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vehicles[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrVehicleExists, key)
	}
	e := &entry{vehicle: v}
	r.vehicles[key] = e
	return e, nil
}

func (r *Registry) lookup(plate string) (*entry, error) {
	key := NormalizePlate(plate)
	r.mu.RLock()
	e, ok := r.vehicles[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVehicleNotFound, key)
	}
	return e, nil
}

// with runs fn holding the vehicle's lock.
func (r *Registry) with(plate string, fn func(v *models.Vehicle) error) error {
	e, err := r.lookup(plate)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.vehicle)
}

// Get returns the snapshot of one vehicle. Alerts are re-evaluated first, so
// date based alerts follow the clock between writes.
func (r *Registry) Get(plate string) (models.VehicleSnapshot, error) {
	var snap models.VehicleSnapshot
	err := r.with(plate, func(v *models.Vehicle) error {
		v.CheckAlerts()
		snap = v.Snapshot()
		return nil
	})
	return snap, err
}

// List returns the snapshots of every vehicle ordered by plate.
func (r *Registry) List() []models.VehicleSnapshot {
	r.mu.RLock()
	keys := make([]string, 0, len(r.vehicles))
	for k := range r.vehicles {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)

	out := make([]models.VehicleSnapshot, 0, len(keys))
	for _, k := range keys {
		if snap, err := r.Get(k); err == nil {
			out = append(out, snap)
		}
	}
	return out
}

// Alerts returns the structured alerts of one vehicle as of now.
func (r *Registry) Alerts(plate string) ([]models.Alert, error) {
	var alerts []models.Alert
	err := r.with(plate, func(v *models.Vehicle) error {
		v.CheckAlerts()
		alerts = v.AlertDetails()
		return nil
	})
	return alerts, err
}

// Records returns the maintenance history of one vehicle, most recent first.
func (r *Registry) Records(plate string) ([]models.MaintenanceRecord, error) {
	var records []models.MaintenanceRecord
	err := r.with(plate, func(v *models.Vehicle) error {
		records = v.Records()
		return nil
	})
	return records, err
}

// AddRecord attaches a record to a vehicle.
func (r *Registry) AddRecord(ctx context.Context, plate string, record models.MaintenanceRecord) (models.VehicleSnapshot, error) {
	var snap models.VehicleSnapshot
	err := r.with(plate, func(v *models.Vehicle) error {
		before := v.CurrentMileage()
		v.AddRecord(record)
		log.WithFields(log.Fields{
			"license_plate":   v.LicensePlate,
			"record_id":       record.ID,
			"description":     record.Description,
			"date":            record.Date.Format(models.DateLayout),
			"mileage":         record.Mileage,
			"mileage_before":  before,
			"current_mileage": v.CurrentMileage(),
		}).Info("Added maintenance record")
		snap = r.changed(ctx, v)
		return nil
	})
	return snap, err
}

// UpdateMileage moves a vehicle's odometer forward. A lower reading leaves
// the vehicle untouched and returns ErrMileageDecrease.
func (r *Registry) UpdateMileage(ctx context.Context, plate string, mileage int) (models.VehicleSnapshot, error) {
	var snap models.VehicleSnapshot
	err := r.with(plate, func(v *models.Vehicle) error {
		current := v.CurrentMileage()
		if !v.UpdateMileage(mileage) {
			log.WithFields(log.Fields{
				"license_plate":   v.LicensePlate,
				"current_mileage": current,
				"rejected":        mileage,
			}).Warn("Rejected mileage update")
			return fmt.Errorf("%w: %d < %d", ErrMileageDecrease, mileage, current)
		}
		log.WithFields(log.Fields{
			"license_plate": v.LicensePlate,
			"from":          current,
			"to":            mileage,
		}).Info("Updated mileage")
		snap = r.changed(ctx, v)
		return nil
	})
	return snap, err
}

// changed runs the side channels after a mutation. It is called with the
// vehicle lock held so archived snapshots are written in mutation order.
// Side channel failures are logged and never undo the change.
func (r *Registry) changed(ctx context.Context, v *models.Vehicle) models.VehicleSnapshot {
	snap := v.Snapshot()
	if r.archive != nil {
		if err := r.archive.SaveSnapshot(ctx, snap); err != nil {
			log.WithError(err).WithField("license_plate", v.LicensePlate).Error("Failed to archive snapshot")
		}
	}
	if r.notifier != nil {
		if err := r.notifier.NotifyAlerts(ctx, v.LicensePlate, v.AlertDetails()); err != nil {
			log.WithError(err).WithField("license_plate", v.LicensePlate).Error("Failed to notify alerts")
		}
	}
	return snap
}
