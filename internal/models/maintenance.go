package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar date format accepted for service dates.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate     = errors.New("date must use the YYYY-MM-DD format")
	ErrNegativeMileage = errors.New("mileage must not be negative")
	ErrNegativeCost    = errors.New("cost must not be negative")
)

// MaintenanceRecord is a single service performed on a vehicle.
// Records are values and are never edited after NewMaintenanceRecord returns.
type MaintenanceRecord struct {
	ID          string    `json:"id" bson:"id"`
	Description string    `json:"description" bson:"description"`
	Date        time.Time `json:"date" bson:"date"`
	Mileage     int       `json:"mileage" bson:"mileage"` // in kilometers
	Cost        float64   `json:"cost" bson:"cost"`       // in EUR

	// seq is the insertion order inside a vehicle, used to break date ties.
	seq uint64
}

// MaintenanceRequest is the input contract for creating a record.
type MaintenanceRequest struct {
	Description string  `json:"description" validate:"required,max=200"`
	Date        string  `json:"date" validate:"required,isodate"`
	Mileage     int     `json:"mileage" validate:"gte=0"`
	Cost        float64 `json:"cost" validate:"gte=0"`
}

// NewMaintenanceRecord parses and validates the raw input of a maintenance event.
// Cost defaults to zero when the caller has none.
func NewMaintenanceRecord(description, date string, mileage int, cost float64) (MaintenanceRecord, error) {
	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return MaintenanceRecord{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if mileage < 0 {
		return MaintenanceRecord{}, fmt.Errorf("%w: %d", ErrNegativeMileage, mileage)
	}
	if cost < 0 {
		return MaintenanceRecord{}, fmt.Errorf("%w: %.2f", ErrNegativeCost, cost)
	}
	return MaintenanceRecord{
		ID:          uuid.NewString(),
		Description: description,
		Date:        parsed,
		Mileage:     mileage,
		Cost:        cost,
	}, nil
}

// Record builds the domain record described by the request.
func (r MaintenanceRequest) Record() (MaintenanceRecord, error) {
	return NewMaintenanceRecord(r.Description, r.Date, r.Mileage, r.Cost)
}

// Matches reports whether keyword occurs in the description, ignoring case.
func (r MaintenanceRecord) Matches(keyword string) bool {
	return strings.Contains(strings.ToLower(r.Description), strings.ToLower(keyword))
}

// newerThan orders records by date, the later insertion winning on equal dates.
func (r MaintenanceRecord) newerThan(other MaintenanceRecord) bool {
	if !r.Date.Equal(other.Date) {
		return r.Date.After(other.Date)
	}
	return r.seq > other.seq
}

// RecordSnapshot is the presentation form of a record.
type RecordSnapshot struct {
	ID          string  `json:"id" bson:"id"`
	Description string  `json:"description" bson:"description"`
	Date        string  `json:"date" bson:"date"`
	Mileage     int     `json:"mileage" bson:"mileage"`
	Cost        float64 `json:"cost" bson:"cost"`
}

// Snapshot renders the record with its date as an ISO string.
func (r MaintenanceRecord) Snapshot() RecordSnapshot {
	return RecordSnapshot{
		ID:          r.ID,
		Description: r.Description,
		Date:        r.Date.Format(DateLayout),
		Mileage:     r.Mileage,
		Cost:        r.Cost,
	}
}
