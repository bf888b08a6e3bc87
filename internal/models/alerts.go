package models

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// OilChangeIntervalKm is the distance between two oil changes.
	OilChangeIntervalKm = 15000
	// OilWarningWindowKm is how close to the next oil change a warning starts.
	OilWarningWindowKm = 2000
	// InspectionWarningDays is how close to the yearly inspection it becomes urgent.
	InspectionWarningDays = 60
)

// Description keywords identifying each service category.
var (
	OilKeywords        = []string{"óleo", "oleo", "oil"}
	InspectionKeywords = []string{"inspeção", "inspecao", "inspection"}
)

// AlertCategory names an alert rule family.
type AlertCategory string

const (
	AlertOil        AlertCategory = "Oil"
	AlertInspection AlertCategory = "Inspection"
)

// AlertCategories lists every rule family in evaluation order.
var AlertCategories = []AlertCategory{AlertOil, AlertInspection}

// AlertTier is the urgency of an alert. No alert is represented by absence.
type AlertTier string

const (
	TierWarning AlertTier = "warning"
	TierUrgent  AlertTier = "urgent"
)

// AlertTiers lists every tier, least urgent first.
var AlertTiers = []AlertTier{TierWarning, TierUrgent}

// Alert is one active alert for a vehicle.
type Alert struct {
	Category      AlertCategory `json:"category"`
	Tier          AlertTier     `json:"tier"`
	Message       string        `json:"message"`
	DueMileage    *int          `json:"due_mileage,omitempty"`
	KmRemaining   *int          `json:"km_remaining,omitempty"` // negative when overdue
	DueDate       *time.Time    `json:"due_date,omitempty"`
	DaysRemaining *int          `json:"days_remaining,omitempty"`
}

// EvaluateAlerts derives the full alert set from a history, the current
// odometer reading and today's date. It has no side effects and never fails;
// a category without a matching record yields no alert.
func EvaluateAlerts(records []MaintenanceRecord, currentMileage int, today time.Time) []Alert {
	alerts := make([]Alert, 0, 2)

	if last, ok := mostRecentMatching(records, OilKeywords...); ok {
		if a, ok := evaluateOil(last, currentMileage); ok {
			alerts = append(alerts, a)
		}
	}
	if last, ok := mostRecentMatching(records, InspectionKeywords...); ok {
		if a, ok := evaluateInspection(last, today); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts
}

func evaluateOil(last MaintenanceRecord, currentMileage int) (Alert, bool) {
	due := last.Mileage + OilChangeIntervalKm
	remaining := due - currentMileage

	a := Alert{
		Category:    AlertOil,
		DueMileage:  &due,
		KmRemaining: &remaining,
	}
	switch {
	case remaining < 0:
		a.Tier = TierUrgent
		a.Message = fmt.Sprintf("URGENT: oil change overdue by %s km.", humanize.Comma(int64(-remaining)))
	case remaining <= OilWarningWindowKm:
		a.Tier = TierWarning
		a.Message = fmt.Sprintf("Attention: next oil change due at %s km. %s km remaining.",
			humanize.Comma(int64(due)), humanize.Comma(int64(remaining)))
	default:
		return Alert{}, false
	}
	return a, true
}

// Inspection has a single urgent tier, overdue included.
func evaluateInspection(last MaintenanceRecord, today time.Time) (Alert, bool) {
	due := NextInspectionDate(last.Date)
	days := DaysUntil(today, due)
	if days > InspectionWarningDays {
		return Alert{}, false
	}
	return Alert{
		Category:      AlertInspection,
		Tier:          TierUrgent,
		Message:       fmt.Sprintf("URGENT: mandatory inspection approaching. Due on %s. %d days remaining.", due.Format(DateLayout), days),
		DueDate:       &due,
		DaysRemaining: &days,
	}, true
}

// NextInspectionDate is the same day one year later. February 29 maps to
// February 28 of the following year.
func NextInspectionDate(last time.Time) time.Time {
	y, m, d := last.Date()
	if m == time.February && d == 29 {
		d = 28
	}
	return time.Date(y+1, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil counts calendar days from the date of from to the date of to,
// ignoring the time of day. The result is negative when to is in the past.
func DaysUntil(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
