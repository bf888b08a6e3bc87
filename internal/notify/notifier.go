// Package notify publishes vehicle alerts to subscribers outside the process.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-logbook/internal/models"
)

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Deduper remembers which alerts were already delivered.
type Deduper interface {
	// Seen reports whether key was marked and has not expired.
	Seen(ctx context.Context, key string) (bool, error)
	// Mark records key as delivered.
	Mark(ctx context.Context, key string) error
	// Forget removes keys.
	Forget(ctx context.Context, keys ...string) error
}

// AlertMessage is the payload published for one alert.
type AlertMessage struct {
	LicensePlate  string               `json:"license_plate"`
	Category      models.AlertCategory `json:"category"`
	Tier          models.AlertTier     `json:"tier"`
	Message       string               `json:"message"`
	DueMileage    *int                 `json:"due_mileage,omitempty"`
	KmRemaining   *int                 `json:"km_remaining,omitempty"`
	DueDate       string               `json:"due_date,omitempty"`
	DaysRemaining *int                 `json:"days_remaining,omitempty"`
	TriggeredAt   int64                `json:"triggered_at"`
}

// AlertNotifier publishes each active alert once per category and tier for
// as long as the deduper remembers it.
type AlertNotifier struct {
	publisher   Publisher
	deduper     Deduper
	topicPrefix string
	now         func() time.Time
}

// NewAlertNotifier creates a notifier. deduper may be nil, in which case
// every alert is published and every inactive category cleared on every change.
func NewAlertNotifier(publisher Publisher, deduper Deduper, topicPrefix string) *AlertNotifier {
	return &AlertNotifier{
		publisher:   publisher,
		deduper:     deduper,
		topicPrefix: strings.TrimSuffix(topicPrefix, "/"),
		now:         time.Now,
	}
}

// Topic is where alerts of one category for one vehicle are published.
func (n *AlertNotifier) Topic(licensePlate string, category models.AlertCategory) string {
	plate := strings.ReplaceAll(licensePlate, " ", "_")
	return fmt.Sprintf("%s/%s/alerts/%s", n.topicPrefix, plate, strings.ToLower(string(category)))
}

// NotifyAlerts implements store.Notifier. Active alerts are published once
// per category and tier; a category that is no longer active has its
// retained message cleared with an empty payload. The registry calls it with
// the vehicle lock held, so check and mark never race for one plate.
func (n *AlertNotifier) NotifyAlerts(ctx context.Context, licensePlate string, alerts []models.Alert) error {
	var errs []error
	active := make(map[models.AlertCategory]bool, len(alerts))
	for _, a := range alerts {
		active[a.Category] = true
		if err := n.publishAlert(ctx, licensePlate, a); err != nil {
			errs = append(errs, err)
		}
	}
	for _, category := range models.AlertCategories {
		if active[category] {
			continue
		}
		if err := n.clear(ctx, licensePlate, category); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *AlertNotifier) publishAlert(ctx context.Context, licensePlate string, a models.Alert) error {
	key := dedupKey(licensePlate, a.Category, a.Tier)
	if n.deduper != nil {
		seen, err := n.deduper.Seen(ctx, key)
		if err != nil {
			// fall through and publish
			log.WithError(err).WithField("key", key).Warn("Alert dedup check failed")
		} else if seen {
			return nil
		}
	}

	payload, err := json.Marshal(n.message(licensePlate, a))
	if err != nil {
		return fmt.Errorf("marshal %s alert: %w", a.Category, err)
	}
	topic := n.Topic(licensePlate, a.Category)
	if err := n.publisher.Publish(topic, payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	log.WithFields(log.Fields{
		"license_plate": licensePlate,
		"category":      a.Category,
		"tier":          a.Tier,
		"topic":         topic,
	}).Info("Published alert")

	if n.deduper != nil {
		if err := n.deduper.Mark(ctx, key); err != nil {
			log.WithError(err).WithField("key", key).Warn("Failed to mark alert as delivered")
		}
		// reset the other tiers of this category
		if err := n.deduper.Forget(ctx, otherTierKeys(licensePlate, a.Category, a.Tier)...); err != nil {
			log.WithError(err).WithField("category", a.Category).Warn("Failed to reset alert dedup keys")
		}
	}
	return nil
}

// clear empties the retained message of an inactive category. With a deduper
// only categories that were delivered before are cleared.
func (n *AlertNotifier) clear(ctx context.Context, licensePlate string, category models.AlertCategory) error {
	keys := otherTierKeys(licensePlate, category, "")
	if n.deduper != nil {
		delivered, err := n.anySeen(ctx, keys)
		if err != nil {
			log.WithError(err).WithField("category", category).Warn("Alert dedup check failed")
		} else if !delivered {
			return nil
		}
	}

	topic := n.Topic(licensePlate, category)
	if err := n.publisher.Publish(topic, nil); err != nil {
		return fmt.Errorf("clear %s: %w", topic, err)
	}
	log.WithFields(log.Fields{
		"license_plate": licensePlate,
		"category":      category,
		"topic":         topic,
	}).Info("Cleared alert")

	if n.deduper != nil {
		if err := n.deduper.Forget(ctx, keys...); err != nil {
			log.WithError(err).WithField("category", category).Warn("Failed to reset alert dedup keys")
		}
	}
	return nil
}

func (n *AlertNotifier) anySeen(ctx context.Context, keys []string) (bool, error) {
	for _, key := range keys {
		seen, err := n.deduper.Seen(ctx, key)
		if err != nil {
			return false, err
		}
		if seen {
			return true, nil
		}
	}
	return false, nil
}

func dedupKey(licensePlate string, category models.AlertCategory, tier models.AlertTier) string {
	return fmt.Sprintf("alert:%s:%s:%s", licensePlate, category, tier)
}

// otherTierKeys returns the dedup keys of every tier of category except skip.
func otherTierKeys(licensePlate string, category models.AlertCategory, skip models.AlertTier) []string {
	keys := make([]string, 0, len(models.AlertTiers))
	for _, tier := range models.AlertTiers {
		if tier != skip {
			keys = append(keys, dedupKey(licensePlate, category, tier))
		}
	}
	return keys
}

func (n *AlertNotifier) message(licensePlate string, a models.Alert) AlertMessage {
	m := AlertMessage{
		LicensePlate:  licensePlate,
		Category:      a.Category,
		Tier:          a.Tier,
		Message:       a.Message,
		DueMileage:    a.DueMileage,
		KmRemaining:   a.KmRemaining,
		DaysRemaining: a.DaysRemaining,
		TriggeredAt:   n.now().Unix(),
	}
	if a.DueDate != nil {
		m.DueDate = a.DueDate.Format(models.DateLayout)
	}
	return m
}
