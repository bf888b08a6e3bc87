package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/vehicle-logbook/internal/models"
)

// MockArchive is a mock implementation of Archive
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) SaveSnapshot(ctx context.Context, snapshot models.VehicleSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyAlerts(ctx context.Context, licensePlate string, alerts []models.Alert) error {
	args := m.Called(ctx, licensePlate, alerts)
	return args.Error(0)
}

func clock() time.Time {
	return time.Date(2025, time.November, 15, 9, 0, 0, 0, time.UTC)
}

func mustRecord(t *testing.T, description, date string, mileage int, cost float64) models.MaintenanceRecord {
	t.Helper()
	r, err := models.NewMaintenanceRecord(description, date, mileage, cost)
	require.NoError(t, err)
	return r
}

func TestRegistry_CreateAndGet(t *testing.T) {
	r := NewRegistry(WithClock(clock))
	ctx := context.Background()

	snap, err := r.Create(ctx, " 12-aa-34 ", 150000)
	require.NoError(t, err)
	assert.Equal(t, "12-AA-34", snap.LicensePlate)
	assert.Equal(t, 150000, snap.CurrentMileage)

	got, err := r.Get("12-AA-34")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	_, err = r.Create(ctx, "12-AA-34", 1)
	assert.ErrorIs(t, err, ErrVehicleExists)

	_, err = r.Get("99-ZZ-99")
	assert.ErrorIs(t, err, ErrVehicleNotFound)

	_, err = r.Create(ctx, "AB-12-CD", -1)
	assert.ErrorIs(t, err, models.ErrNegativeMileage)
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry(WithClock(clock))
	ctx := context.Background()
	for _, plate := range []string{"ZZ-00-01", "AA-00-01", "MM-00-01"} {
		_, err := r.Create(ctx, plate, 0)
		require.NoError(t, err)
	}

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "AA-00-01", list[0].LicensePlate)
	assert.Equal(t, "MM-00-01", list[1].LicensePlate)
	assert.Equal(t, "ZZ-00-01", list[2].LicensePlate)
}

func TestRegistry_UpdateMileage(t *testing.T) {
	r := NewRegistry(WithClock(clock))
	ctx := context.Background()
	_, err := r.Create(ctx, "12-AA-34", 169000)
	require.NoError(t, err)

	_, err = r.UpdateMileage(ctx, "12-AA-34", 100)
	assert.ErrorIs(t, err, ErrMileageDecrease)
	snap, err := r.Get("12-AA-34")
	require.NoError(t, err)
	assert.Equal(t, 169000, snap.CurrentMileage)

	snap, err = r.UpdateMileage(ctx, "12-AA-34", 170000)
	require.NoError(t, err)
	assert.Equal(t, 170000, snap.CurrentMileage)

	_, err = r.UpdateMileage(ctx, "00-XX-00", 1)
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}

func TestRegistry_AddRecord_LowerMileageStillStored(t *testing.T) {
	r := NewRegistry(WithClock(clock))
	ctx := context.Background()
	_, err := r.Create(ctx, "12-AA-34", 169000)
	require.NoError(t, err)

	snap, err := r.AddRecord(ctx, "12-AA-34", mustRecord(t, "Troca dos 4 Pneus", "2024-11-15", 152000, 320))
	require.NoError(t, err)
	assert.Len(t, snap.Records, 1)
	assert.Equal(t, 169000, snap.CurrentMileage)

	records, err := r.Records("12-AA-34")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRegistry_SideChannels(t *testing.T) {
	archive := new(MockArchive)
	notifier := new(MockNotifier)
	r := NewRegistry(WithClock(clock), WithArchive(archive), WithNotifier(notifier))
	ctx := context.Background()

	archive.On("SaveSnapshot", mock.Anything, mock.AnythingOfType("models.VehicleSnapshot")).Return(nil)
	notifier.On("NotifyAlerts", mock.Anything, "12-AA-34", mock.Anything).Return(nil)

	require.NoError(t, SeedDemo(ctx, r))

	// create + four records + mileage update
	archive.AssertNumberOfCalls(t, "SaveSnapshot", 6)
	notifier.AssertNumberOfCalls(t, "NotifyAlerts", 6)

	last := notifier.Calls[len(notifier.Calls)-1].Arguments.Get(2).([]models.Alert)
	assert.Len(t, last, 2)
}

func TestRegistry_SideChannelFailuresDoNotFailMutation(t *testing.T) {
	archive := new(MockArchive)
	notifier := new(MockNotifier)
	r := NewRegistry(WithClock(clock), WithArchive(archive), WithNotifier(notifier))
	ctx := context.Background()

	archive.On("SaveSnapshot", mock.Anything, mock.Anything).Return(errors.New("mongo down"))
	notifier.On("NotifyAlerts", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	_, err := r.Create(ctx, "12-AA-34", 10)
	require.NoError(t, err)
	snap, err := r.UpdateMileage(ctx, "12-AA-34", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, snap.CurrentMileage)
}

func TestRegistry_RejectedMileageSkipsSideChannels(t *testing.T) {
	archive := new(MockArchive)
	r := NewRegistry(WithClock(clock), WithArchive(archive))
	ctx := context.Background()
	archive.On("SaveSnapshot", mock.Anything, mock.Anything).Return(nil)

	_, err := r.Create(ctx, "12-AA-34", 10)
	require.NoError(t, err)
	_, err = r.UpdateMileage(ctx, "12-AA-34", 5)
	require.ErrorIs(t, err, ErrMileageDecrease)
	archive.AssertNumberOfCalls(t, "SaveSnapshot", 1)
}

func TestRegistry_Restore(t *testing.T) {
	ctx := context.Background()
	source := NewRegistry(WithClock(clock))
	require.NoError(t, SeedDemo(ctx, source))

	target := NewRegistry(WithClock(clock))
	_, err := target.Create(ctx, "AB-00-CD", 5)
	require.NoError(t, err)

	snaps := append(source.List(), models.VehicleSnapshot{LicensePlate: "AB-00-CD", CurrentMileage: 99})
	n, err := target.Restore(snaps)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	want, err := source.Get(DemoPlate)
	require.NoError(t, err)
	got, err := target.Get(DemoPlate)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	kept, err := target.Get("AB-00-CD")
	require.NoError(t, err)
	assert.Equal(t, 5, kept.CurrentMileage)
}

func TestRegistry_Alerts(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(WithClock(clock))
	require.NoError(t, SeedDemo(ctx, r))

	alerts, err := r.Alerts(DemoPlate)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, models.AlertOil, alerts[0].Category)
	assert.Equal(t, models.TierWarning, alerts[0].Tier)
	assert.Equal(t, 1000, *alerts[0].KmRemaining)
	assert.Equal(t, models.AlertInspection, alerts[1].Category)
	assert.Equal(t, 56, *alerts[1].DaysRemaining)

	_, err = r.Alerts("nope")
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}

func TestRegistry_ReadsFollowTheClock(t *testing.T) {
	now := time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	r := NewRegistry(WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}))
	ctx := context.Background()

	_, err := r.Create(ctx, "12-AA-34", 150000)
	require.NoError(t, err)
	_, err = r.AddRecord(ctx, "12-AA-34", mustRecord(t, "Inspeção Periódica", "2025-01-10", 145000, 31.5))
	require.NoError(t, err)

	alerts, err := r.Alerts("12-AA-34")
	require.NoError(t, err)
	assert.Empty(t, alerts)

	mu.Lock()
	now = time.Date(2025, time.November, 15, 9, 0, 0, 0, time.UTC)
	mu.Unlock()

	alerts, err = r.Alerts("12-AA-34")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 56, *alerts[0].DaysRemaining)

	snap, err := r.Get("12-AA-34")
	require.NoError(t, err)
	assert.Contains(t, snap.Alerts["Inspection"], "56 days remaining")
}

func TestRegistry_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(WithClock(clock))
	_, err := r.Create(ctx, "12-AA-34", 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			date := fmt.Sprintf("2025-01-%02d", i+1)
			record, err := models.NewMaintenanceRecord("Revisão", date, i*1000, 1)
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := r.AddRecord(ctx, "12-AA-34", record); err != nil {
				t.Error(err)
			}
			r.UpdateMileage(ctx, "12-AA-34", i*1000+500)
		}(i)
	}
	wg.Wait()

	snap, err := r.Get("12-AA-34")
	require.NoError(t, err)
	assert.Len(t, snap.Records, 20)
	assert.Equal(t, "2025-01-20", snap.Records[0].Date)
	assert.GreaterOrEqual(t, snap.CurrentMileage, 19000)
}
