package db

import (
	"context"

	"github.com/ukydev/vehicle-logbook/internal/models"
)

// SnapshotCollection defines the interface for vehicle snapshot storage.
type SnapshotCollection interface {
	SaveSnapshot(ctx context.Context, snapshot models.VehicleSnapshot) error
	FindSnapshot(ctx context.Context, licensePlate string) (*models.VehicleSnapshot, error)
	LoadSnapshots(ctx context.Context) ([]models.VehicleSnapshot, error)
}

// SnapshotCursor defines the interface for snapshot cursor operations.
type SnapshotCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}
