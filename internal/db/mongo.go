package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/vehicle-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoArchive stores one document per vehicle, replaced on every change.
type MongoArchive struct {
	Collection *mongo.Collection
}

// NewMongoArchive wraps a collection and makes sure plates are unique.
func NewMongoArchive(ctx context.Context, coll *mongo.Collection) (*MongoArchive, error) {
	if coll == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "license_plate", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create license_plate index: %w", err)
	}
	return &MongoArchive{Collection: coll}, nil
}

// SaveSnapshot upserts the snapshot keyed by license plate.
func (c *MongoArchive) SaveSnapshot(ctx context.Context, snapshot models.VehicleSnapshot) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.ReplaceOne(ctx,
		bson.M{"license_plate": snapshot.LicensePlate},
		snapshot,
		options.Replace().SetUpsert(true),
	)
	return err
}

// FindSnapshot finds the archived snapshot of one vehicle.
func (c *MongoArchive) FindSnapshot(ctx context.Context, licensePlate string) (*models.VehicleSnapshot, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var snapshot models.VehicleSnapshot
	err := c.Collection.FindOne(ctx, bson.M{"license_plate": licensePlate}).Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, licensePlate)
		}
		return nil, err
	}
	return &snapshot, nil
}

// LoadSnapshots returns every archived snapshot ordered by plate.
func (c *MongoArchive) LoadSnapshots(ctx context.Context) ([]models.VehicleSnapshot, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "license_plate", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var snapshots []models.VehicleSnapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// DeleteAll removes every archived snapshot.
func (c *MongoArchive) DeleteAll(ctx context.Context) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.DeleteMany(ctx, bson.M{})
	return err
}

func (c *MongoArchive) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (SnapshotCursor, error) {
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoSnapshotCursor{cursor: cursor}, nil
}

// mongoSnapshotCursor wraps a MongoDB cursor for snapshot queries.
type mongoSnapshotCursor struct {
	cursor *mongo.Cursor
}

// All retrieves all results from the cursor.
func (m *mongoSnapshotCursor) All(ctx context.Context, out interface{}) error {
	return m.cursor.All(ctx, out)
}

// Close closes the cursor.
func (m *mongoSnapshotCursor) Close(ctx context.Context) error {
	return m.cursor.Close(ctx)
}
