package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tourmates/backend/internal/models"
)

// MongoTripCollection implements TripCollection for MongoDB
type MongoTripCollection struct {
	Collection *mongo.Collection
}

// InsertTrip inserts a new trip aggregate into the database.
func (c *MongoTripCollection) InsertTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	trip.Version = 1
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = time.Now()

	_, err := c.Collection.InsertOne(ctx, trip)
	return err
}

// FindTripByID finds a trip by its ID.
func (c *MongoTripCollection) FindTripByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	var trip models.Trip
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trip, nil
}

// FindTrips queries trip records from the collection.
func (c *MongoTripCollection) FindTrips(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Trip, error) {
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var trips []models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// CountTrips counts trips matching the filter.
func (c *MongoTripCollection) CountTrips(ctx context.Context, filter bson.M) (int64, error) {
	return c.Collection.CountDocuments(ctx, filter)
}

// ReplaceTrip writes back a previously loaded trip. The replace is filtered
// on both _id and the version the trip was loaded at; if another writer got
// there first the filter matches nothing and ErrVersionConflict is returned
// with no partial write. On success the stored version is incremented.
func (c *MongoTripCollection) ReplaceTrip(ctx context.Context, trip *models.Trip) error {
	loadedVersion := trip.Version
	trip.Version = loadedVersion + 1
	trip.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(
		ctx,
		bson.M{"_id": trip.ID, "version": loadedVersion},
		trip,
	)
	if err != nil {
		trip.Version = loadedVersion
		return err
	}
	if result.MatchedCount == 0 {
		trip.Version = loadedVersion
		return ErrVersionConflict
	}
	return nil
}
