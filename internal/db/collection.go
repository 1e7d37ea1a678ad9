package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tourmates/backend/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrVersionConflict is returned when a version-guarded replace matched
	// nothing: another writer committed first. The caller should re-read and
	// re-check its preconditions.
	ErrVersionConflict = errors.New("document version conflict")
)

// TripCollection defines the interface for trip aggregate operations.
// ReplaceTrip is the only write path for existing trips; it is guarded by the
// document version so concurrent mutations cannot silently overwrite each
// other.
type TripCollection interface {
	InsertTrip(ctx context.Context, trip *models.Trip) error
	FindTripByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)
	FindTrips(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Trip, error)
	CountTrips(ctx context.Context, filter bson.M) (int64, error)
	ReplaceTrip(ctx context.Context, trip *models.Trip) error
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error
}

// NotificationCollection defines the interface for notification records.
type NotificationCollection interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	FindNotificationsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
}
