package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType tags what membership decision a notification reports.
type NotificationType string

const (
	NotificationRequestPending  NotificationType = "join-request-pending"
	NotificationRequestAccepted NotificationType = "join-request-accepted"
	NotificationRequestRejected NotificationType = "join-request-rejected"
)

// Notification is a fire-and-forget record emitted to a user after a
// membership decision commits. It never participates in the trip mutation.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Sender    primitive.ObjectID `bson:"sender" json:"sender"`
	Type      NotificationType   `bson:"type" json:"type"`
	Message   string             `bson:"message" json:"message"`
	Trip      primitive.ObjectID `bson:"trip" json:"trip"`
	IsRead    bool               `bson:"is_read" json:"is_read"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
