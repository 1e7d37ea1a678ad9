package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status represents the lifecycle stage of a trip, derived from its date range.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInJourney  Status = "in_journey"
	StatusEnded      Status = "ended"
)

// IsValidStatus checks if a status is valid
func IsValidStatus(s Status) bool {
	switch s {
	case StatusNotStarted, StatusInJourney, StatusEnded:
		return true
	default:
		return false
	}
}

// TravelMode represents how the group travels to the destination.
type TravelMode string

const (
	TravelModeFlight TravelMode = "flight"
	TravelModeTrain  TravelMode = "train"
	TravelModeBus    TravelMode = "bus"
	TravelModeCar    TravelMode = "car"
	TravelModeOther  TravelMode = "other"
)

// IsValidTravelMode checks if a travel mode is valid
func IsValidTravelMode(m TravelMode) bool {
	switch m {
	case TravelModeFlight, TravelModeTrain, TravelModeBus, TravelModeCar, TravelModeOther:
		return true
	default:
		return false
	}
}

// RequestStatus represents the state of a join request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// DateRange is the calendar window a trip runs over. End must be after Start.
type DateRange struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

// ItineraryItem is one planned day of a trip. Day numbers are conventionally
// 1..N but are not required to be contiguous.
type ItineraryItem struct {
	Day         int    `bson:"day" json:"day"`
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Location    string `bson:"location" json:"location"`
}

// JoinRequest is a pending ask from a non-participant to join a trip.
// Decided requests are removed from the trip, so every stored request is
// pending unless a decision is mid-flight.
type JoinRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User        primitive.ObjectID `bson:"user" json:"user"`
	Status      RequestStatus      `bson:"status" json:"status"`
	RequestedAt time.Time          `bson:"requested_at" json:"requested_at"`
}

// Review is one participant's rating of a finished trip generation.
type Review struct {
	User        primitive.ObjectID `bson:"user" json:"user"`
	Rating      int                `bson:"rating" json:"rating"`
	Description string             `bson:"description" json:"description"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Trip is the aggregate root for one planned group journey: membership,
// join requests and review history all live inside this single document so
// that a version-guarded replace keeps the invariants atomic.
type Trip struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title           string               `bson:"title" json:"title"`
	Destination     string               `bson:"destination" json:"destination"`
	CoverPhoto      string               `bson:"cover_photo" json:"cover_photo"`
	Dates           DateRange            `bson:"dates" json:"dates"`
	TravelMode      TravelMode           `bson:"travel_mode" json:"travel_mode"`
	Itinerary       []ItineraryItem      `bson:"itinerary" json:"itinerary"`
	Rules           string               `bson:"rules" json:"rules"`
	Organizer       primitive.ObjectID   `bson:"organizer" json:"organizer"`
	Participants    []primitive.ObjectID `bson:"participants" json:"participants"`
	JoinRequests    []JoinRequest        `bson:"join_requests" json:"join_requests"`
	MaxParticipants int                  `bson:"max_participants" json:"max_participants"`
	Status          Status               `bson:"status" json:"status"`
	Reviews         []Review             `bson:"reviews" json:"reviews"`
	PreviousReviews []Review             `bson:"previous_reviews" json:"previous_reviews"`
	AverageRating   float64              `bson:"average_rating" json:"average_rating"`
	IsActive        bool                 `bson:"is_active" json:"is_active"`
	Version         int64                `bson:"version" json:"-"`
	CreatedAt       time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updated_at"`
}

const (
	MinParticipants        = 2
	MaxParticipantsLimit   = 20
	DefaultMaxParticipants = 10
)

// IsOrganizer reports whether the given user created this trip.
func (t *Trip) IsOrganizer(userID primitive.ObjectID) bool {
	return t.Organizer == userID
}

// IsParticipant reports whether the given user is currently admitted.
func (t *Trip) IsParticipant(userID primitive.ObjectID) bool {
	for _, p := range t.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// IsFull reports whether the participant roster is at capacity.
func (t *Trip) IsFull() bool {
	return len(t.Participants) >= t.MaxParticipants
}

// PendingRequestBy returns the user's pending join request, if any.
// A user has at most one pending request at a time.
func (t *Trip) PendingRequestBy(userID primitive.ObjectID) *JoinRequest {
	for i := range t.JoinRequests {
		if t.JoinRequests[i].User == userID && t.JoinRequests[i].Status == RequestPending {
			return &t.JoinRequests[i]
		}
	}
	return nil
}

// RequestIndex returns the position of the join request with the given id,
// or -1 if it does not exist.
func (t *Trip) RequestIndex(requestID primitive.ObjectID) int {
	for i := range t.JoinRequests {
		if t.JoinRequests[i].ID == requestID {
			return i
		}
	}
	return -1
}

// RemoveParticipant drops the user from the roster if present.
func (t *Trip) RemoveParticipant(userID primitive.ObjectID) {
	kept := t.Participants[:0]
	for _, p := range t.Participants {
		if p != userID {
			kept = append(kept, p)
		}
	}
	t.Participants = kept
}

// HasReviewBy reports whether the user already reviewed the current trip
// generation. Archived reviews from earlier generations do not count.
func (t *Trip) HasReviewBy(userID primitive.ObjectID) bool {
	for _, r := range t.Reviews {
		if r.User == userID {
			return true
		}
	}
	return false
}

// RecalculateAverageRating recomputes AverageRating from the current reviews,
// rounded to two decimals. Zero when there are no reviews.
func (t *Trip) RecalculateAverageRating() {
	if len(t.Reviews) == 0 {
		t.AverageRating = 0
		return
	}
	total := 0
	for _, r := range t.Reviews {
		total += r.Rating
	}
	mean := float64(total) / float64(len(t.Reviews))
	t.AverageRating = math.Round(mean*100) / 100
}
