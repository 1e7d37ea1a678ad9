package trip

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tourmates/backend/internal/db"
	"github.com/tourmates/backend/internal/models"
)

// Notifier receives fire-and-forget event records after a membership decision
// commits. Implementations must not block the caller on delivery; failures
// are their own to log.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Engine owns the trip lifecycle and membership state machine. Every mutation
// is a read-check-mutate-replace cycle: preconditions are checked against the
// loaded aggregate, the mutated document is written back with a version guard,
// and a lost race surfaces as ErrStateConflict rather than a partial write.
type Engine struct {
	trips    db.TripCollection
	users    db.UserCollection
	notifier Notifier
	now      Clock
	loc      *time.Location
}

// NewEngine creates a trip engine. A nil clock defaults to time.Now and a nil
// location defaults to the TRIP_TIMEZONE environment variable, falling back
// to the canonical business zone.
func NewEngine(trips db.TripCollection, users db.UserCollection, notifier Notifier, now Clock, loc *time.Location) *Engine {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		name := os.Getenv("TRIP_TIMEZONE")
		if name == "" {
			name = DefaultTimezone
		}
		var err error
		loc, err = time.LoadLocation(name)
		if err != nil {
			log.WithError(err).WithField("timezone", name).Warn("Invalid trip timezone, falling back to UTC")
			loc = time.UTC
		}
	}
	return &Engine{
		trips:    trips,
		users:    users,
		notifier: notifier,
		now:      now,
		loc:      loc,
	}
}

// Resolve computes the current status of a trip without persisting anything.
func (e *Engine) Resolve(t *models.Trip) models.Status {
	return ResolveStatus(t.Dates, e.now(), e.loc)
}

// load fetches a trip and resolves its status in memory so that every
// precondition below sees the current lifecycle stage, not the stored one.
func (e *Engine) load(ctx context.Context, tripID primitive.ObjectID) (*models.Trip, error) {
	t, err := e.trips.FindTripByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("load trip: %w", err)
	}
	t.Status = e.Resolve(t)
	return t, nil
}

// save re-derives status and writes the trip back under its version guard.
// Status is always recomputed here, so any manually written status survives
// only until the next save.
func (e *Engine) save(ctx context.Context, t *models.Trip) error {
	t.Status = e.Resolve(t)
	err := e.trips.ReplaceTrip(ctx, t)
	if err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			return ErrStateConflict
		}
		return fmt.Errorf("save trip: %w", err)
	}
	return nil
}

// SyncStatus persists a freshly derived status if it differs from the stored
// one. Used on read paths; a lost race is harmless because the winner wrote
// the same derivation.
func (e *Engine) SyncStatus(ctx context.Context, t *models.Trip) {
	resolved := e.Resolve(t)
	if t.Status == resolved {
		return
	}
	t.Status = resolved
	if err := e.trips.ReplaceTrip(ctx, t); err != nil && !errors.Is(err, db.ErrVersionConflict) {
		log.WithError(err).WithField("trip_id", t.ID.Hex()).Error("Failed to sync trip status")
	}
}

// CreateInput carries the fields for a new trip.
type CreateInput struct {
	Title           string
	Destination     string
	CoverPhoto      string
	Dates           models.DateRange
	TravelMode      models.TravelMode
	Itinerary       []models.ItineraryItem
	Rules           string
	MaxParticipants int
}

func (e *Engine) validateDates(dates models.DateRange) error {
	today := startOfDay(e.now(), e.loc)
	if startOfDay(dates.Start, e.loc).Before(today) {
		return invalid("dates.start", "start date cannot be in the past")
	}
	if !dates.End.After(dates.Start) {
		return invalid("dates.end", "end date must be after start date")
	}
	return nil
}

// Create validates the input and persists a new trip with the caller as
// organizer and sole participant.
func (e *Engine) Create(ctx context.Context, organizerID primitive.ObjectID, in CreateInput) (*models.Trip, error) {
	if utf8.RuneCountInString(strings.TrimSpace(in.Title)) < 3 {
		return nil, invalid("title", "title must be at least 3 characters")
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Destination)) < 2 {
		return nil, invalid("destination", "destination is required")
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Rules)) < 10 {
		return nil, invalid("rules", "rules must be at least 10 characters")
	}
	if !models.IsValidTravelMode(in.TravelMode) {
		return nil, invalid("travel_mode", "invalid travel mode")
	}
	if err := e.validateDates(in.Dates); err != nil {
		return nil, err
	}
	for _, item := range in.Itinerary {
		if item.Day < 1 {
			return nil, invalid("itinerary", "itinerary day must be a positive number")
		}
	}

	maxParticipants := in.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = models.DefaultMaxParticipants
	}
	if maxParticipants < models.MinParticipants || maxParticipants > models.MaxParticipantsLimit {
		return nil, invalid("max_participants", fmt.Sprintf("max participants must be between %d and %d", models.MinParticipants, models.MaxParticipantsLimit))
	}

	t := &models.Trip{
		Title:           strings.TrimSpace(in.Title),
		Destination:     strings.TrimSpace(in.Destination),
		CoverPhoto:      in.CoverPhoto,
		Dates:           in.Dates,
		TravelMode:      in.TravelMode,
		Itinerary:       in.Itinerary,
		Rules:           strings.TrimSpace(in.Rules),
		Organizer:       organizerID,
		Participants:    []primitive.ObjectID{organizerID},
		JoinRequests:    []models.JoinRequest{},
		MaxParticipants: maxParticipants,
		Reviews:         []models.Review{},
		PreviousReviews: []models.Review{},
		IsActive:        true,
	}
	t.Status = e.Resolve(t)

	if err := e.trips.InsertTrip(ctx, t); err != nil {
		return nil, fmt.Errorf("insert trip: %w", err)
	}
	return t, nil
}

// Get returns a trip with its status freshly derived and persisted.
func (e *Engine) Get(ctx context.Context, tripID primitive.ObjectID) (*models.Trip, error) {
	t, err := e.trips.FindTripByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("load trip: %w", err)
	}
	e.SyncStatus(ctx, t)
	return t, nil
}

// UpdateInput carries a partial trip update. Nil or zero fields are left
// unchanged, the organizer-only write path per field matching the create
// validation where a value is supplied.
type UpdateInput struct {
	Title           string
	Destination     string
	CoverPhoto      *string
	Dates           *models.DateRange
	TravelMode      models.TravelMode
	Itinerary       []models.ItineraryItem
	Rules           string
	MaxParticipants int
}

// Update applies an organizer's partial edit of trip fields.
func (e *Engine) Update(ctx context.Context, tripID, callerID primitive.ObjectID, in UpdateInput) (*models.Trip, error) {
	t, err := e.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.IsOrganizer(callerID) {
		return nil, ErrNotOrganizer
	}

	if in.Title != "" {
		if len(strings.TrimSpace(in.Title)) < 3 {
			return nil, invalid("title", "title must be at least 3 characters")
		}
		t.Title = strings.TrimSpace(in.Title)
	}
	if in.Destination != "" {
		if len(strings.TrimSpace(in.Destination)) < 2 {
			return nil, invalid("destination", "destination is required")
		}
		t.Destination = strings.TrimSpace(in.Destination)
	}
	if in.CoverPhoto != nil {
		t.CoverPhoto = *in.CoverPhoto
	}
	if in.Dates != nil {
		if err := e.validateDates(*in.Dates); err != nil {
			return nil, err
		}
		t.Dates = *in.Dates
	}
	if in.TravelMode != "" {
		if !models.IsValidTravelMode(in.TravelMode) {
			return nil, invalid("travel_mode", "invalid travel mode")
		}
		t.TravelMode = in.TravelMode
	}
	if in.Itinerary != nil {
		for _, item := range in.Itinerary {
			if item.Day < 1 {
				return nil, invalid("itinerary", "itinerary day must be a positive number")
			}
		}
		t.Itinerary = in.Itinerary
	}
	if in.Rules != "" {
		if len(strings.TrimSpace(in.Rules)) < 10 {
			return nil, invalid("rules", "rules must be at least 10 characters")
		}
		t.Rules = strings.TrimSpace(in.Rules)
	}
	if in.MaxParticipants != 0 {
		if in.MaxParticipants < models.MinParticipants || in.MaxParticipants > models.MaxParticipantsLimit {
			return nil, invalid("max_participants", fmt.Sprintf("max participants must be between %d and %d", models.MinParticipants, models.MaxParticipantsLimit))
		}
		if in.MaxParticipants < len(t.Participants) {
			return nil, invalid("max_participants", "max participants cannot be below the current roster size")
		}
		t.MaxParticipants = in.MaxParticipants
	}

	if err := e.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// OverrideStatus lets the organizer set the status field directly. The
// override is transient: any subsequent load-and-save re-derives status from
// the date range and overwrites it.
func (e *Engine) OverrideStatus(ctx context.Context, tripID, callerID primitive.ObjectID, status models.Status) (*models.Trip, error) {
	if !models.IsValidStatus(status) {
		return nil, invalid("status", "invalid status")
	}
	t, err := e.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.IsOrganizer(callerID) {
		return nil, ErrNotOrganizer
	}

	t.Status = status
	if err := e.trips.ReplaceTrip(ctx, t); err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			return nil, ErrStateConflict
		}
		return nil, fmt.Errorf("save trip: %w", err)
	}
	return t, nil
}

// ReconcileStatuses re-derives and persists the status of every stored trip.
// Maintenance operation; conflicts and failures on individual trips are
// logged and skipped.
func (e *Engine) ReconcileStatuses(ctx context.Context) (int, error) {
	trips, err := e.trips.FindTrips(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("list trips: %w", err)
	}

	updated := 0
	for i := range trips {
		t := &trips[i]
		resolved := e.Resolve(t)
		if t.Status == resolved {
			continue
		}
		t.Status = resolved
		if err := e.trips.ReplaceTrip(ctx, t); err != nil {
			log.WithError(err).WithField("trip_id", t.ID.Hex()).Warn("Skipping trip during status reconciliation")
			continue
		}
		updated++
	}
	return updated, nil
}
