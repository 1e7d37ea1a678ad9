package trip

import (
	"context"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tourmates/backend/internal/models"
)

const (
	MinRating            = 1
	MaxRating            = 5
	MinReviewDescription = 10
	MaxReviewDescription = 500
)

// SubmitReview records a participant's rating of an ended trip. One review
// per user per trip generation: a restart archives the current reviews and
// opens a fresh set, so archived reviews never block a new one.
func (e *Engine) SubmitReview(ctx context.Context, tripID, userID primitive.ObjectID, rating int, description string) (*models.Trip, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, invalid("rating", "rating must be between 1 and 5")
	}
	if n := utf8.RuneCountInString(description); n < MinReviewDescription || n > MaxReviewDescription {
		return nil, invalid("description", "review must be between 10 and 500 characters")
	}

	t, err := e.load(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if t.Status != models.StatusEnded {
		return nil, ErrTripNotEnded
	}
	if !t.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	if t.IsOrganizer(userID) {
		return nil, ErrOrganizerReview
	}
	if t.HasReviewBy(userID) {
		return nil, ErrAlreadyReviewed
	}

	t.Reviews = append(t.Reviews, models.Review{
		User:        userID,
		Rating:      rating,
		Description: description,
		CreatedAt:   e.now(),
	})
	t.RecalculateAverageRating()

	if err := e.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Restart reschedules an ended trip under the same identity: current reviews
// are appended to the archive in order, the active set and average reset, and
// the trip is reactivated with the new dates. Organizer and roster carry over
// untouched.
func (e *Engine) Restart(ctx context.Context, tripID, callerID primitive.ObjectID, dates models.DateRange) (*models.Trip, error) {
	t, err := e.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.IsOrganizer(callerID) {
		return nil, ErrNotOrganizer
	}
	if err := e.validateDates(dates); err != nil {
		return nil, err
	}

	t.PreviousReviews = append(t.PreviousReviews, t.Reviews...)
	t.Reviews = []models.Review{}
	t.AverageRating = 0
	t.Dates = dates
	t.IsActive = true
	// Status falls out of the new dates on save.

	if err := e.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
