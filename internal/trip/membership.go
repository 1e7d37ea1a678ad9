package trip

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tourmates/backend/internal/models"
)

// Decision is the organizer's verdict on a join request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// IsValidDecision checks if a decision is valid
func IsValidDecision(d Decision) bool {
	return d == DecisionApprove || d == DecisionReject
}

// RequestJoin files a pending join request from requester. Preconditions are
// checked in a fixed order and the first violation wins; nothing is persisted
// on failure. The organizer is notified after the request commits.
func (e *Engine) RequestJoin(ctx context.Context, tripID, requesterID primitive.ObjectID) (*models.Trip, error) {
	t, err := e.load(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if !t.IsActive || t.Status == models.StatusEnded {
		return nil, ErrTripNotJoinable
	}
	if t.IsFull() {
		return nil, ErrTripFull
	}
	if t.IsOrganizer(requesterID) {
		return nil, ErrSelfJoin
	}
	if t.IsParticipant(requesterID) {
		return nil, ErrAlreadyParticipant
	}
	if t.PendingRequestBy(requesterID) != nil {
		return nil, ErrDuplicateRequest
	}

	t.JoinRequests = append(t.JoinRequests, models.JoinRequest{
		ID:          primitive.NewObjectID(),
		User:        requesterID,
		Status:      models.RequestPending,
		RequestedAt: e.now(),
	})

	if err := e.save(ctx, t); err != nil {
		return nil, err
	}

	e.emit(ctx, models.Notification{
		User:    t.Organizer,
		Sender:  requesterID,
		Type:    models.NotificationRequestPending,
		Message: fmt.Sprintf("%s requested to join your trip %q.", e.userName(ctx, requesterID), t.Title),
		Trip:    t.ID,
	})
	return t, nil
}

// DecideJoinRequest applies the organizer's approve/reject verdict on a
// pending request. Capacity and membership are re-checked at decision time:
// the roster may have changed since the request was filed, and the version
// guard on the save makes sure two racing approvals cannot jointly over-admit.
// The request is removed either way, so a decision is at-most-once. The
// requester is notified after the decision commits.
func (e *Engine) DecideJoinRequest(ctx context.Context, tripID, callerID, requestID primitive.ObjectID, decision Decision) (*models.Trip, error) {
	if !IsValidDecision(decision) {
		return nil, invalid("action", "invalid action")
	}

	t, err := e.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.IsOrganizer(callerID) {
		return nil, ErrNotOrganizer
	}

	idx := t.RequestIndex(requestID)
	if idx == -1 {
		return nil, ErrRequestNotFound
	}
	request := t.JoinRequests[idx]
	if request.Status != models.RequestPending {
		return nil, ErrRequestNotPending
	}

	if decision == DecisionApprove {
		if t.IsFull() {
			return nil, ErrTripFull
		}
		if t.IsParticipant(request.User) {
			return nil, ErrAlreadyParticipant
		}
		t.Participants = append(t.Participants, request.User)
	}

	t.JoinRequests = append(t.JoinRequests[:idx], t.JoinRequests[idx+1:]...)

	if err := e.save(ctx, t); err != nil {
		return nil, err
	}

	notifType := models.NotificationRequestRejected
	verdict := "rejected"
	if decision == DecisionApprove {
		notifType = models.NotificationRequestAccepted
		verdict = "accepted"
	}
	e.emit(ctx, models.Notification{
		User:    request.User,
		Sender:  callerID,
		Type:    notifType,
		Message: fmt.Sprintf("Your request to join the trip %q has been %s.", t.Title, verdict),
		Trip:    t.ID,
	})
	return t, nil
}

// Leave removes the caller from the participant roster. The organizer cannot
// leave their own trip, and nobody can leave while the trip is in journey.
func (e *Engine) Leave(ctx context.Context, tripID, userID primitive.ObjectID) (*models.Trip, error) {
	t, err := e.load(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if !t.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	if t.IsOrganizer(userID) {
		return nil, ErrOrganizerCannotLeave
	}
	if t.Status == models.StatusInJourney {
		return nil, ErrTripInJourney
	}

	t.RemoveParticipant(userID)

	if err := e.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Cancel soft-deletes a trip. Participants and history are kept, so a
// cancelled trip can come back through a restart.
func (e *Engine) Cancel(ctx context.Context, tripID, callerID primitive.ObjectID) (*models.Trip, error) {
	t, err := e.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.IsOrganizer(callerID) {
		return nil, ErrNotOrganizer
	}

	t.IsActive = false

	if err := e.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// emit hands a notification to the sink. Delivery is best effort and happens
// only after the trip mutation has committed; it can never fail the parent
// operation.
func (e *Engine) emit(ctx context.Context, n models.Notification) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ctx, n)
}

// userName resolves a user id to a display name for notification messages.
func (e *Engine) userName(ctx context.Context, userID primitive.ObjectID) string {
	if e.users == nil {
		return "A traveller"
	}
	user, err := e.users.FindUserByID(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID.Hex()).Warn("Failed to resolve user name for notification")
		return "A traveller"
	}
	return user.Name
}
