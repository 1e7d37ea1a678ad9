package trip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tourmates/backend/internal/db"
	"github.com/tourmates/backend/internal/models"
)

func TestRequestJoin(t *testing.T) {
	f := newFixture()
	organizer := f.users.add("Asha")
	requester := f.users.add("Bela")
	seeded := f.seedTrip(t, organizer, futureDates(), 5)

	got, err := f.engine.RequestJoin(context.Background(), seeded.ID, requester)
	require.NoError(t, err)

	require.Len(t, got.JoinRequests, 1)
	request := got.JoinRequests[0]
	assert.False(t, request.ID.IsZero())
	assert.Equal(t, requester, request.User)
	assert.Equal(t, models.RequestPending, request.Status)
	assert.Equal(t, testNow, request.RequestedAt)
	assert.NotContains(t, got.Participants, requester)

	events := f.sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, organizer, events[0].User)
	assert.Equal(t, requester, events[0].Sender)
	assert.Equal(t, models.NotificationRequestPending, events[0].Type)
	assert.Contains(t, events[0].Message, "Bela")
}

func TestRequestJoinRejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *engineFixture, organizer primitive.ObjectID) (primitive.ObjectID, primitive.ObjectID)
		wantErr error
	}{
		{
			"cancelled trip",
			func(t *testing.T, f *engineFixture, organizer primitive.ObjectID) (primitive.ObjectID, primitive.ObjectID) {
				seeded := f.seedTrip(t, organizer, futureDates(), 5)
				seeded.IsActive = false
				require.NoError(t, f.store.ReplaceTrip(context.Background(), seeded))
				return seeded.ID, f.users.add("Bela")
			},
			ErrTripNotJoinable,
		},
		{
			"ended trip",
			func(t *testing.T, f *engineFixture, organizer primitive.ObjectID) (primitive.ObjectID, primitive.ObjectID) {
				seeded := f.seedTrip(t, organizer, endedDates(), 5)
				return seeded.ID, f.users.add("Bela")
			},
			ErrTripNotJoinable,
		},
		{
			"full trip",
			func(t *testing.T, f *engineFixture, organizer primitive.ObjectID) (primitive.ObjectID, primitive.ObjectID) {
				seeded := f.seedTrip(t, organizer, futureDates(), 2)
				seeded.Participants = append(seeded.Participants, f.users.add("Chitra"))
				require.NoError(t, f.store.ReplaceTrip(context.Background(), seeded))
				return seeded.ID, f.users.add("Bela")
			},
			ErrTripFull,
		},
		{
			"organizer joining own trip",
			func(t *testing.T, f *engineFixture, organizer primitive.ObjectID) (primitive.ObjectID, primitive.ObjectID) {
				seeded := f.seedTrip(t, organizer, futureDates(), 5)
				return seeded.ID, organizer
			},
			ErrSelfJoin,
		},
		{
			"already a participant",
			func(t *testing.T, f *engineFixture, organizer primitive.ObjectID) (primitive.ObjectID, primitive.ObjectID) {
				member := f.users.add("Bela")
				seeded := f.seedTrip(t, organizer, futureDates(), 5)
				seeded.Participants = append(seeded.Participants, member)
				require.NoError(t, f.store.ReplaceTrip(context.Background(), seeded))
				return seeded.ID, member
			},
			ErrAlreadyParticipant,
		},
		{
			"duplicate pending request",
			func(t *testing.T, f *engineFixture, organizer primitive.ObjectID) (primitive.ObjectID, primitive.ObjectID) {
				requester := f.users.add("Bela")
				seeded := f.seedTrip(t, organizer, futureDates(), 5)
				_, err := f.engine.RequestJoin(context.Background(), seeded.ID, requester)
				require.NoError(t, err)
				return seeded.ID, requester
			},
			ErrDuplicateRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			organizer := f.users.add("Asha")
			tripID, requester := tt.setup(t, f, organizer)

			before := f.store.stored(t, tripID)
			_, err := f.engine.RequestJoin(context.Background(), tripID, requester)
			assert.ErrorIs(t, err, tt.wantErr)

			// Nothing is persisted on a rejected admission.
			after := f.store.stored(t, tripID)
			assert.Equal(t, before.JoinRequests, after.JoinRequests)
			assert.Equal(t, before.Participants, after.Participants)
		})
	}
}

func TestRequestJoinFullBeatsSelfJoin(t *testing.T) {
	f := newFixture()
	organizer := f.users.add("Asha")
	seeded := f.seedTrip(t, organizer, futureDates(), 2)
	seeded.Participants = append(seeded.Participants, f.users.add("Bela"))
	require.NoError(t, f.store.ReplaceTrip(context.Background(), seeded))

	// Capacity is checked before the self-join rule.
	_, err := f.engine.RequestJoin(context.Background(), seeded.ID, organizer)
	assert.ErrorIs(t, err, ErrTripFull)
}

func TestDecideJoinRequestApprove(t *testing.T) {
	f := newFixture()
	organizer := f.users.add("Asha")
	requester := f.users.add("Bela")
	seeded := f.seedTrip(t, organizer, futureDates(), 5)

	withRequest, err := f.engine.RequestJoin(context.Background(), seeded.ID, requester)
	require.NoError(t, err)
	requestID := withRequest.JoinRequests[0].ID

	decided, err := f.engine.DecideJoinRequest(context.Background(), seeded.ID, organizer, requestID, DecisionApprove)
	require.NoError(t, err)
	assert.Contains(t, decided.Participants, requester)
	assert.Empty(t, decided.JoinRequests)

	events := f.sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, models.NotificationRequestAccepted, events[1].Type)
	assert.Equal(t, requester, events[1].User)
	assert.Equal(t, organizer, events[1].Sender)
}

func TestDecideJoinRequestReject(t *testing.T) {
	f := newFixture()
	organizer := f.users.add("Asha")
	requester := f.users.add("Bela")
	seeded := f.seedTrip(t, organizer, futureDates(), 5)

	withRequest, err := f.engine.RequestJoin(context.Background(), seeded.ID, requester)
	require.NoError(t, err)
	requestID := withRequest.JoinRequests[0].ID

	decided, err := f.engine.DecideJoinRequest(context.Background(), seeded.ID, organizer, requestID, DecisionReject)
	require.NoError(t, err)
	assert.NotContains(t, decided.Participants, requester)
	assert.Empty(t, decided.JoinRequests)

	// A rejected requester may request again.
	again, err := f.engine.RequestJoin(context.Background(), seeded.ID, requester)
	require.NoError(t, err)
	assert.Len(t, again.JoinRequests, 1)

	events := f.sink.all()
	require.Len(t, events, 3)
	assert.Equal(t, models.NotificationRequestRejected, events[1].Type)
}

func TestDecideJoinRequestAtMostOnce(t *testing.T) {
	f := newFixture()
	organizer := f.users.add("Asha")
	requester := f.users.add("Bela")
	seeded := f.seedTrip(t, organizer, futureDates(), 5)

	withRequest, err := f.engine.RequestJoin(context.Background(), seeded.ID, requester)
	require.NoError(t, err)
	requestID := withRequest.JoinRequests[0].ID

	_, err = f.engine.DecideJoinRequest(context.Background(), seeded.ID, organizer, requestID, DecisionApprove)
	require.NoError(t, err)

	_, err = f.engine.DecideJoinRequest(context.Background(), seeded.ID, organizer, requestID, DecisionApprove)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	// The roster did not grow twice.
	assert.Len(t, f.store.stored(t, seeded.ID).Participants, 2)
}

func TestDecideJoinRequestCapacityRecheck(t *testing.T) {
	f := newFixture()
	organizer := f.users.add("Asha")
	first := f.users.add("Bela")
	second := f.users.add("Chitra")
	seeded := f.seedTrip(t, organizer, futureDates(), 2)

	withFirst, err := f.engine.RequestJoin(context.Background(), seeded.ID, first)
	require.NoError(t, err)
	firstID := withFirst.JoinRequests[0].ID
	withSecond, err := f.engine.RequestJoin(context.Background(), seeded.ID, second)
	require.NoError(t, err)
	secondID := withSecond.JoinRequests[1].ID

	_, err = f.engine.DecideJoinRequest(context.Background(), seeded.ID, organizer, firstID, DecisionApprove)
	require.NoError(t, err)

	// The trip filled up between filing and decision.
	_, err = f.engine.DecideJoinRequest(context.Background(), seeded.ID, organizer, secondID, DecisionApprove)
	assert.ErrorIs(t, err, ErrTripFull)

	stored := f.store.stored(t, seeded.ID)
	assert.Len(t, stored.Participants, 2)
	assert.Len(t, stored.JoinRequests, 1)

	// Rejecting still works at capacity and clears the request.
	_, err = f.engine.DecideJoinRequest(context.Background(), seeded.ID, organizer, secondID, DecisionReject)
	require.NoError(t, err)
	assert.Empty(t, f.store.stored(t, seeded.ID).JoinRequests)
}

func TestDecideJoinRequestAuthorization(t *testing.T) {
	f := newFixture()
	organizer := f.users.add("Asha")
	requester := f.users.add("Bela")
	seeded := f.seedTrip(t, organizer, futureDates(), 5)

	withRequest, err := f.engine.RequestJoin(context.Background(), seeded.ID, requester)
	require.NoError(t, err)
	requestID := withRequest.JoinRequests[0].ID

	_, err = f.engine.DecideJoinRequest(context.Background(), seeded.ID, requester, requestID, DecisionApprove)
	assert.ErrorIs(t, err, ErrNotOrganizer)

	_, err = f.engine.DecideJoinRequest(context.Background(), seeded.ID, organizer, requestID, Decision("maybe"))
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = f.engine.DecideJoinRequest(context.Background(), seeded.ID, organizer, primitive.NewObjectID(), DecisionApprove)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestLeave(t *testing.T) {
	f := newFixture()
	organizer := f.users.add("Asha")
	member := f.users.add("Bela")

	t.Run("participant leaves before the trip starts", func(t *testing.T) {
		seeded := f.seedTrip(t, organizer, futureDates(), 5)
		seeded.Participants = append(seeded.Participants, member)
		require.NoError(t, f.store.ReplaceTrip(context.Background(), seeded))

		left, err := f.engine.Leave(context.Background(), seeded.ID, member)
		require.NoError(t, err)
		assert.NotContains(t, left.Participants, member)
		assert.Contains(t, left.Participants, organizer)
	})

	t.Run("participant leaves after the trip ends", func(t *testing.T) {
		seeded := f.seedTrip(t, organizer, endedDates(), 5)
		seeded.Participants = append(seeded.Participants, member)
		require.NoError(t, f.store.ReplaceTrip(context.Background(), seeded))

		left, err := f.engine.Leave(context.Background(), seeded.ID, member)
		require.NoError(t, err)
		assert.NotContains(t, left.Participants, member)
	})

	t.Run("blocked mid journey", func(t *testing.T) {
		seeded := f.seedTrip(t, organizer, journeyDates(), 5)
		seeded.Participants = append(seeded.Participants, member)
		require.NoError(t, f.store.ReplaceTrip(context.Background(), seeded))

		_, err := f.engine.Leave(context.Background(), seeded.ID, member)
		assert.ErrorIs(t, err, ErrTripInJourney)
		assert.Contains(t, f.store.stored(t, seeded.ID).Participants, member)
	})

	t.Run("organizer cannot leave", func(t *testing.T) {
		seeded := f.seedTrip(t, organizer, futureDates(), 5)
		_, err := f.engine.Leave(context.Background(), seeded.ID, organizer)
		assert.ErrorIs(t, err, ErrOrganizerCannotLeave)
	})

	t.Run("non participant cannot leave", func(t *testing.T) {
		seeded := f.seedTrip(t, organizer, futureDates(), 5)
		_, err := f.engine.Leave(context.Background(), seeded.ID, f.users.add("Dhruv"))
		assert.ErrorIs(t, err, ErrNotParticipant)
	})
}

func TestCancel(t *testing.T) {
	f := newFixture()
	organizer := f.users.add("Asha")
	member := f.users.add("Bela")
	seeded := f.seedTrip(t, organizer, futureDates(), 5)
	seeded.Participants = append(seeded.Participants, member)
	require.NoError(t, f.store.ReplaceTrip(context.Background(), seeded))

	_, err := f.engine.Cancel(context.Background(), seeded.ID, member)
	assert.ErrorIs(t, err, ErrNotOrganizer)

	cancelled, err := f.engine.Cancel(context.Background(), seeded.ID, organizer)
	require.NoError(t, err)
	assert.False(t, cancelled.IsActive)

	// Roster and history survive a cancellation.
	stored := f.store.stored(t, seeded.ID)
	assert.False(t, stored.IsActive)
	assert.Contains(t, stored.Participants, member)
}

// conflictingStore fails the next ReplaceTrip once, simulating a write that
// lost a version race.
type conflictingStore struct {
	*fakeTripStore
	fail bool
}

func (s *conflictingStore) ReplaceTrip(ctx context.Context, trip *models.Trip) error {
	if s.fail {
		s.fail = false
		return db.ErrVersionConflict
	}
	return s.fakeTripStore.ReplaceTrip(ctx, trip)
}

func TestLostVersionRaceSurfacesAsStateConflict(t *testing.T) {
	store := &conflictingStore{fakeTripStore: newFakeTripStore()}
	users := newFakeUserStore()
	sink := &captureNotifier{}
	engine := NewEngine(store, users, sink, func() time.Time { return testNow }, time.UTC)

	organizer := users.add("Asha")
	requester := users.add("Bela")
	trip := &models.Trip{
		Title:           "Rann of Kutch",
		Destination:     "Dholavira",
		Dates:           futureDates(),
		TravelMode:      models.TravelModeTrain,
		Rules:           "Carry your own water, no single-use plastic.",
		Organizer:       organizer,
		Participants:    []primitive.ObjectID{organizer},
		MaxParticipants: 5,
		IsActive:        true,
	}
	require.NoError(t, store.InsertTrip(context.Background(), trip))

	store.fail = true
	_, err := engine.RequestJoin(context.Background(), trip.ID, requester)
	assert.ErrorIs(t, err, ErrStateConflict)
	assert.Empty(t, sink.all(), "no notification for an uncommitted mutation")

	// The retry goes through.
	got, err := engine.RequestJoin(context.Background(), trip.ID, requester)
	require.NoError(t, err)
	assert.Len(t, got.JoinRequests, 1)
}
