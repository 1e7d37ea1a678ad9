package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/tourmates/backend/internal/trip"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeMessage writes a simple {"message": ...} response.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError maps a domain error onto an HTTP status. Every rejection keeps
// its human-readable reason; only unexpected errors are masked behind a
// generic 500.
func writeError(w http.ResponseWriter, err error) {
	var ve *trip.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": ve.Message,
			"field":   ve.Field,
		})
		return
	}

	switch {
	case errors.Is(err, trip.ErrTripNotFound),
		errors.Is(err, trip.ErrRequestNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())

	case errors.Is(err, trip.ErrNotOrganizer),
		errors.Is(err, trip.ErrOrganizerReview):
		writeMessage(w, http.StatusForbidden, err.Error())

	case errors.Is(err, trip.ErrTripNotJoinable),
		errors.Is(err, trip.ErrTripFull),
		errors.Is(err, trip.ErrSelfJoin),
		errors.Is(err, trip.ErrAlreadyParticipant),
		errors.Is(err, trip.ErrDuplicateRequest),
		errors.Is(err, trip.ErrRequestNotPending),
		errors.Is(err, trip.ErrNotParticipant),
		errors.Is(err, trip.ErrOrganizerCannotLeave),
		errors.Is(err, trip.ErrTripInJourney),
		errors.Is(err, trip.ErrTripNotEnded),
		errors.Is(err, trip.ErrAlreadyReviewed):
		writeMessage(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, trip.ErrStateConflict):
		writeMessage(w, http.StatusConflict, err.Error())

	default:
		log.WithError(err).Error("Unhandled error")
		writeMessage(w, http.StatusInternalServerError, "Server error")
	}
}
