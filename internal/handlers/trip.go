package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tourmates/backend/internal/db"
	"github.com/tourmates/backend/internal/middleware"
	"github.com/tourmates/backend/internal/models"
	"github.com/tourmates/backend/internal/trip"
)

// TripHandler handles trip lifecycle, membership and review requests.
type TripHandler struct {
	engine *trip.Engine
	trips  db.TripCollection
	users  db.UserCollection
}

// NewTripHandler creates a new trip handler
func NewTripHandler(engine *trip.Engine, trips db.TripCollection, users db.UserCollection) *TripHandler {
	return &TripHandler{
		engine: engine,
		trips:  trips,
		users:  users,
	}
}

// callerID extracts the authenticated user's id from the request context.
func callerID(r *http.Request) (primitive.ObjectID, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// pathID parses an object id path segment.
func pathID(r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(r.PathValue(name))
	return id, err == nil
}

// parseDate accepts a date-only or RFC3339 query parameter.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

type createTripRequest struct {
	Title           string                 `json:"title"`
	Destination     string                 `json:"destination"`
	CoverPhoto      string                 `json:"cover_photo"`
	Dates           models.DateRange       `json:"dates"`
	TravelMode      models.TravelMode      `json:"travel_mode"`
	Itinerary       []models.ItineraryItem `json:"itinerary"`
	Rules           string                 `json:"rules"`
	MaxParticipants int                    `json:"max_participants"`
}

// Create handles POST /api/trips
func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}

	var req createTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	created, err := h.engine.Create(r.Context(), caller, trip.CreateInput{
		Title:           req.Title,
		Destination:     req.Destination,
		CoverPhoto:      req.CoverPhoto,
		Dates:           req.Dates,
		TravelMode:      req.TravelMode,
		Itinerary:       req.Itinerary,
		Rules:           req.Rules,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Trip created successfully",
		"trip":    created,
		"users":   h.hydrate(r, created),
	})
}

// List handles GET /api/trips: active trips the caller could join, newest
// first, with optional search/destination/date/mode filters and pagination.
// The caller's own trips are excluded from the listing.
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}

	q := r.URL.Query()
	filter := bson.M{
		"is_active": true,
		"organizer": bson.M{"$ne": caller},
	}
	if search := q.Get("search"); search != "" {
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": search, "$options": "i"}},
			{"destination": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	if destination := q.Get("destination"); destination != "" {
		filter["destination"] = bson.M{"$regex": destination, "$options": "i"}
	}
	if startDate, ok := parseDate(q.Get("start_date")); ok {
		filter["dates.start"] = bson.M{"$gte": startDate}
	}
	if endDate, ok := parseDate(q.Get("end_date")); ok {
		filter["dates.end"] = bson.M{"$lte": endDate}
	}
	if mode := q.Get("travel_mode"); mode != "" {
		filter["travel_mode"] = mode
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 50 {
		limit = 12
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	trips, err := h.trips.FindTrips(r.Context(), filter, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range trips {
		h.engine.SyncStatus(r.Context(), &trips[i])
	}

	total, err := h.trips.CountTrips(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trips": trips,
		"users": h.hydrateAll(r, trips),
		"pagination": map[string]interface{}{
			"current_page": page,
			"total_pages":  int(math.Ceil(float64(total) / float64(limit))),
			"total_trips":  total,
			"has_more":     int64(page*limit) < total,
		},
	})
}

// MyTrips handles GET /api/trips/user/my-trips?type=organized|joined|all
func (h *TripHandler) MyTrips(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}

	var filter bson.M
	switch r.URL.Query().Get("type") {
	case "organized":
		filter = bson.M{"organizer": caller}
	case "joined":
		filter = bson.M{"participants": caller, "organizer": bson.M{"$ne": caller}}
	default:
		filter = bson.M{"$or": []bson.M{
			{"organizer": caller},
			{"participants": caller},
		}}
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	trips, err := h.trips.FindTrips(r.Context(), filter, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range trips {
		h.engine.SyncStatus(r.Context(), &trips[i])
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trips": trips,
		"users": h.hydrateAll(r, trips),
	})
}

// Get handles GET /api/trips/{id}
func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid trip ID format")
		return
	}

	t, err := h.engine.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trip":  t,
		"users": h.hydrate(r, t),
	})
}

type updateTripRequest struct {
	Title           string                 `json:"title"`
	Destination     string                 `json:"destination"`
	CoverPhoto      *string                `json:"cover_photo"`
	Dates           *models.DateRange      `json:"dates"`
	TravelMode      models.TravelMode      `json:"travel_mode"`
	Itinerary       []models.ItineraryItem `json:"itinerary"`
	Rules           string                 `json:"rules"`
	MaxParticipants int                    `json:"max_participants"`
}

// Update handles PUT /api/trips/{id}
func (h *TripHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid trip ID format")
		return
	}

	var req updateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	updated, err := h.engine.Update(r.Context(), id, caller, trip.UpdateInput{
		Title:           req.Title,
		Destination:     req.Destination,
		CoverPhoto:      req.CoverPhoto,
		Dates:           req.Dates,
		TravelMode:      req.TravelMode,
		Itinerary:       req.Itinerary,
		Rules:           req.Rules,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Trip updated successfully",
		"trip":    updated,
		"users":   h.hydrate(r, updated),
	})
}

// Cancel handles DELETE /api/trips/{id}: a soft delete. The trip is hidden
// from listings but keeps its roster and history.
func (h *TripHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid trip ID format")
		return
	}

	if _, err := h.engine.Cancel(r.Context(), id, caller); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Trip cancelled successfully")
}

// RequestJoin handles POST /api/trips/{id}/join
func (h *TripHandler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid trip ID format")
		return
	}

	if _, err := h.engine.RequestJoin(r.Context(), id, caller); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Join request sent successfully")
}

// DecideJoinRequest handles POST /api/trips/{id}/join-requests/{requestId}/{action}
func (h *TripHandler) DecideJoinRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid trip ID format")
		return
	}
	requestID, ok := pathID(r, "requestId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid request ID format")
		return
	}
	decision := trip.Decision(r.PathValue("action"))

	updated, err := h.engine.DecideJoinRequest(r.Context(), id, caller, requestID, decision)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Join request " + string(decision) + "d successfully",
		"trip":    updated,
		"users":   h.hydrate(r, updated),
	})
}

// Leave handles POST /api/trips/{id}/leave
func (h *TripHandler) Leave(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid trip ID format")
		return
	}

	if _, err := h.engine.Leave(r.Context(), id, caller); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Left trip successfully")
}

// OverrideStatus handles PUT /api/trips/{id}/status. The written status is
// transient: it is re-derived from the dates on the next save.
func (h *TripHandler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid trip ID format")
		return
	}

	var req struct {
		Status models.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	updated, err := h.engine.OverrideStatus(r.Context(), id, caller, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Trip status updated successfully",
		"trip":    updated,
	})
}

// ReconcileStatuses handles PUT /api/trips/bulk/update-status
func (h *TripHandler) ReconcileStatuses(w http.ResponseWriter, r *http.Request) {
	updated, err := h.engine.ReconcileStatuses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Bulk status update completed",
		"updated_count": updated,
	})
}

// Restart handles POST /api/trips/{id}/restart
func (h *TripHandler) Restart(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid trip ID format")
		return
	}

	var req struct {
		Dates models.DateRange `json:"dates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	updated, err := h.engine.Restart(r.Context(), id, caller, req.Dates)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Trip restarted successfully",
		"trip":    updated,
		"users":   h.hydrate(r, updated),
	})
}

// SubmitReview handles POST /api/trips/{id}/reviews
func (h *TripHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid trip ID format")
		return
	}

	var req struct {
		Rating      int    `json:"rating"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	updated, err := h.engine.SubmitReview(r.Context(), id, caller, req.Rating, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Review added successfully",
		"trip":    updated,
		"users":   h.hydrate(r, updated),
	})
}

// hydrate loads the user summaries referenced by one trip. Trip documents
// carry ObjectID references only; the response attaches loaded summaries
// keyed by hex id so clients never have to guess whether a reference is
// populated.
func (h *TripHandler) hydrate(r *http.Request, t *models.Trip) map[string]models.UserSummary {
	return h.hydrateAll(r, []models.Trip{*t})
}

func (h *TripHandler) hydrateAll(r *http.Request, trips []models.Trip) map[string]models.UserSummary {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for i := range trips {
		add(trips[i].Organizer)
		for _, p := range trips[i].Participants {
			add(p)
		}
		for _, jr := range trips[i].JoinRequests {
			add(jr.User)
		}
		for _, rev := range trips[i].Reviews {
			add(rev.User)
		}
		for _, rev := range trips[i].PreviousReviews {
			add(rev.User)
		}
	}

	users, err := h.users.FindUsersByIDs(r.Context(), ids)
	if err != nil {
		log.WithError(err).Warn("Failed to hydrate trip users")
		return nil
	}

	summaries := make(map[string]models.UserSummary, len(users))
	for i := range users {
		summaries[users[i].ID.Hex()] = users[i].Summary()
	}
	return summaries
}
