package handlers

import (
	"errors"
	"net/http"

	"github.com/tourmates/backend/internal/db"
)

// NotificationHandler serves the notification read model: listing a user's
// inbox and acknowledging entries. Writing happens only through the sink.
type NotificationHandler struct {
	notifications db.NotificationCollection
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications db.NotificationCollection) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}

	notifications, err := h.notifications.FindNotificationsByUser(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	unread, err := h.notifications.CountUnread(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// MarkRead handles PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User context not found")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid notification ID format")
		return
	}

	if err := h.notifications.MarkRead(r.Context(), id, caller); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Notification not found")
			return
		}
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Notification marked as read")
}
