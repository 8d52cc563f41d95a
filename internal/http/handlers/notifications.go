package handlers

import (
	"net/http"
	"time"

	mw "courier-dispatch/internal/http/middleware"
	"courier-dispatch/internal/logx"
)

// NotificationHandler handles the per-user notification feed.
type NotificationHandler struct {
	store  notificationStore
	logger logx.Logger

	now func() time.Time
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(logger logx.Logger, store notificationStore) *NotificationHandler {
	return &NotificationHandler{store: store, logger: logger, now: time.Now}
}

// List handles GET /notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())

	ns, err := h.store.ListByUser(r.Context(), userID, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":       true,
		"notifications": notificationsToDTO(ns),
	})
}

// MarkRead handles PUT /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid notification id")
		return
	}

	changed, err := h.store.MarkRead(r.Context(), id, userID, h.now())
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	if !changed {
		writeError(h.logger, w, r, http.StatusNotFound, "not_found", "notification not found")
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{"success": true})
}

// MarkAllRead handles PUT /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())

	n, err := h.store.MarkAllRead(r.Context(), userID, h.now())
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success": true,
		"updated": n,
	})
}
