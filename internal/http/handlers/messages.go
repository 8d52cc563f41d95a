package handlers

import (
	"net/http"

	mw "courier-dispatch/internal/http/middleware"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/messages"
)

// MessageHandler handles the per-delivery chat endpoints. Requests may carry a
// bearer token or a tracking token; the tracking side always speaks as the
// recipient.
type MessageHandler struct {
	relay  messageRelay
	tokens tokenResolver
	logger logx.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(logger logx.Logger, relay messageRelay, tokens tokenResolver) *MessageHandler {
	return &MessageHandler{relay: relay, tokens: tokens, logger: logger}
}

// caller resolves the chat identity: bearer user, or tracking token bound to
// the delivery in the path.
func (h *MessageHandler) caller(w http.ResponseWriter, r *http.Request, deliveryID int64, trackingToken string) (messages.Caller, bool) {
	if userID, ok := mw.UserID(r.Context()); ok {
		return messages.Caller{UserID: userID}, true
	}
	if trackingToken == "" {
		trackingToken = r.URL.Query().Get("tracking_token")
	}
	if trackingToken == "" {
		writeError(h.logger, w, r, http.StatusUnauthorized, "unauthorized", "a bearer token or tracking token is required")
		return messages.Caller{}, false
	}

	t, err := h.tokens.Resolve(r.Context(), trackingToken)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return messages.Caller{}, false
	}
	if t.DeliveryID != deliveryID {
		writeError(h.logger, w, r, http.StatusForbidden, "forbidden", "tracking token is bound to another delivery")
		return messages.Caller{}, false
	}
	return messages.Caller{Recipient: true}, true
}

// History handles GET /messages/{id}, where id names the delivery.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	deliveryID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid delivery id")
		return
	}

	c, ok := h.caller(w, r, deliveryID, "")
	if !ok {
		return
	}

	msgs, err := h.relay.History(r.Context(), deliveryID, c)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":  true,
		"messages": messagesToDTO(msgs),
	})
}

// Send handles POST /messages/{id}, where id names the delivery.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	deliveryID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid delivery id")
		return
	}

	var req sendMessageRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	c, ok := h.caller(w, r, deliveryID, req.TrackingToken)
	if !ok {
		return
	}

	m, err := h.relay.Send(r.Context(), deliveryID, c, req.Content, req.AttachmentURL)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, map[string]any{
		"success": true,
		"message": messageToDTO(*m),
	})
}

// MarkRead handles PUT /messages/{id}/read. Only the recipient of the message
// may flag it, so this endpoint is bearer-only.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid message id")
		return
	}

	if err := h.relay.MarkRead(r.Context(), id, userID); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{"success": true})
}
