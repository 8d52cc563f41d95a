package handlers

import (
	"net/http"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	mw "courier-dispatch/internal/http/middleware"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/repository"
	"courier-dispatch/internal/service/lifecycle"
)

// DeliveryHandler handles the sender-facing delivery endpoints.
type DeliveryHandler struct {
	usecase deliveryUsecase
	reader  deliveryReader
	tokens  tokenResolver
	logger  logx.Logger
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(logger logx.Logger, uc deliveryUsecase, reader deliveryReader, tokens tokenResolver) *DeliveryHandler {
	return &DeliveryHandler{usecase: uc, reader: reader, tokens: tokens, logger: logger}
}

// Estimate handles POST /deliveries/estimate.
func (h *DeliveryHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())

	var req estimateRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	est, err := h.usecase.Estimate(r.Context(), lifecycle.EstimateInput{
		SenderID:      userID,
		Pickup:        geo.Point{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng},
		Dropoff:       geo.Point{Lat: req.Dropoff.Lat, Lng: req.Dropoff.Lng},
		PackageTypeID: req.PackageTypeID,
		Weight:        req.Weight,
		Priority:      req.Priority,
		PromoCode:     req.PromoCode,
	})
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}

	writeJSON(h.logger, w, r, http.StatusOK, estimateResponse{
		Success:          true,
		BaseFee:          est.Quote.BaseFee,
		DistanceFee:      est.Quote.DistanceFee,
		WeightFee:        est.Quote.WeightFee,
		PriorityFee:      est.Quote.PriorityFee,
		Tax:              est.Quote.Tax,
		Discount:         est.Discount,
		Total:            est.Total,
		DistanceMiles:    est.Quote.DistanceMiles,
		EstimatedMinutes: est.Quote.EstimatedMinutes,
	})
}

// Create handles POST /deliveries.
func (h *DeliveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())

	var req createDeliveryRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	res, err := h.usecase.Create(r.Context(), lifecycle.CreateInput{
		SenderID:            userID,
		Pickup:              addressFromDTO(req.Pickup),
		Dropoff:             addressFromDTO(req.Dropoff),
		PackageTypeID:       req.PackageTypeID,
		Weight:              req.Weight,
		Description:         req.Description,
		Fragile:             req.Fragile,
		RequiresSignature:   req.RequiresSignature,
		RequiresID:          req.RequiresID,
		RequiresPhotoProof:  req.RequiresPhotoProof,
		Recipient:           domain.RecipientContact{Name: req.Recipient.Name, Phone: req.Recipient.Phone},
		SpecialInstructions: req.SpecialInstructions,
		Priority:            req.Priority,
		ScheduledPickupAt:   req.ScheduledPickupAt,
		PaymentMethodID:     req.PaymentMethodID,
		PromoCode:           req.PromoCode,
		PackagePhotoURL:     req.PackagePhotoURL,
	})
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}

	writeJSON(h.logger, w, r, http.StatusCreated, map[string]any{
		"success":                 true,
		"delivery":                deliveryToDTO(res.Delivery),
		"payment":                 paymentToDTO(res.Payment),
		"tracking_token":          res.SenderToken.Token,
		"recipient_tracking_token": res.RecipientToken.Token,
	})
}

// Get handles GET /deliveries/{id}. A bearer participant sees the full record;
// a tracking-token holder gets the redacted view.
func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid delivery id")
		return
	}

	if token := r.URL.Query().Get("tracking_token"); token != "" {
		h.getByToken(w, r, id, token)
		return
	}

	userID, ok := mw.UserID(r.Context())
	if !ok {
		writeError(h.logger, w, r, http.StatusUnauthorized, "unauthorized", "a bearer token or tracking token is required")
		return
	}

	d, err := h.reader.Get(r.Context(), id)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	if d == nil {
		writeError(h.logger, w, r, http.StatusNotFound, "not_found", "delivery not found")
		return
	}
	if d.SenderID != userID && (d.CourierID == nil || *d.CourierID != userID) {
		writeError(h.logger, w, r, http.StatusForbidden, "forbidden", "not a participant of this delivery")
		return
	}

	history, err := h.reader.StatusEvents(r.Context(), id)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}

	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":        true,
		"delivery":       deliveryToDTO(*d),
		"status_history": statusEventsToDTO(history),
	})
}

func (h *DeliveryHandler) getByToken(w http.ResponseWriter, r *http.Request, id int64, token string) {
	t, err := h.tokens.Resolve(r.Context(), token)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	if t.DeliveryID != id {
		writeError(h.logger, w, r, http.StatusForbidden, "forbidden", "tracking token is bound to another delivery")
		return
	}

	d, err := h.reader.Get(r.Context(), id)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	if d == nil {
		writeError(h.logger, w, r, http.StatusNotFound, "not_found", "delivery not found")
		return
	}

	history, err := h.reader.StatusEvents(r.Context(), id)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}

	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":        true,
		"delivery":       deliveryToTrackingDTO(*d),
		"status_history": statusEventsToDTO(history),
	})
}

// List handles GET /deliveries. The caller picks the courier scope with
// ?role=courier; the default scope is the sender's own deliveries.
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())

	f := repository.ListFilter{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if r.URL.Query().Get("role") == "courier" {
		f.CourierID = &userID
	} else {
		f.SenderID = &userID
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.DeliveryStatus(s)
		if !status.Valid() {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "unknown status filter")
			return
		}
		f.Status = &status
	}

	list, err := h.reader.List(r.Context(), f)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}

	out := make([]deliveryDTO, 0, len(list))
	for _, d := range list {
		out = append(out, deliveryToDTO(d))
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":    true,
		"deliveries": out,
	})
}

// Cancel handles PUT /deliveries/{id}/cancel.
func (h *DeliveryHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid delivery id")
		return
	}

	var req cancelRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	d, err := h.usecase.Transition(r.Context(), domain.TransitionRequest{
		DeliveryID: id,
		To:         domain.StatusCancelled,
		Actor:      domain.ActorSender,
		ActorID:    userID,
		Reason:     req.Reason,
	})
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":  true,
		"delivery": deliveryToDTO(*d),
	})
}

// Tip handles POST /deliveries/{id}/tip.
func (h *DeliveryHandler) Tip(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid delivery id")
		return
	}

	var req tipRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	p, err := h.usecase.AddTip(r.Context(), id, userID, req.Amount)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success": true,
		"payment": paymentToDTO(*p),
	})
}

// Rate handles POST /deliveries/{id}/rate.
func (h *DeliveryHandler) Rate(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid delivery id")
		return
	}

	var req rateRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	rt, err := h.usecase.Rate(r.Context(), lifecycle.RateInput{
		DeliveryID:    id,
		RaterID:       userID,
		Overall:       req.Overall,
		Timeliness:    req.Timeliness,
		Communication: req.Communication,
		Handling:      req.Handling,
		Comment:       req.Comment,
	})
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, map[string]any{
		"success": true,
		"rating": map[string]any{
			"id":       rt.ID,
			"overall":  rt.Overall,
			"ratee_id": rt.RateeID,
		},
	})
}

// ReportIssue handles POST /deliveries/{id}/report-issue.
func (h *DeliveryHandler) ReportIssue(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid delivery id")
		return
	}

	var req reportIssueRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	issue, err := h.usecase.ReportIssue(r.Context(), lifecycle.IssueInput{
		DeliveryID:  id,
		ReporterID:  userID,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, map[string]any{
		"success": true,
		"issue": map[string]any{
			"id":       issue.ID,
			"category": issue.Category,
		},
	})
}

// Receipt handles GET /deliveries/{id}/receipt.
func (h *DeliveryHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid delivery id")
		return
	}

	rec, err := h.usecase.Receipt(r.Context(), id, userID)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":  true,
		"delivery": deliveryToDTO(rec.Delivery),
		"payment":  paymentToDTO(rec.Payment),
	})
}
