package handlers

import (
	"net/http"
	"time"

	"courier-dispatch/internal/domain"
	mw "courier-dispatch/internal/http/middleware"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/location"
)

// CourierHandler handles the courier-facing endpoints.
type CourierHandler struct {
	usecase  deliveryUsecase
	reader   deliveryReader
	couriers courierStore
	offers   offerFeed
	ingest   locationIngest
	index    candidateIndex
	logger   logx.Logger

	now func() time.Time
}

// NewCourierHandler creates a new CourierHandler.
func NewCourierHandler(
	logger logx.Logger,
	uc deliveryUsecase,
	reader deliveryReader,
	couriers courierStore,
	offers offerFeed,
	ingest locationIngest,
	index candidateIndex,
) *CourierHandler {
	return &CourierHandler{
		usecase:  uc,
		reader:   reader,
		couriers: couriers,
		offers:   offers,
		ingest:   ingest,
		index:    index,
		logger:   logger,
		now:      time.Now,
	}
}

// Accept handles POST /courier/accept-delivery/{id}: first accept wins.
func (h *CourierHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid delivery id")
		return
	}

	d, err := h.usecase.Claim(r.Context(), id, userID)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":  true,
		"delivery": deliveryToDTO(*d),
	})
}

// Status handles PUT /courier/delivery-status/{id}.
func (h *CourierHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "invalid delivery id")
		return
	}

	var req transitionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	tr := domain.TransitionRequest{
		DeliveryID: id,
		To:         req.Status,
		Actor:      domain.ActorCourier,
		ActorID:    userID,
		Notes:      req.Notes,
	}
	if req.Location != nil {
		tr.Lat = &req.Location.Lat
		tr.Lng = &req.Location.Lng
	}
	if req.Proof != nil {
		tr.Proof = domain.Proof{
			PhotoURL:     req.Proof.PhotoURL,
			SignatureURL: req.Proof.SignatureURL,
			IDVerified:   req.Proof.IDVerified,
		}
	}

	d, err := h.usecase.Transition(r.Context(), tr)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":  true,
		"delivery": deliveryToDTO(*d),
	})
}

// Availability handles PUT /courier/availability. Going available with a
// position also primes the dispatch geo index; going unavailable drops the
// courier from it.
func (h *CourierHandler) Availability(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())

	var req availabilityRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	var lat, lng *float64
	if req.Location != nil {
		lat, lng = &req.Location.Lat, &req.Location.Lng
	}
	if err := h.couriers.SetAvailability(r.Context(), userID, req.IsAvailable, lat, lng); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}

	if req.IsAvailable && req.Location != nil {
		if err := h.index.Upsert(r.Context(), userID, req.Location.Lat, req.Location.Lng); err != nil {
			h.logger.Warn("geo index upsert failed", logx.Int64("courier_id", userID), logx.Any("err", err))
		}
	}
	if !req.IsAvailable {
		if err := h.index.Remove(r.Context(), userID); err != nil {
			h.logger.Warn("geo index remove failed", logx.Int64("courier_id", userID), logx.Any("err", err))
		}
	}

	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":      true,
		"is_available": req.IsAvailable,
	})
}

// Location handles POST /courier/location: a direct position sample outside
// the Kafka path.
func (h *CourierHandler) Location(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())

	var req locationSampleRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	rep := location.Report{
		CourierID:    userID,
		Lat:          req.Lat,
		Lng:          req.Lng,
		AccuracyM:    req.AccuracyM,
		Heading:      req.Heading,
		SpeedMps:     req.SpeedMps,
		BatteryLevel: req.BatteryLevel,
	}
	if req.RecordedAt != nil {
		rep.RecordedAt = *req.RecordedAt
	}

	if err := h.ingest.Handle(r.Context(), rep); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusAccepted, map[string]any{"success": true})
}

// DeliveryRequests handles GET /courier/delivery-requests: the pull view of
// the courier's current offers.
func (h *CourierHandler) DeliveryRequests(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())

	offers, err := h.offers.OffersFor(r.Context(), userID)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":  true,
		"requests": offers,
	})
}

// ActiveDelivery handles GET /courier/active-delivery: the expanded view with
// access codes and the pickup verification code.
func (h *CourierHandler) ActiveDelivery(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())

	c, err := h.couriers.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	if c == nil {
		writeError(h.logger, w, r, http.StatusNotFound, "not_found", "no courier profile")
		return
	}
	if c.ActiveDeliveryID == nil {
		writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
			"success":  true,
			"delivery": nil,
		})
		return
	}

	d, err := h.reader.Get(r.Context(), *c.ActiveDeliveryID)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	if d == nil {
		writeError(h.logger, w, r, http.StatusNotFound, "not_found", "active delivery not found")
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":  true,
		"delivery": deliveryToDTO(*d),
	})
}

// Earnings handles GET /courier/earnings?period=day|week|month|all.
func (h *CourierHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())

	period := domain.EarningsPeriod(r.URL.Query().Get("period"))
	if period == "" {
		period = domain.EarningsAll
	}
	if !period.Valid() {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "unknown earnings period")
		return
	}

	c, err := h.couriers.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	if c == nil {
		writeError(h.logger, w, r, http.StatusNotFound, "not_found", "no courier profile")
		return
	}

	total, daily, err := h.couriers.Earnings(r.Context(), userID, periodStart(period, h.now()))
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	recent, err := h.couriers.RecentCredits(r.Context(), userID, 20)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}

	days := make([]dailyEarningsDTO, 0, len(daily))
	for _, d := range daily {
		days = append(days, dailyEarningsDTO{
			Day:    d.Day.Format("2006-01-02"),
			Amount: d.Amount,
			Count:  d.Count,
		})
	}
	credits := make([]ledgerEntryDTO, 0, len(recent))
	for _, e := range recent {
		credits = append(credits, ledgerEntryDTO{
			DeliveryID: e.DeliveryID,
			Amount:     e.Amount,
			Kind:       e.Kind,
			CreatedAt:  e.CreatedAt,
		})
	}

	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success": true,
		"earnings": map[string]any{
			"period":         period,
			"balance":        c.AccountBalance,
			"total":          total,
			"daily":          days,
			"recent_credits": credits,
		},
	})
}

func periodStart(p domain.EarningsPeriod, now time.Time) time.Time {
	switch p {
	case domain.EarningsDay:
		return now.AddDate(0, 0, -1)
	case domain.EarningsWeek:
		return now.AddDate(0, 0, -7)
	case domain.EarningsMonth:
		return now.AddDate(0, -1, 0)
	default:
		return time.Time{}
	}
}
