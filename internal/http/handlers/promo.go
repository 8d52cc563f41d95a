package handlers

import (
	"net/http"

	mw "courier-dispatch/internal/http/middleware"
	"courier-dispatch/internal/logx"
)

// PromoHandler handles the promo dry-run endpoint.
type PromoHandler struct {
	validator promoValidator
	logger    logx.Logger
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(logger logx.Logger, v promoValidator) *PromoHandler {
	return &PromoHandler{validator: v, logger: logger}
}

// Validate handles POST /promo-codes/validate. Nothing is reserved; the same
// rules run again under lock at booking time.
func (h *PromoHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserID(r.Context())

	var req validatePromoRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if req.Code == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid_input", "promo code is required")
		return
	}

	res, err := h.validator.Validate(r.Context(), req.Code, userID, req.OrderAmount)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{
		"success":  true,
		"code":     res.Promo.Code,
		"discount": res.Discount,
	})
}
