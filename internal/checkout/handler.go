package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/common"
)

// Handler serves the evaluation endpoints.
type Handler struct {
	Svc *Service
}

// Routes mounts the handler under r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/checkout/discounts", h.Evaluate)
	r.Get("/campaigns", h.ListCampaigns)
}

// Evaluate applies the configured campaigns to the posted cart.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	var payload cart.Input
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.JSONError(w, http.StatusRequestEntityTooLarge, common.CodePayloadTooLarge, "request body too large", nil)
			return
		}
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "invalid JSON payload", nil)
		return
	}
	out, err := h.Svc.Evaluate(r.Context(), payload)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// ListCampaigns returns the configured campaigns in evaluation order.
func (h *Handler) ListCampaigns(w http.ResponseWriter, _ *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	common.Data(w, http.StatusOK, h.Svc.Campaigns())
}
