package currency

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robertoclunarc/minisuper-pos/internal/common"
	"github.com/robertoclunarc/minisuper-pos/internal/obs"
)

// Handler exposes exchange-rate endpoints.
type Handler struct {
	Service *Service
}

type updateRateRequest struct {
	Rate   decimal.Decimal `json:"rate"`
	Source string          `json:"source"`
}

// Current handles GET /api/v1/currency/current.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	rate, err := h.Service.Current(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, rate)
}

// Convert handles GET /api/v1/currency/convert?amount=&from=&to=.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := decimal.NewFromString(strings.TrimSpace(q.Get("amount")))
	if err != nil {
		common.WriteError(w, common.ValidationError("amount must be a decimal number", err))
		return
	}
	conv, err := h.Service.Convert(r.Context(), amount, q.Get("from"), q.Get("to"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, conv)
}

// UpdateRate handles POST /api/v1/currency/rate (admin only).
func (h *Handler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	var req updateRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	userID, _ := common.UserID(r.Context())
	createdBy, _ := uuid.Parse(userID)
	rate, err := h.Service.Update(r.Context(), req.Rate, req.Source, createdBy)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if obs.RateUpdatesTotal != nil {
		obs.RateUpdatesTotal.Inc()
	}
	common.JSONData(w, http.StatusCreated, rate)
}
