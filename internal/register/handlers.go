package register

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robertoclunarc/minisuper-pos/internal/common"
)

// Handler exposes cash-register endpoints.
type Handler struct {
	Service *Service
}

type openRequest struct {
	RegisterID uuid.UUID       `json:"register_id" validate:"required"`
	OpeningUSD decimal.Decimal `json:"opening_usd"`
	OpeningVES decimal.Decimal `json:"opening_ves"`
}

type closeRequest struct {
	CountedUSD decimal.Decimal `json:"counted_usd"`
	CountedVES decimal.Decimal `json:"counted_ves"`
}

// List handles GET /api/v1/cash-registers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	registers, err := h.Service.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, registers)
}

// Status handles GET /api/v1/cash-registers/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	status, err := h.Service.Status(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, status)
}

// Open handles POST /api/v1/cash-registers/open.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := common.Validate(req); err != nil {
		common.WriteError(w, err)
		return
	}
	sess, err := h.Service.Open(r.Context(), userID, req.RegisterID, req.OpeningUSD, req.OpeningVES)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, sess)
}

// Close handles POST /api/v1/cash-registers/close.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	sess, err := h.Service.Close(r.Context(), userID, req.CountedUSD, req.CountedVES)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sess)
}

func requestUser(r *http.Request) (uuid.UUID, error) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		return uuid.Nil, common.UnauthorizedError("missing or invalid token")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, common.UnauthorizedError("missing or invalid token")
	}
	return id, nil
}
