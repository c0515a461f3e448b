package sales

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/robertoclunarc/minisuper-pos/internal/common"
)

// Handler exposes sale endpoints.
type Handler struct {
	Service *Service
}

// Create handles POST /api/v1/sales.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var input CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := common.Validate(input); err != nil {
		common.WriteError(w, err)
		return
	}
	sale, err := h.Service.Create(r.Context(), userID, input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, sale)
}

// Quote handles POST /api/v1/sales/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := common.Validate(input); err != nil {
		common.WriteError(w, err)
		return
	}
	quote, err := h.Service.Quote(r.Context(), input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, quote)
}

// Get handles GET /api/v1/sales/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ValidationError("invalid sale id", err))
		return
	}
	sale, err := h.Service.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sale)
}

// GetReceipt handles GET /api/v1/sales/{id}/receipt.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ValidationError("invalid sale id", err))
		return
	}
	receipt, err := h.Service.BuildReceipt(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, receipt)
}

// Daily handles GET /api/v1/sales/daily?fecha=YYYY-MM-DD.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := strings.TrimSpace(r.URL.Query().Get("fecha")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			common.WriteError(w, common.ValidationError("fecha must be YYYY-MM-DD", err))
			return
		}
		day = parsed
	}
	list, stats, err := h.Service.Daily(r.Context(), day)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": list, "stats": stats})
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
