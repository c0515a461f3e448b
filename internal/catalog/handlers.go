package catalog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/robertoclunarc/minisuper-pos/internal/auth"
	"github.com/robertoclunarc/minisuper-pos/internal/common"
)

// Handler exposes catalog endpoints.
type Handler struct {
	Service *Service
}

// Products handles GET /api/v1/products with search and pagination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	params, err := h.Service.ParseSearchParams(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Service.Search(r.Context(), params)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	items := result.Items
	if !viewerIsAdmin(r.Context()) {
		items = make([]Product, len(result.Items))
		for i, prod := range result.Items {
			items[i] = redactCost(prod)
		}
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.Pagination{Page: result.Page, PerPage: result.Limit, TotalItems: result.Total},
	})
}

// ProductByID handles GET /api/v1/products/{id}.
func (h *Handler) ProductByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ValidationError("invalid product id", err))
		return
	}
	prod, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !viewerIsAdmin(r.Context()) {
		prod = redactCost(prod)
	}
	common.JSONData(w, http.StatusOK, prod)
}

// ProductByBarcode handles GET /api/v1/products/barcode/{code}.
func (h *Handler) ProductByBarcode(w http.ResponseWriter, r *http.Request) {
	prod, err := h.Service.GetByBarcode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !viewerIsAdmin(r.Context()) {
		prod = redactCost(prod)
	}
	common.JSONData(w, http.StatusOK, prod)
}

func viewerIsAdmin(ctx context.Context) bool {
	role, ok := common.UserRole(ctx)
	return ok && role == auth.RoleAdmin
}

// redactCost strips the admin-only cost figure before the product leaves the API.
func redactCost(prod Product) Product {
	prod.CostPriceUSD = nil
	return prod
}
