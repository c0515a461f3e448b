package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/robertoclunarc/minisuper-pos/internal/auth"
	"github.com/robertoclunarc/minisuper-pos/internal/catalog"
	"github.com/robertoclunarc/minisuper-pos/internal/common"
)

func newHandler(t *testing.T, products ...catalog.Product) *catalog.Handler {
	t.Helper()
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: &fakeStore{products: products}})
	require.NoError(t, err)
	return &catalog.Handler{Service: svc}
}

func productRequest(target string, role string, params map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = common.WithUser(ctx, uuid.NewString(), role)
	return req.WithContext(ctx)
}

func costedProduct() catalog.Product {
	prod := sampleProduct()
	cost := decimal.RequireFromString("0.95")
	prod.CostPriceUSD = &cost
	return prod
}

func TestProductByIDHidesCostFromCashier(t *testing.T) {
	prod := costedProduct()
	h := newHandler(t, prod)

	req := productRequest("/api/v1/products/"+prod.ID.String(), auth.RoleCashier,
		map[string]string{"id": prod.ID.String()})
	rec := httptest.NewRecorder()
	h.ProductByID(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "sale_price_usd")
	require.NotContains(t, rec.Body.String(), "cost_price_usd")
}

func TestProductByIDShowsCostToAdmin(t *testing.T) {
	prod := costedProduct()
	h := newHandler(t, prod)

	req := productRequest("/api/v1/products/"+prod.ID.String(), auth.RoleAdmin,
		map[string]string{"id": prod.ID.String()})
	rec := httptest.NewRecorder()
	h.ProductByID(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "cost_price_usd")
	require.Contains(t, rec.Body.String(), "0.95")
}

func TestProductListHidesCostFromCashier(t *testing.T) {
	prod := costedProduct()
	h := newHandler(t, prod)

	rec := httptest.NewRecorder()
	h.Products(rec, productRequest("/api/v1/products", auth.RoleCashier, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), prod.Barcode)
	require.NotContains(t, rec.Body.String(), "cost_price_usd")
}

func TestProductByBarcodeHidesCostFromCashier(t *testing.T) {
	prod := costedProduct()
	h := newHandler(t, prod)

	req := productRequest("/api/v1/products/barcode/"+prod.Barcode, auth.RoleCashier,
		map[string]string{"code": prod.Barcode})
	rec := httptest.NewRecorder()
	h.ProductByBarcode(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "cost_price_usd")
}
