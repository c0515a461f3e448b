package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/robertoclunarc/minisuper-pos/internal/common"
)

// Service orchestrates catalog queries, DTO assembly, and caching.
type Service struct {
	store        Store
	cache        *Cache
	defaultPage  int
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        Store
	Cache        *Cache
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// SearchResult contains list data and pagination metadata.
type SearchResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		store:        cfg.Store,
		cache:        cfg.Cache,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseSearchParams normalises raw query values into strongly typed filters.
func (s *Service) ParseSearchParams(values url.Values) (SearchParams, error) {
	params := SearchParams{
		Query:    strings.TrimSpace(values.Get("q")),
		Category: strings.TrimSpace(values.Get("category")),
		Page:     s.defaultPage,
		Limit:    s.defaultLimit,
	}
	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, common.ValidationError("page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, common.ValidationError("limit must be a positive integer", err)
		}
		params.Limit = limit
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	return params, nil
}

// Search lists active products matching the filters.
func (s *Service) Search(ctx context.Context, params SearchParams) (SearchResult, error) {
	items, total, err := s.store.SearchProducts(ctx, params)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search products: %w", err)
	}
	return SearchResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}, nil
}

// GetByID fetches a product by its identifier, consulting the cache first.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	key := productIDKey(id)
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	prod, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return Product{}, s.translate(err)
	}
	_ = s.cache.SetJSON(ctx, key, prod)
	return prod, nil
}

// GetByBarcode fetches a product by barcode, consulting the cache first.
// Scanner lookups are the hot path at the counter.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Product{}, common.ValidationError("barcode is required", nil)
	}
	key := productBarcodeKey(barcode)
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	prod, err := s.store.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return Product{}, s.translate(err)
	}
	_ = s.cache.SetJSON(ctx, key, prod)
	return prod, nil
}

// InvalidateProduct drops cached entries after a stock or price change.
func (s *Service) InvalidateProduct(ctx context.Context, id uuid.UUID, barcode string) {
	keys := []string{productIDKey(id)}
	if barcode = strings.TrimSpace(barcode); barcode != "" {
		keys = append(keys, productBarcodeKey(barcode))
	}
	_ = s.cache.Delete(ctx, keys...)
}

func (s *Service) translate(err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NotFoundError("product not found")
	}
	return err
}

func productIDKey(id uuid.UUID) string {
	return "pos:catalog:product:" + id.String()
}

func productBarcodeKey(barcode string) string {
	return "pos:catalog:barcode:" + barcode
}
