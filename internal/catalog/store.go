package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound signals a missing or inactive product.
var ErrNotFound = errors.New("catalog: product not found")

// Product is a sellable item. Prices are USD; VES figures are always derived
// from the current exchange rate at display or sale time, never stored here.
// The cost price is admin-only and redacted in handlers for other roles.
type Product struct {
	ID           uuid.UUID        `json:"id"`
	Barcode      string           `json:"barcode"`
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	Category     string           `json:"category"`
	Unit         string           `json:"unit"`
	SalePriceUSD decimal.Decimal  `json:"sale_price_usd"`
	CostPriceUSD *decimal.Decimal `json:"cost_price_usd,omitempty"`
	Stock        int              `json:"stock"`
	MinStock     int              `json:"min_stock"`
	Active       bool             `json:"active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// SearchParams captures catalog list filters.
type SearchParams struct {
	Query    string
	Category string
	Page     int
	Limit    int
}

// Store defines the persistence operations required by the catalog service.
type Store interface {
	SearchProducts(ctx context.Context, p SearchParams) ([]Product, int64, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (Product, error)
}

// PGStore implements Store backed by PostgreSQL.
type PGStore struct {
	Pool *pgxpool.Pool
}

const productColumns = `id, barcode, code, name, COALESCE(description, ''), category, unit,
	sale_price_usd, cost_price_usd, stock, min_stock, active, created_at, updated_at`

func (s *PGStore) SearchProducts(ctx context.Context, p SearchParams) ([]Product, int64, error) {
	where := []string{"active"}
	args := []any{}
	idx := 1
	if q := strings.TrimSpace(p.Query); q != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR barcode = $%d OR code = $%d)", idx, idx+1, idx+1))
		args = append(args, "%"+q+"%", q)
		idx += 2
	}
	if cat := strings.TrimSpace(p.Category); cat != "" {
		where = append(where, fmt.Sprintf("category = $%d", idx))
		args = append(args, cat)
		idx++
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := s.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM products WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM products WHERE %s ORDER BY name LIMIT $%d OFFSET $%d",
		productColumns, clause, idx, idx+1)
	args = append(args, p.Limit, (p.Page-1)*p.Limit)
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Product, 0, p.Limit)
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, prod)
	}
	return items, total, rows.Err()
}

func (s *PGStore) GetProductByID(ctx context.Context, id uuid.UUID) (Product, error) {
	row := s.Pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	return scanProductRow(row)
}

func (s *PGStore) GetProductByBarcode(ctx context.Context, barcode string) (Product, error) {
	row := s.Pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE barcode = $1", barcode)
	return scanProductRow(row)
}

func scanProductRow(row pgx.Row) (Product, error) {
	prod, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return prod, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var prod Product
	err := row.Scan(&prod.ID, &prod.Barcode, &prod.Code, &prod.Name, &prod.Description,
		&prod.Category, &prod.Unit, &prod.SalePriceUSD, &prod.CostPriceUSD,
		&prod.Stock, &prod.MinStock, &prod.Active, &prod.CreatedAt, &prod.UpdatedAt)
	return prod, err
}
