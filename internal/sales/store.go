package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors surfaced by stores.
var (
	ErrSaleNotFound    = errors.New("sales: sale not found")
	ErrProductNotFound = errors.New("sales: product not found")
)

// ProductRow is the slice of catalog data the sale transaction needs,
// loaded with a row lock so concurrent tickets cannot oversell.
type ProductRow struct {
	ID           uuid.UUID
	Barcode      string
	Name         string
	SalePriceUSD decimal.Decimal
	Stock        int
	Active       bool
}

// TxStore is the per-transaction view used while creating a sale.
type TxStore interface {
	GetProductsForUpdate(ctx context.Context, ids []uuid.UUID) ([]ProductRow, error)
	DeductStock(ctx context.Context, productID uuid.UUID, qty int) error
	NextReceiptSeq(ctx context.Context, day time.Time) (int, error)
	InsertSale(ctx context.Context, sale Sale) (Sale, error)
	InsertSaleItems(ctx context.Context, saleID uuid.UUID, items []SaleItem) error
	BumpSessionTotals(ctx context.Context, sessionID uuid.UUID, totalUSD, totalVES decimal.Decimal) error
}

// Store defines the persistence operations required by the sales service.
type Store interface {
	InTx(ctx context.Context, fn func(TxStore) error) error
	GetProducts(ctx context.Context, ids []uuid.UUID) ([]ProductRow, error)
	GetSale(ctx context.Context, id uuid.UUID) (Sale, error)
	ListSalesByDay(ctx context.Context, day time.Time) ([]Sale, error)
}
