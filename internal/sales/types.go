package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robertoclunarc/minisuper-pos/internal/pricing"
)

// Sale is a persisted ticket. All monetary figures are stored rounded to two
// decimals in both currencies; the rate used is stamped on the row.
type Sale struct {
	ID            uuid.UUID       `json:"id"`
	ReceiptNumber string          `json:"receipt_number"`
	SessionID     uuid.UUID       `json:"session_id"`
	RegisterID    uuid.UUID       `json:"register_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Method        pricing.Method  `json:"payment_method"`
	Rate          decimal.Decimal `json:"rate"`
	SubtotalUSD   decimal.Decimal `json:"subtotal_usd"`
	SubtotalVES   decimal.Decimal `json:"subtotal_ves"`
	DiscountUSD   decimal.Decimal `json:"discount_usd"`
	DiscountVES   decimal.Decimal `json:"discount_ves"`
	TaxUSD        decimal.Decimal `json:"tax_usd"`
	TaxVES        decimal.Decimal `json:"tax_ves"`
	TotalUSD      decimal.Decimal `json:"total_usd"`
	TotalVES      decimal.Decimal `json:"total_ves"`
	ReceivedUSD   decimal.Decimal `json:"received_usd"`
	ReceivedVES   decimal.Decimal `json:"received_ves"`
	ChangeUSD     decimal.Decimal `json:"change_usd"`
	ChangeVES     decimal.Decimal `json:"change_ves"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []SaleItem      `json:"items,omitempty"`
}

// SaleItem is one line of a ticket, denormalised so receipts survive later
// catalog edits. The id is the bigint identity assigned by the sale_items
// table, not a UUID.
type SaleItem struct {
	ID           int64           `json:"id"`
	SaleID       uuid.UUID       `json:"sale_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Barcode      string          `json:"barcode"`
	Qty          int             `json:"qty"`
	UnitPriceUSD decimal.Decimal `json:"unit_price_usd"`
	UnitPriceVES decimal.Decimal `json:"unit_price_ves"`
	LineTotalUSD decimal.Decimal `json:"line_total_usd"`
	LineTotalVES decimal.Decimal `json:"line_total_ves"`
}

// ItemInput is a requested line on an incoming ticket.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,gt=0"`
}

// CreateInput is the payload for sale submission and quotes. The client may
// show its own preview, but the figures persisted here are always recomputed
// server-side from catalog prices and the current rate.
type CreateInput struct {
	Items       []ItemInput     `json:"items" validate:"required,min=1,dive"`
	Method      string          `json:"payment_method" validate:"required"`
	DiscountUSD decimal.Decimal `json:"discount_usd"`
	ReceivedUSD decimal.Decimal `json:"received_usd"`
	ReceivedVES decimal.Decimal `json:"received_ves"`
}

// Quote is the preview returned by the quote endpoint.
type Quote struct {
	Totals pricing.Totals  `json:"totals"`
	Change *pricing.Change `json:"change,omitempty"`
	Rate   decimal.Decimal `json:"rate"`
}

// DailyStats aggregates a day's tickets.
type DailyStats struct {
	Date       string                     `json:"date"`
	Count      int                        `json:"count"`
	TotalUSD   decimal.Decimal            `json:"total_usd"`
	TotalVES   decimal.Decimal            `json:"total_ves"`
	ByMethod   map[string]int             `json:"by_method"`
	AmountsUSD map[string]decimal.Decimal `json:"amounts_usd_by_method"`
}

// Receipt is the rendered payload for GET /sales/{id}/receipt, built from
// persisted figures only.
type Receipt struct {
	ReceiptNumber string          `json:"receipt_number"`
	IssuedAt      time.Time       `json:"issued_at"`
	Cashier       uuid.UUID       `json:"cashier_id"`
	Method        pricing.Method  `json:"payment_method"`
	Rate          decimal.Decimal `json:"rate"`
	Lines         []ReceiptLine   `json:"lines"`
	SubtotalUSD   decimal.Decimal `json:"subtotal_usd"`
	DiscountUSD   decimal.Decimal `json:"discount_usd"`
	TaxUSD        decimal.Decimal `json:"tax_usd"`
	TotalUSD      decimal.Decimal `json:"total_usd"`
	TotalVES      decimal.Decimal `json:"total_ves"`
	ReceivedUSD   decimal.Decimal `json:"received_usd"`
	ReceivedVES   decimal.Decimal `json:"received_ves"`
	ChangeUSD     decimal.Decimal `json:"change_usd"`
	ChangeVES     decimal.Decimal `json:"change_ves"`
}

// ReceiptLine is one printed line.
type ReceiptLine struct {
	Name     string          `json:"name"`
	Qty      int             `json:"qty"`
	UnitUSD  decimal.Decimal `json:"unit_usd"`
	TotalUSD decimal.Decimal `json:"total_usd"`
	TotalVES decimal.Decimal `json:"total_ves"`
}
