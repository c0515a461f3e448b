package sales

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robertoclunarc/minisuper-pos/internal/common"
	"github.com/robertoclunarc/minisuper-pos/internal/events"
	"github.com/robertoclunarc/minisuper-pos/internal/obs"
	"github.com/robertoclunarc/minisuper-pos/internal/pricing"
	"github.com/robertoclunarc/minisuper-pos/internal/register"
)

// SessionGate supplies the caller's open register session; satisfied by
// register.Service.
type SessionGate interface {
	OpenSession(ctx context.Context, userID uuid.UUID) (register.Session, error)
}

// RateProvider supplies the current USD→VES rate; satisfied by currency.Service.
type RateProvider interface {
	CurrentRateValue(ctx context.Context) (decimal.Decimal, error)
}

// CacheInvalidator drops cached catalog entries after stock changes;
// satisfied by catalog.Service.
type CacheInvalidator interface {
	InvalidateProduct(ctx context.Context, id uuid.UUID, barcode string)
}

// Service orchestrates sale submission, lookup, receipts, and quotes.
type Service struct {
	store         Store
	sessions      SessionGate
	rates         RateProvider
	invalidator   CacheInvalidator
	bus           *events.Bus
	taxRate       decimal.Decimal
	receiptPrefix string
	now           func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store         Store
	Sessions      SessionGate
	Rates         RateProvider
	Invalidator   CacheInvalidator
	Bus           *events.Bus
	TaxRateBPS    int
	ReceiptPrefix string
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("sales: store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("sales: session gate is required")
	}
	if cfg.Rates == nil {
		return nil, errors.New("sales: rate provider is required")
	}
	bps := cfg.TaxRateBPS
	if bps < 0 {
		return nil, errors.New("sales: tax rate must be non-negative")
	}
	if bps == 0 {
		bps = 1600
	}
	prefix := cfg.ReceiptPrefix
	if prefix == "" {
		prefix = "V"
	}
	return &Service{
		store:         cfg.Store,
		sessions:      cfg.Sessions,
		rates:         cfg.Rates,
		invalidator:   cfg.Invalidator,
		bus:           cfg.Bus,
		taxRate:       pricing.TaxRateFromBps(bps),
		receiptPrefix: prefix,
		now:           time.Now,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create submits a ticket. The whole flow runs inside one transaction:
// gate on the open session, lock products, recompute totals server-side,
// check tender, deduct stock, persist, bump session totals.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (Sale, error) {
	method, err := pricing.ParseMethod(input.Method)
	if err != nil {
		return Sale{}, s.reject("", common.ValidationError("unknown payment method", err))
	}
	sess, err := s.sessions.OpenSession(ctx, userID)
	if err != nil {
		return Sale{}, s.reject(string(method), err)
	}
	rate, err := s.rates.CurrentRateValue(ctx)
	if err != nil {
		return Sale{}, s.reject(string(method), err)
	}

	qtyByID, ids, err := consolidateItems(input.Items)
	if err != nil {
		return Sale{}, s.reject(string(method), err)
	}

	var sale Sale
	var touched []ProductRow
	txErr := s.store.InTx(ctx, func(tx TxStore) error {
		products, err := tx.GetProductsForUpdate(ctx, ids)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		byID := make(map[uuid.UUID]ProductRow, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		lines := make([]pricing.Line, 0, len(ids))
		for _, id := range ids {
			p, ok := byID[id]
			if !ok || !p.Active {
				return common.NotFoundError("product not found: " + id.String())
			}
			qty := qtyByID[id]
			if qty > p.Stock {
				return common.NewAppError("INSUFFICIENT_STOCK",
					fmt.Sprintf("insufficient stock for %s", p.Name),
					http.StatusConflict, nil)
			}
			lines = append(lines, pricing.Line{ProductID: id, UnitPriceUSD: p.SalePriceUSD, Qty: qty})
		}

		totals, err := pricing.ComputeTotals(lines, input.DiscountUSD, rate, s.taxRate)
		if err != nil {
			return translatePricingErr(err)
		}
		rounded := totals.Rounded()

		change := pricing.Change{ChangeUSD: decimal.Zero, ChangeVES: decimal.Zero, Sufficient: true}
		receivedUSD, receivedVES := decimal.Zero, decimal.Zero
		if method.RequiresCash() {
			receivedUSD, receivedVES = input.ReceivedUSD, input.ReceivedVES
			computed, err := pricing.ComputeChange(totals.TotalUSD, receivedUSD, receivedVES, rate)
			if err != nil {
				return translatePricingErr(err)
			}
			if !computed.Sufficient {
				return common.NewAppError("INSUFFICIENT_TENDER", "received amount does not cover the total",
					http.StatusUnprocessableEntity, nil)
			}
			change = computed.Rounded()
		}

		day := s.now()
		seq, err := tx.NextReceiptSeq(ctx, day)
		if err != nil {
			return fmt.Errorf("receipt sequence: %w", err)
		}

		sale = Sale{
			ReceiptNumber: fmt.Sprintf("%s-%s-%04d", s.receiptPrefix, day.Format("20060102"), seq),
			SessionID:     sess.ID,
			RegisterID:    sess.RegisterID,
			UserID:        userID,
			Method:        method,
			Rate:          rate,
			SubtotalUSD:   rounded.SubtotalUSD,
			SubtotalVES:   rounded.SubtotalVES,
			DiscountUSD:   rounded.DiscountUSD,
			DiscountVES:   rounded.DiscountVES,
			TaxUSD:        rounded.TaxUSD,
			TaxVES:        rounded.TaxVES,
			TotalUSD:      rounded.TotalUSD,
			TotalVES:      rounded.TotalVES,
			ReceivedUSD:   pricing.Round2(receivedUSD),
			ReceivedVES:   pricing.Round2(receivedVES),
			ChangeUSD:     change.ChangeUSD,
			ChangeVES:     change.ChangeVES,
		}
		sale, err = tx.InsertSale(ctx, sale)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		items := make([]SaleItem, 0, len(lines))
		for _, line := range lines {
			p := byID[line.ProductID]
			lineUSD := line.UnitPriceUSD.Mul(decimal.NewFromInt(int64(line.Qty)))
			items = append(items, SaleItem{
				SaleID:       sale.ID,
				ProductID:    p.ID,
				ProductName:  p.Name,
				Barcode:      p.Barcode,
				Qty:          line.Qty,
				UnitPriceUSD: pricing.Round2(line.UnitPriceUSD),
				UnitPriceVES: pricing.Round2(line.UnitPriceUSD.Mul(rate)),
				LineTotalUSD: pricing.Round2(lineUSD),
				LineTotalVES: pricing.Round2(lineUSD.Mul(rate)),
			})
		}
		if err := tx.InsertSaleItems(ctx, sale.ID, items); err != nil {
			return fmt.Errorf("insert sale items: %w", err)
		}
		sale.Items = items

		for _, line := range lines {
			if err := tx.DeductStock(ctx, line.ProductID, line.Qty); err != nil {
				return fmt.Errorf("deduct stock: %w", err)
			}
		}
		if err := tx.BumpSessionTotals(ctx, sess.ID, sale.TotalUSD, sale.TotalVES); err != nil {
			return fmt.Errorf("bump session totals: %w", err)
		}
		touched = products
		return nil
	})
	if txErr != nil {
		return Sale{}, s.reject(string(method), txErr)
	}

	if s.invalidator != nil {
		for _, p := range touched {
			s.invalidator.InvalidateProduct(ctx, p.ID, p.Barcode)
		}
	}
	if s.bus != nil {
		_, _ = s.bus.Emit(ctx, events.TopicSaleCreated, sale.ID, map[string]any{
			"receipt_number": sale.ReceiptNumber,
			"total_usd":      sale.TotalUSD.String(),
			"method":         string(sale.Method),
		})
	}
	if obs.SalesTotal != nil {
		obs.SalesTotal.WithLabelValues(string(method), "ok").Inc()
	}
	return sale, nil
}

// Quote previews totals and change without touching stock or requiring an
// open session. It is the single server-side source of the totals formula.
func (s *Service) Quote(ctx context.Context, input CreateInput) (Quote, error) {
	method, err := pricing.ParseMethod(input.Method)
	if err != nil {
		return Quote{}, s.rejectQuote(common.ValidationError("unknown payment method", err))
	}
	rate, err := s.rates.CurrentRateValue(ctx)
	if err != nil {
		return Quote{}, s.rejectQuote(err)
	}
	qtyByID, ids, err := consolidateItems(input.Items)
	if err != nil {
		return Quote{}, s.rejectQuote(err)
	}
	products, err := s.store.GetProducts(ctx, ids)
	if err != nil {
		return Quote{}, s.rejectQuote(fmt.Errorf("load products: %w", err))
	}
	byID := make(map[uuid.UUID]ProductRow, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	lines := make([]pricing.Line, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.Active {
			return Quote{}, s.rejectQuote(common.NotFoundError("product not found: " + id.String()))
		}
		lines = append(lines, pricing.Line{ProductID: id, UnitPriceUSD: p.SalePriceUSD, Qty: qtyByID[id]})
	}
	totals, err := pricing.ComputeTotals(lines, input.DiscountUSD, rate, s.taxRate)
	if err != nil {
		return Quote{}, s.rejectQuote(translatePricingErr(err))
	}
	quote := Quote{Totals: totals.Rounded(), Rate: rate}
	if method.RequiresCash() {
		change, err := pricing.ComputeChange(totals.TotalUSD, input.ReceivedUSD, input.ReceivedVES, rate)
		if err != nil {
			return Quote{}, s.rejectQuote(translatePricingErr(err))
		}
		rounded := change.Rounded()
		quote.Change = &rounded
	}
	if obs.QuoteTotal != nil {
		obs.QuoteTotal.WithLabelValues("ok").Inc()
	}
	return quote, nil
}

// Get fetches a persisted sale with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Sale, error) {
	sale, err := s.store.GetSale(ctx, id)
	if errors.Is(err, ErrSaleNotFound) {
		return Sale{}, common.NotFoundError("sale not found")
	}
	if err != nil {
		return Sale{}, fmt.Errorf("get sale: %w", err)
	}
	return sale, nil
}

// BuildReceipt renders the receipt payload from persisted figures.
func (s *Service) BuildReceipt(ctx context.Context, id uuid.UUID) (Receipt, error) {
	sale, err := s.Get(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	lines := make([]ReceiptLine, 0, len(sale.Items))
	for _, item := range sale.Items {
		lines = append(lines, ReceiptLine{
			Name:     item.ProductName,
			Qty:      item.Qty,
			UnitUSD:  item.UnitPriceUSD,
			TotalUSD: item.LineTotalUSD,
			TotalVES: item.LineTotalVES,
		})
	}
	return Receipt{
		ReceiptNumber: sale.ReceiptNumber,
		IssuedAt:      sale.CreatedAt,
		Cashier:       sale.UserID,
		Method:        sale.Method,
		Rate:          sale.Rate,
		Lines:         lines,
		SubtotalUSD:   sale.SubtotalUSD,
		DiscountUSD:   sale.DiscountUSD,
		TaxUSD:        sale.TaxUSD,
		TotalUSD:      sale.TotalUSD,
		TotalVES:      sale.TotalVES,
		ReceivedUSD:   sale.ReceivedUSD,
		ReceivedVES:   sale.ReceivedVES,
		ChangeUSD:     sale.ChangeUSD,
		ChangeVES:     sale.ChangeVES,
	}, nil
}

// Daily lists a day's tickets with aggregate stats.
func (s *Service) Daily(ctx context.Context, day time.Time) ([]Sale, DailyStats, error) {
	list, err := s.store.ListSalesByDay(ctx, day)
	if err != nil {
		return nil, DailyStats{}, fmt.Errorf("list sales: %w", err)
	}
	stats := DailyStats{
		Date:       day.Format("2006-01-02"),
		Count:      len(list),
		TotalUSD:   decimal.Zero,
		TotalVES:   decimal.Zero,
		ByMethod:   map[string]int{},
		AmountsUSD: map[string]decimal.Decimal{},
	}
	for _, sale := range list {
		stats.TotalUSD = stats.TotalUSD.Add(sale.TotalUSD)
		stats.TotalVES = stats.TotalVES.Add(sale.TotalVES)
		m := string(sale.Method)
		stats.ByMethod[m]++
		stats.AmountsUSD[m] = stats.AmountsUSD[m].Add(sale.TotalUSD)
	}
	return list, stats, nil
}

func (s *Service) reject(method string, err error) error {
	if obs.SalesTotal != nil {
		if method == "" {
			method = "unknown"
		}
		obs.SalesTotal.WithLabelValues(method, "rejected").Inc()
	}
	return err
}

func (s *Service) rejectQuote(err error) error {
	if obs.QuoteTotal != nil {
		obs.QuoteTotal.WithLabelValues("rejected").Inc()
	}
	return err
}

// consolidateItems merges duplicate product lines and validates quantities.
func consolidateItems(items []ItemInput) (map[uuid.UUID]int, []uuid.UUID, error) {
	if len(items) == 0 {
		return nil, nil, common.ValidationError("at least one item is required", nil)
	}
	qtyByID := make(map[uuid.UUID]int, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, nil, common.ValidationError("product id is required", nil)
		}
		if item.Qty <= 0 {
			return nil, nil, common.ValidationError("qty must be a positive integer", pricing.ErrInvalidLine)
		}
		if _, seen := qtyByID[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		qtyByID[item.ProductID] += item.Qty
	}
	return qtyByID, ids, nil
}

func translatePricingErr(err error) error {
	switch {
	case errors.Is(err, pricing.ErrInvalidRate):
		return common.NewAppError("NO_EXCHANGE_RATE", "exchange rate must be positive", http.StatusConflict, err)
	case errors.Is(err, pricing.ErrInvalidLine):
		return common.ValidationError("invalid sale line", err)
	default:
		return err
	}
}

func pricingMethod(raw string) pricing.Method {
	m, err := pricing.ParseMethod(raw)
	if err != nil {
		return pricing.Method(raw)
	}
	return m
}
