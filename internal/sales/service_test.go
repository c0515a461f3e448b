package sales_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/robertoclunarc/minisuper-pos/internal/common"
	"github.com/robertoclunarc/minisuper-pos/internal/register"
	"github.com/robertoclunarc/minisuper-pos/internal/sales"
)

type fakeState struct {
	products   map[uuid.UUID]sales.ProductRow
	receiptSeq map[string]int
	sales      map[uuid.UUID]sales.Sale
	bumpUSD    decimal.Decimal
	bumpCount  int
}

func (s *fakeState) clone() *fakeState {
	cp := &fakeState{
		products:   make(map[uuid.UUID]sales.ProductRow, len(s.products)),
		receiptSeq: make(map[string]int, len(s.receiptSeq)),
		sales:      make(map[uuid.UUID]sales.Sale, len(s.sales)),
		bumpUSD:    s.bumpUSD,
		bumpCount:  s.bumpCount,
	}
	for k, v := range s.products {
		cp.products[k] = v
	}
	for k, v := range s.receiptSeq {
		cp.receiptSeq[k] = v
	}
	for k, v := range s.sales {
		cp.sales[k] = v
	}
	return cp
}

type fakeStore struct {
	state *fakeState
}

type fakeTx struct {
	state *fakeState
}

func newFakeStore(products ...sales.ProductRow) *fakeStore {
	state := &fakeState{
		products:   map[uuid.UUID]sales.ProductRow{},
		receiptSeq: map[string]int{},
		sales:      map[uuid.UUID]sales.Sale{},
		bumpUSD:    decimal.Zero,
	}
	for _, p := range products {
		state.products[p.ID] = p
	}
	return &fakeStore{state: state}
}

// InTx mirrors transactional semantics: mutations are discarded unless fn succeeds.
func (f *fakeStore) InTx(_ context.Context, fn func(sales.TxStore) error) error {
	staged := f.state.clone()
	if err := fn(&fakeTx{state: staged}); err != nil {
		return err
	}
	f.state = staged
	return nil
}

func (f *fakeStore) GetProducts(_ context.Context, ids []uuid.UUID) ([]sales.ProductRow, error) {
	var out []sales.ProductRow
	for _, id := range ids {
		if p, ok := f.state.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetSale(_ context.Context, id uuid.UUID) (sales.Sale, error) {
	sale, ok := f.state.sales[id]
	if !ok {
		return sales.Sale{}, sales.ErrSaleNotFound
	}
	return sale, nil
}

func (f *fakeStore) ListSalesByDay(_ context.Context, day time.Time) ([]sales.Sale, error) {
	var out []sales.Sale
	for _, sale := range f.state.sales {
		if sale.CreatedAt.Format("2006-01-02") == day.Format("2006-01-02") {
			out = append(out, sale)
		}
	}
	return out, nil
}

func (t *fakeTx) GetProductsForUpdate(_ context.Context, ids []uuid.UUID) ([]sales.ProductRow, error) {
	var out []sales.ProductRow
	for _, id := range ids {
		if p, ok := t.state.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *fakeTx) DeductStock(_ context.Context, productID uuid.UUID, qty int) error {
	p, ok := t.state.products[productID]
	if !ok || p.Stock < qty {
		return sales.ErrProductNotFound
	}
	p.Stock -= qty
	t.state.products[productID] = p
	return nil
}

func (t *fakeTx) NextReceiptSeq(_ context.Context, day time.Time) (int, error) {
	key := day.Format("2006-01-02")
	t.state.receiptSeq[key]++
	return t.state.receiptSeq[key], nil
}

func (t *fakeTx) InsertSale(_ context.Context, sale sales.Sale) (sales.Sale, error) {
	sale.ID = uuid.New()
	sale.CreatedAt = time.Now()
	t.state.sales[sale.ID] = sale
	return sale, nil
}

func (t *fakeTx) InsertSaleItems(_ context.Context, saleID uuid.UUID, items []sales.SaleItem) error {
	sale := t.state.sales[saleID]
	sale.Items = items
	t.state.sales[saleID] = sale
	return nil
}

func (t *fakeTx) BumpSessionTotals(_ context.Context, _ uuid.UUID, totalUSD, _ decimal.Decimal) error {
	t.state.bumpUSD = t.state.bumpUSD.Add(totalUSD)
	t.state.bumpCount++
	return nil
}

type openGate struct {
	session register.Session
}

func (g openGate) OpenSession(context.Context, uuid.UUID) (register.Session, error) {
	return g.session, nil
}

type closedGate struct{}

func (closedGate) OpenSession(context.Context, uuid.UUID) (register.Session, error) {
	return register.Session{}, common.ConflictError("SESSION_CLOSED", "no open register session")
}

type fixedRate struct {
	rate decimal.Decimal
}

func (f fixedRate) CurrentRateValue(context.Context) (decimal.Decimal, error) {
	return f.rate, nil
}

type captureInvalidator struct {
	ids []uuid.UUID
}

func (c *captureInvalidator) InvalidateProduct(_ context.Context, id uuid.UUID, _ string) {
	c.ids = append(c.ids, id)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func product(price string, stock int) sales.ProductRow {
	return sales.ProductRow{
		ID:           uuid.New(),
		Barcode:      "7591234567890",
		Name:         "Harina de maíz 1kg",
		SalePriceUSD: dec(price),
		Stock:        stock,
		Active:       true,
	}
}

func newService(t *testing.T, store sales.Store, gate sales.SessionGate, rate string) *sales.Service {
	t.Helper()
	svc, err := sales.NewService(sales.ServiceConfig{
		Store:      store,
		Sessions:   gate,
		Rates:      fixedRate{rate: dec(rate)},
		TaxRateBPS: 1600,
	})
	require.NoError(t, err)
	return svc
}

func openSession() register.Session {
	return register.Session{ID: uuid.New(), RegisterID: uuid.New(), Status: register.StatusOpen}
}

func TestCreateCashSale(t *testing.T) {
	prod := product("2.50", 10)
	store := newFakeStore(prod)
	inv := &captureInvalidator{}
	svc, err := sales.NewService(sales.ServiceConfig{
		Store:       store,
		Sessions:    openGate{session: openSession()},
		Rates:       fixedRate{rate: dec("36.50")},
		Invalidator: inv,
		TaxRateBPS:  1600,
	})
	require.NoError(t, err)

	sale, err := svc.Create(context.Background(), uuid.New(), sales.CreateInput{
		Items:       []sales.ItemInput{{ProductID: prod.ID, Qty: 3}},
		Method:      "cash_usd",
		ReceivedUSD: dec("10.00"),
	})
	require.NoError(t, err)

	require.Equal(t, "7.50", sale.SubtotalUSD.StringFixed(2))
	require.Equal(t, "1.20", sale.TaxUSD.StringFixed(2))
	require.Equal(t, "8.70", sale.TotalUSD.StringFixed(2))
	require.Equal(t, "317.55", sale.TotalVES.StringFixed(2))
	require.Equal(t, "1.30", sale.ChangeUSD.StringFixed(2))
	require.Equal(t, "47.45", sale.ChangeVES.StringFixed(2))

	require.Regexp(t, `^V-\d{8}-0001$`, sale.ReceiptNumber)
	require.Len(t, sale.Items, 1)
	require.Equal(t, 3, sale.Items[0].Qty)
	require.Equal(t, prod.Name, sale.Items[0].ProductName)

	require.Equal(t, 7, store.state.products[prod.ID].Stock)
	require.Equal(t, "8.70", store.state.bumpUSD.StringFixed(2))
	require.Equal(t, 1, store.state.bumpCount)
	require.Equal(t, []uuid.UUID{prod.ID}, inv.ids)
}

func TestReceiptSequenceIncrements(t *testing.T) {
	prod := product("1.00", 100)
	store := newFakeStore(prod)
	svc := newService(t, store, openGate{session: openSession()}, "36.50")

	input := sales.CreateInput{
		Items:  []sales.ItemInput{{ProductID: prod.ID, Qty: 1}},
		Method: "card",
	}
	first, err := svc.Create(context.Background(), uuid.New(), input)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), uuid.New(), input)
	require.NoError(t, err)

	require.Regexp(t, `-0001$`, first.ReceiptNumber)
	require.Regexp(t, `-0002$`, second.ReceiptNumber)
}

func TestCreateRejectedWhenSessionClosed(t *testing.T) {
	prod := product("2.50", 10)
	store := newFakeStore(prod)
	svc := newService(t, store, closedGate{}, "36.50")

	_, err := svc.Create(context.Background(), uuid.New(), sales.CreateInput{
		Items:  []sales.ItemInput{{ProductID: prod.ID, Qty: 1}},
		Method: "cash_usd",
	})
	require.Error(t, err)
	require.Equal(t, 10, store.state.products[prod.ID].Stock)
}

func TestCreateInsufficientStock(t *testing.T) {
	prod := product("2.50", 2)
	store := newFakeStore(prod)
	svc := newService(t, store, openGate{session: openSession()}, "36.50")

	_, err := svc.Create(context.Background(), uuid.New(), sales.CreateInput{
		Items:       []sales.ItemInput{{ProductID: prod.ID, Qty: 3}},
		Method:      "cash_usd",
		ReceivedUSD: dec("100.00"),
	})
	require.Error(t, err)
	require.Equal(t, 2, store.state.products[prod.ID].Stock)
	require.Empty(t, store.state.sales)
}

func TestCreateInsufficientTenderMixed(t *testing.T) {
	// 10 USD cart, 16% tax => 11.60 total; 5 USD + 100 VES at 36.50 ≈ 7.74 — short
	prod := product("10.00", 5)
	store := newFakeStore(prod)
	svc := newService(t, store, openGate{session: openSession()}, "36.50")

	_, err := svc.Create(context.Background(), uuid.New(), sales.CreateInput{
		Items:       []sales.ItemInput{{ProductID: prod.ID, Qty: 1}},
		Method:      "mixed",
		ReceivedUSD: dec("5.00"),
		ReceivedVES: dec("100.00"),
	})
	require.Error(t, err)
	require.Equal(t, 5, store.state.products[prod.ID].Stock)
	require.Empty(t, store.state.sales)
}

func TestCreateNonCashIgnoresReceived(t *testing.T) {
	prod := product("10.00", 5)
	store := newFakeStore(prod)
	svc := newService(t, store, openGate{session: openSession()}, "36.50")

	sale, err := svc.Create(context.Background(), uuid.New(), sales.CreateInput{
		Items:       []sales.ItemInput{{ProductID: prod.ID, Qty: 1}},
		Method:      "transfer",
		ReceivedUSD: dec("999.00"),
	})
	require.NoError(t, err)
	require.True(t, sale.ReceivedUSD.IsZero())
	require.True(t, sale.ChangeUSD.IsZero())
	require.Equal(t, "11.60", sale.TotalUSD.StringFixed(2))
}

func TestCreateUnknownMethod(t *testing.T) {
	prod := product("1.00", 5)
	svc := newService(t, newFakeStore(prod), openGate{session: openSession()}, "36.50")

	_, err := svc.Create(context.Background(), uuid.New(), sales.CreateInput{
		Items:  []sales.ItemInput{{ProductID: prod.ID, Qty: 1}},
		Method: "crypto",
	})
	require.Error(t, err)
}

func TestCreateConsolidatesDuplicateLines(t *testing.T) {
	prod := product("1.00", 10)
	store := newFakeStore(prod)
	svc := newService(t, store, openGate{session: openSession()}, "36.50")

	sale, err := svc.Create(context.Background(), uuid.New(), sales.CreateInput{
		Items: []sales.ItemInput{
			{ProductID: prod.ID, Qty: 2},
			{ProductID: prod.ID, Qty: 3},
		},
		Method: "card",
	})
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	require.Equal(t, 5, sale.Items[0].Qty)
	require.Equal(t, 5, store.state.products[prod.ID].Stock)
}

func TestCreateDiscountClampedToSubtotal(t *testing.T) {
	// 20 USD discount on a 7.50 cart clamps to 7.50; total is zero
	prod := product("2.50", 10)
	store := newFakeStore(prod)
	svc := newService(t, store, openGate{session: openSession()}, "36.50")

	sale, err := svc.Create(context.Background(), uuid.New(), sales.CreateInput{
		Items:       []sales.ItemInput{{ProductID: prod.ID, Qty: 3}},
		Method:      "cash_usd",
		DiscountUSD: dec("50.00"),
		ReceivedUSD: dec("0.00"),
	})
	require.NoError(t, err)
	require.Equal(t, "7.50", sale.DiscountUSD.StringFixed(2))
	require.Equal(t, "0.00", sale.TotalUSD.StringFixed(2))
	require.Equal(t, "0.00", sale.ChangeUSD.StringFixed(2))
}

func TestQuoteDoesNotTouchStock(t *testing.T) {
	prod := product("2.50", 10)
	store := newFakeStore(prod)
	svc := newService(t, store, openGate{session: openSession()}, "36.50")

	quote, err := svc.Quote(context.Background(), sales.CreateInput{
		Items:       []sales.ItemInput{{ProductID: prod.ID, Qty: 3}},
		Method:      "cash_usd",
		ReceivedUSD: dec("10.00"),
	})
	require.NoError(t, err)
	require.Equal(t, "8.70", quote.Totals.TotalUSD.StringFixed(2))
	require.NotNil(t, quote.Change)
	require.True(t, quote.Change.Sufficient)
	require.Equal(t, "1.30", quote.Change.ChangeUSD.StringFixed(2))
	require.Equal(t, 10, store.state.products[prod.ID].Stock)
}

func TestQuoteNonCashOmitsChange(t *testing.T) {
	prod := product("2.50", 10)
	svc := newService(t, newFakeStore(prod), openGate{session: openSession()}, "36.50")

	quote, err := svc.Quote(context.Background(), sales.CreateInput{
		Items:  []sales.ItemInput{{ProductID: prod.ID, Qty: 1}},
		Method: "card",
	})
	require.NoError(t, err)
	require.Nil(t, quote.Change)
}

func TestGetSaleNotFound(t *testing.T) {
	svc := newService(t, newFakeStore(), openGate{session: openSession()}, "36.50")
	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestBuildReceipt(t *testing.T) {
	prod := product("2.50", 10)
	store := newFakeStore(prod)
	svc := newService(t, store, openGate{session: openSession()}, "36.50")

	sale, err := svc.Create(context.Background(), uuid.New(), sales.CreateInput{
		Items:       []sales.ItemInput{{ProductID: prod.ID, Qty: 3}},
		Method:      "cash_usd",
		ReceivedUSD: dec("10.00"),
	})
	require.NoError(t, err)

	receipt, err := svc.BuildReceipt(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Equal(t, sale.ReceiptNumber, receipt.ReceiptNumber)
	require.Len(t, receipt.Lines, 1)
	require.Equal(t, "7.50", receipt.Lines[0].TotalUSD.StringFixed(2))
	require.Equal(t, "8.70", receipt.TotalUSD.StringFixed(2))
	require.Equal(t, "1.30", receipt.ChangeUSD.StringFixed(2))
}

func TestDailyStats(t *testing.T) {
	prod := product("10.00", 100)
	store := newFakeStore(prod)
	svc := newService(t, store, openGate{session: openSession()}, "36.50")

	_, err := svc.Create(context.Background(), uuid.New(), sales.CreateInput{
		Items: []sales.ItemInput{{ProductID: prod.ID, Qty: 1}}, Method: "card",
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), uuid.New(), sales.CreateInput{
		Items: []sales.ItemInput{{ProductID: prod.ID, Qty: 2}}, Method: "cash_usd", ReceivedUSD: dec("30.00"),
	})
	require.NoError(t, err)

	list, stats, err := svc.Daily(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 2, stats.Count)
	require.Equal(t, "34.80", stats.TotalUSD.StringFixed(2))
	require.Equal(t, 1, stats.ByMethod["card"])
	require.Equal(t, 1, stats.ByMethod["cash_usd"])
	require.Equal(t, "23.20", stats.AmountsUSD["cash_usd"].StringFixed(2))
}
