package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGStore implements Store backed by PostgreSQL.
type PGStore struct {
	Pool *pgxpool.Pool
}

type pgTxStore struct {
	tx pgx.Tx
}

// InTx runs fn inside a single transaction, committing only on success.
func (s *PGStore) InTx(ctx context.Context, fn func(TxStore) error) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(&pgTxStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const productRowColumns = `id, barcode, name, sale_price_usd, stock, active`

func (s *PGStore) GetProducts(ctx context.Context, ids []uuid.UUID) ([]ProductRow, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+productRowColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProductRows(rows, len(ids))
}

func (t *pgTxStore) GetProductsForUpdate(ctx context.Context, ids []uuid.UUID) ([]ProductRow, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+productRowColumns+` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProductRows(rows, len(ids))
}

func collectProductRows(rows pgx.Rows, capacity int) ([]ProductRow, error) {
	out := make([]ProductRow, 0, capacity)
	for rows.Next() {
		var p ProductRow
		if err := rows.Scan(&p.ID, &p.Barcode, &p.Name, &p.SalePriceUSD, &p.Stock, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTxStore) DeductStock(ctx context.Context, productID uuid.UUID, qty int) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2`,
		productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// NextReceiptSeq advances the per-day receipt counter atomically.
func (t *pgTxStore) NextReceiptSeq(ctx context.Context, day time.Time) (int, error) {
	const q = `
		INSERT INTO receipt_counters (day, seq) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET seq = receipt_counters.seq + 1
		RETURNING seq`
	var seq int
	if err := t.tx.QueryRow(ctx, q, day.Format("2006-01-02")).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

const saleColumns = `id, receipt_number, session_id, register_id, user_id, payment_method, rate,
	subtotal_usd, subtotal_ves, discount_usd, discount_ves, tax_usd, tax_ves,
	total_usd, total_ves, received_usd, received_ves, change_usd, change_ves, created_at`

func (t *pgTxStore) InsertSale(ctx context.Context, sale Sale) (Sale, error) {
	const q = `
		INSERT INTO sales
			(receipt_number, session_id, register_id, user_id, payment_method, rate,
			 subtotal_usd, subtotal_ves, discount_usd, discount_ves, tax_usd, tax_ves,
			 total_usd, total_ves, received_usd, received_ves, change_usd, change_ves)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING id, created_at`
	err := t.tx.QueryRow(ctx, q,
		sale.ReceiptNumber, sale.SessionID, sale.RegisterID, sale.UserID, string(sale.Method), sale.Rate,
		sale.SubtotalUSD, sale.SubtotalVES, sale.DiscountUSD, sale.DiscountVES, sale.TaxUSD, sale.TaxVES,
		sale.TotalUSD, sale.TotalVES, sale.ReceivedUSD, sale.ReceivedVES, sale.ChangeUSD, sale.ChangeVES,
	).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

func (t *pgTxStore) InsertSaleItems(ctx context.Context, saleID uuid.UUID, items []SaleItem) error {
	const q = `
		INSERT INTO sale_items
			(sale_id, product_id, product_name, barcode, qty,
			 unit_price_usd, unit_price_ves, line_total_usd, line_total_ves)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	for _, item := range items {
		if _, err := t.tx.Exec(ctx, q, saleID, item.ProductID, item.ProductName, item.Barcode,
			item.Qty, item.UnitPriceUSD, item.UnitPriceVES, item.LineTotalUSD, item.LineTotalVES); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTxStore) BumpSessionTotals(ctx context.Context, sessionID uuid.UUID, totalUSD, totalVES decimal.Decimal) error {
	const q = `
		UPDATE register_sessions
		SET total_sales_usd = total_sales_usd + $2,
		    total_sales_ves = total_sales_ves + $3,
		    sales_count = sales_count + 1
		WHERE id = $1 AND status = 'open'`
	tag, err := t.tx.Exec(ctx, q, sessionID, totalUSD, totalVES)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("sales: session not open")
	}
	return nil
}

func (s *PGStore) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	sale, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrSaleNotFound
	}
	if err != nil {
		return Sale{}, err
	}
	items, err := s.listItems(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	sale.Items = items
	return sale, nil
}

func (s *PGStore) ListSalesByDay(ctx context.Context, day time.Time) ([]Sale, error) {
	const q = `
		SELECT ` + saleColumns + ` FROM sales
		WHERE created_at >= $1 AND created_at < $1 + interval '1 day'
		ORDER BY created_at`
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	rows, err := s.Pool.Query(ctx, q, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

func (s *PGStore) listItems(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error) {
	const q = `
		SELECT id, sale_id, product_id, product_name, barcode, qty,
		       unit_price_usd, unit_price_ves, line_total_usd, line_total_ves
		FROM sale_items WHERE sale_id = $1 ORDER BY id`
	rows, err := s.Pool.Query(ctx, q, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SaleItem
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Barcode,
			&item.Qty, &item.UnitPriceUSD, &item.UnitPriceVES, &item.LineTotalUSD, &item.LineTotalVES); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanSale(row pgx.Row) (Sale, error) {
	var sale Sale
	var method string
	err := row.Scan(&sale.ID, &sale.ReceiptNumber, &sale.SessionID, &sale.RegisterID, &sale.UserID,
		&method, &sale.Rate,
		&sale.SubtotalUSD, &sale.SubtotalVES, &sale.DiscountUSD, &sale.DiscountVES,
		&sale.TaxUSD, &sale.TaxVES, &sale.TotalUSD, &sale.TotalVES,
		&sale.ReceivedUSD, &sale.ReceivedVES, &sale.ChangeUSD, &sale.ChangeVES, &sale.CreatedAt)
	if err != nil {
		return Sale{}, err
	}
	sale.Method = pricingMethod(method)
	return sale, nil
}
