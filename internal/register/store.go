package register

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Sentinel errors for session-state violations.
var (
	ErrRegisterNotFound   = errors.New("register: not found")
	ErrNoOpenSession      = errors.New("register: no open session")
	ErrSessionAlreadyOpen = errors.New("register: session already open")
)

// Session status values.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Register is a physical cash register.
type Register struct {
	ID     uuid.UUID `json:"id"`
	Number int       `json:"number"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// Session is one cashier shift on a register. Opening and closing floats are
// counted in both currencies; the rate in force is stamped at each end so the
// till can be reconciled even after the rate moves.
type Session struct {
	ID            uuid.UUID        `json:"id"`
	RegisterID    uuid.UUID        `json:"register_id"`
	UserID        uuid.UUID        `json:"user_id"`
	Status        string           `json:"status"`
	OpenedAt      time.Time        `json:"opened_at"`
	ClosedAt      *time.Time       `json:"closed_at,omitempty"`
	OpeningUSD    decimal.Decimal  `json:"opening_usd"`
	OpeningVES    decimal.Decimal  `json:"opening_ves"`
	OpeningRate   decimal.Decimal  `json:"opening_rate"`
	ClosingUSD    *decimal.Decimal `json:"closing_usd,omitempty"`
	ClosingVES    *decimal.Decimal `json:"closing_ves,omitempty"`
	ClosingRate   *decimal.Decimal `json:"closing_rate,omitempty"`
	TotalSalesUSD decimal.Decimal  `json:"total_sales_usd"`
	TotalSalesVES decimal.Decimal  `json:"total_sales_ves"`
	SalesCount    int              `json:"sales_count"`
}

// Store defines the persistence operations required by the register service.
type Store interface {
	ListRegisters(ctx context.Context) ([]Register, error)
	GetRegister(ctx context.Context, id uuid.UUID) (Register, error)
	CreateSession(ctx context.Context, s Session) (Session, error)
	GetOpenSessionByUser(ctx context.Context, userID uuid.UUID) (Session, error)
	GetOpenSessionByRegister(ctx context.Context, registerID uuid.UUID) (Session, error)
	CloseSession(ctx context.Context, id uuid.UUID, closedAt time.Time, countedUSD, countedVES, closingRate decimal.Decimal) (Session, error)
}

// PGStore implements Store backed by PostgreSQL. A partial unique index on
// register_sessions(register_id) WHERE status = 'open' enforces the
// one-open-session invariant at the database level.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s *PGStore) ListRegisters(ctx context.Context) ([]Register, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, number, name, active FROM registers ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Register
	for rows.Next() {
		var r Register
		if err := rows.Scan(&r.ID, &r.Number, &r.Name, &r.Active); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) GetRegister(ctx context.Context, id uuid.UUID) (Register, error) {
	var r Register
	err := s.Pool.QueryRow(ctx, `SELECT id, number, name, active FROM registers WHERE id = $1`, id).
		Scan(&r.ID, &r.Number, &r.Name, &r.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Register{}, ErrRegisterNotFound
	}
	if err != nil {
		return Register{}, err
	}
	return r, nil
}

const sessionColumns = `id, register_id, user_id, status, opened_at, closed_at,
	opening_usd, opening_ves, opening_rate, closing_usd, closing_ves, closing_rate,
	total_sales_usd, total_sales_ves, sales_count`

func (s *PGStore) CreateSession(ctx context.Context, sess Session) (Session, error) {
	const q = `
		INSERT INTO register_sessions
			(register_id, user_id, status, opened_at, opening_usd, opening_ves, opening_rate)
		VALUES ($1, $2, 'open', $3, $4, $5, $6)
		RETURNING ` + sessionColumns
	row := s.Pool.QueryRow(ctx, q, sess.RegisterID, sess.UserID, sess.OpenedAt,
		sess.OpeningUSD, sess.OpeningVES, sess.OpeningRate)
	created, err := scanSession(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Session{}, ErrSessionAlreadyOpen
		}
		return Session{}, err
	}
	return created, nil
}

func (s *PGStore) GetOpenSessionByUser(ctx context.Context, userID uuid.UUID) (Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM register_sessions WHERE user_id = $1 AND status = 'open'`
	return s.openSession(s.Pool.QueryRow(ctx, q, userID))
}

func (s *PGStore) GetOpenSessionByRegister(ctx context.Context, registerID uuid.UUID) (Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM register_sessions WHERE register_id = $1 AND status = 'open'`
	return s.openSession(s.Pool.QueryRow(ctx, q, registerID))
}

func (s *PGStore) openSession(row pgx.Row) (Session, error) {
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNoOpenSession
	}
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *PGStore) CloseSession(ctx context.Context, id uuid.UUID, closedAt time.Time, countedUSD, countedVES, closingRate decimal.Decimal) (Session, error) {
	const q = `
		UPDATE register_sessions
		SET status = 'closed', closed_at = $2, closing_usd = $3, closing_ves = $4, closing_rate = $5
		WHERE id = $1 AND status = 'open'
		RETURNING ` + sessionColumns
	sess, err := scanSession(s.Pool.QueryRow(ctx, q, id, closedAt, countedUSD, countedVES, closingRate))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNoOpenSession
	}
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func scanSession(row pgx.Row) (Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.RegisterID, &sess.UserID, &sess.Status,
		&sess.OpenedAt, &sess.ClosedAt,
		&sess.OpeningUSD, &sess.OpeningVES, &sess.OpeningRate,
		&sess.ClosingUSD, &sess.ClosingVES, &sess.ClosingRate,
		&sess.TotalSalesUSD, &sess.TotalSalesVES, &sess.SalesCount)
	return sess, err
}
