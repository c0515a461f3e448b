package currency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNoRate signals that no exchange-rate snapshot has been recorded yet.
var ErrNoRate = errors.New("currency: no rate recorded")

// Rate is a USD→VES exchange-rate snapshot.
type Rate struct {
	ID         uuid.UUID       `json:"id"`
	Rate       decimal.Decimal `json:"rate"`
	Source     string          `json:"source"`
	ObservedAt time.Time       `json:"observed_at"`
	CreatedBy  uuid.UUID       `json:"created_by"`
}

// Store defines the persistence operations required by the currency service.
type Store interface {
	GetLatestRate(ctx context.Context) (Rate, error)
	InsertRate(ctx context.Context, r Rate) (Rate, error)
}

// PGStore implements Store backed by PostgreSQL.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s *PGStore) GetLatestRate(ctx context.Context) (Rate, error) {
	const q = `
		SELECT id, rate, source, observed_at, created_by
		FROM exchange_rates
		ORDER BY observed_at DESC
		LIMIT 1`
	var r Rate
	err := s.Pool.QueryRow(ctx, q).Scan(&r.ID, &r.Rate, &r.Source, &r.ObservedAt, &r.CreatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrNoRate
	}
	if err != nil {
		return Rate{}, err
	}
	return r, nil
}

func (s *PGStore) InsertRate(ctx context.Context, r Rate) (Rate, error) {
	const q = `
		INSERT INTO exchange_rates (rate, source, observed_at, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := s.Pool.QueryRow(ctx, q, r.Rate, r.Source, r.ObservedAt, r.CreatedBy).Scan(&r.ID)
	if err != nil {
		return Rate{}, err
	}
	return r, nil
}
