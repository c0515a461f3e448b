package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/robertoclunarc/minisuper-pos/internal/common"
	"github.com/robertoclunarc/minisuper-pos/internal/events"
	"github.com/robertoclunarc/minisuper-pos/internal/pricing"
)

const currentRateKey = "pos:currency:current"

// Currency codes accepted by Convert.
const (
	CodeUSD = "USD"
	CodeVES = "VES"
)

// Service manages exchange-rate snapshots and conversions.
type Service struct {
	store Store
	redis *redis.Client
	ttl   time.Duration
	bus   *events.Bus
	now   func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store    Store
	Redis    *redis.Client
	CacheTTL time.Duration
	Bus      *events.Bus
}

// Conversion is the payload returned by Convert.
type Conversion struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Converted decimal.Decimal `json:"converted"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("currency: store is required")
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		store: cfg.Store,
		redis: cfg.Redis,
		ttl:   ttl,
		bus:   cfg.Bus,
		now:   time.Now,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Current returns the latest exchange-rate snapshot, consulting the cache first.
func (s *Service) Current(ctx context.Context) (Rate, error) {
	if s.redis != nil {
		if data, err := s.redis.Get(ctx, currentRateKey).Bytes(); err == nil {
			var cached Rate
			if json.Unmarshal(data, &cached) == nil && cached.Rate.Sign() > 0 {
				return cached, nil
			}
		}
	}
	rate, err := s.store.GetLatestRate(ctx)
	if err != nil {
		if errors.Is(err, ErrNoRate) {
			return Rate{}, common.NewAppError("NO_EXCHANGE_RATE", "no exchange rate configured", http.StatusConflict, err)
		}
		return Rate{}, fmt.Errorf("get latest rate: %w", err)
	}
	s.cacheRate(ctx, rate)
	return rate, nil
}

// CurrentRateValue returns the latest rate value for pricing. Non-positive
// stored rates are rejected rather than silently defaulting to parity.
func (s *Service) CurrentRateValue(ctx context.Context) (decimal.Decimal, error) {
	rate, err := s.Current(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if rate.Rate.Sign() <= 0 {
		return decimal.Decimal{}, common.NewAppError("NO_EXCHANGE_RATE", "exchange rate must be positive",
			http.StatusConflict, pricing.ErrInvalidRate)
	}
	return rate.Rate, nil
}

// Convert converts an amount between USD and VES at the latest rate.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (Conversion, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if !validCode(from) || !validCode(to) {
		return Conversion{}, common.ValidationError("currency must be USD or VES", nil)
	}
	if amount.Sign() < 0 {
		return Conversion{}, common.ValidationError("amount must be non-negative", nil)
	}
	rate, err := s.CurrentRateValue(ctx)
	if err != nil {
		return Conversion{}, err
	}
	converted := amount
	switch {
	case from == CodeUSD && to == CodeVES:
		converted = amount.Mul(rate)
	case from == CodeVES && to == CodeUSD:
		converted = amount.Div(rate)
	}
	return Conversion{
		Amount:    amount,
		From:      from,
		To:        to,
		Rate:      rate,
		Converted: pricing.Round2(converted),
	}, nil
}

// Update records a new exchange-rate snapshot and invalidates the cache.
func (s *Service) Update(ctx context.Context, value decimal.Decimal, source string, createdBy uuid.UUID) (Rate, error) {
	if value.Sign() <= 0 {
		return Rate{}, common.ValidationError("rate must be positive", pricing.ErrInvalidRate)
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = "manual"
	}
	rate, err := s.store.InsertRate(ctx, Rate{
		Rate:       value,
		Source:     source,
		ObservedAt: s.now(),
		CreatedBy:  createdBy,
	})
	if err != nil {
		return Rate{}, fmt.Errorf("insert rate: %w", err)
	}
	if s.redis != nil {
		_ = s.redis.Del(ctx, currentRateKey).Err()
	}
	if s.bus != nil {
		_, _ = s.bus.Emit(ctx, events.TopicRateUpdated, rate.ID, map[string]any{
			"rate":   rate.Rate.String(),
			"source": rate.Source,
		})
	}
	return rate, nil
}

func (s *Service) cacheRate(ctx context.Context, rate Rate) {
	if s.redis == nil {
		return
	}
	if data, err := json.Marshal(rate); err == nil {
		_ = s.redis.Set(ctx, currentRateKey, data, s.ttl).Err()
	}
}

func validCode(code string) bool {
	return code == CodeUSD || code == CodeVES
}
