package register

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
)

// RateProvider supplies the current USD→VES rate; satisfied by currency.Service.
type RateProvider interface {
	CurrentRateValue(ctx context.Context) (decimal.Decimal, error)
}

// Service manages register sessions.
type Service struct {
	store Store
	rates RateProvider
	bus   *events.Bus
	now   func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store Store
	Rates RateProvider
	Bus   *events.Bus
}

// StatusResult reports whether the queried register/user has an open session.
type StatusResult struct {
	Open    bool     `json:"open"`
	Session *Session `json:"session,omitempty"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("register: store is required")
	}
	if cfg.Rates == nil {
		return nil, errors.New("register: rate provider is required")
	}
	return &Service{
		store: cfg.Store,
		rates: cfg.Rates,
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

// List returns all registers.
func (s *Service) List(ctx context.Context) ([]Register, error) {
	return s.store.ListRegisters(ctx)
}

// Status reports the open session for the given user, if any.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (StatusResult, error) {
	sess, err := s.store.GetOpenSessionByUser(ctx, userID)
	if errors.Is(err, ErrNoOpenSession) {
		return StatusResult{Open: false}, nil
	}
	if err != nil {
		return StatusResult{}, fmt.Errorf("get open session: %w", err)
	}
	return StatusResult{Open: true, Session: &sess}, nil
}

// OpenSession returns the caller's open session, or an AppError when the
// register is closed. The sales service gates ticket submission on this.
func (s *Service) OpenSession(ctx context.Context, userID uuid.UUID) (Session, error) {
	sess, err := s.store.GetOpenSessionByUser(ctx, userID)
	if errors.Is(err, ErrNoOpenSession) {
		return Session{}, common.NewAppError("SESSION_CLOSED", "no open register session", http.StatusConflict, err)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get open session: %w", err)
	}
	return sess, nil
}

// Open starts a session on the register with counted opening floats.
func (s *Service) Open(ctx context.Context, userID, registerID uuid.UUID, openingUSD, openingVES decimal.Decimal) (Session, error) {
	if openingUSD.Sign() < 0 || openingVES.Sign() < 0 {
		return Session{}, common.ValidationError("opening amounts must be non-negative", nil)
	}
	reg, err := s.store.GetRegister(ctx, registerID)
	if err != nil {
		if errors.Is(err, ErrRegisterNotFound) {
			return Session{}, common.NotFoundError("register not found")
		}
		return Session{}, fmt.Errorf("get register: %w", err)
	}
	if !reg.Active {
		return Session{}, common.ConflictError("REGISTER_INACTIVE", "register is inactive")
	}
	if _, err := s.store.GetOpenSessionByUser(ctx, userID); err == nil {
		return Session{}, common.ConflictError("SESSION_ALREADY_OPEN", "user already has an open session")
	} else if !errors.Is(err, ErrNoOpenSession) {
		return Session{}, fmt.Errorf("check user session: %w", err)
	}
	rate, err := s.rates.CurrentRateValue(ctx)
	if err != nil {
		return Session{}, err
	}

	sess, err := s.store.CreateSession(ctx, Session{
		RegisterID:  registerID,
		UserID:      userID,
		OpenedAt:    s.now(),
		OpeningUSD:  openingUSD,
		OpeningVES:  openingVES,
		OpeningRate: rate,
	})
	if err != nil {
		if errors.Is(err, ErrSessionAlreadyOpen) {
			return Session{}, common.ConflictError("SESSION_ALREADY_OPEN", "register already has an open session")
		}
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	if obs.RegisterSessionsTotal != nil {
		obs.RegisterSessionsTotal.WithLabelValues("open").Inc()
	}
	if s.bus != nil {
		_, _ = s.bus.Emit(ctx, events.TopicRegisterOpened, sess.ID, map[string]any{
			"register_id": registerID.String(),
			"user_id":     userID.String(),
		})
	}
	return sess, nil
}

// Close ends the caller's open session, stamping counted floats and the
// closing rate.
func (s *Service) Close(ctx context.Context, userID uuid.UUID, countedUSD, countedVES decimal.Decimal) (Session, error) {
	if countedUSD.Sign() < 0 || countedVES.Sign() < 0 {
		return Session{}, common.ValidationError("counted amounts must be non-negative", nil)
	}
	open, err := s.OpenSession(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	rate, err := s.rates.CurrentRateValue(ctx)
	if err != nil {
		return Session{}, err
	}
	closed, err := s.store.CloseSession(ctx, open.ID, s.now(), countedUSD, countedVES, rate)
	if err != nil {
		if errors.Is(err, ErrNoOpenSession) {
			return Session{}, common.NewAppError("SESSION_CLOSED", "no open register session", http.StatusConflict, err)
		}
		return Session{}, fmt.Errorf("close session: %w", err)
	}

	if obs.RegisterSessionsTotal != nil {
		obs.RegisterSessionsTotal.WithLabelValues("close").Inc()
	}
	if s.bus != nil {
		_, _ = s.bus.Emit(ctx, events.TopicRegisterClosed, closed.ID, map[string]any{
			"register_id":     closed.RegisterID.String(),
			"user_id":         userID.String(),
			"total_sales_usd": closed.TotalSalesUSD.String(),
			"sales_count":     closed.SalesCount,
		})
	}
	return closed, nil
}
