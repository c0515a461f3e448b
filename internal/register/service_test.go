package register_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/robertoclunarc/minisuper-pos/internal/register"
)

type fakeStore struct {
	registers []register.Register
	sessions  []*register.Session
}

func (f *fakeStore) ListRegisters(_ context.Context) ([]register.Register, error) {
	return f.registers, nil
}

func (f *fakeStore) GetRegister(_ context.Context, id uuid.UUID) (register.Register, error) {
	for _, r := range f.registers {
		if r.ID == id {
			return r, nil
		}
	}
	return register.Register{}, register.ErrRegisterNotFound
}

func (f *fakeStore) CreateSession(_ context.Context, s register.Session) (register.Session, error) {
	for _, existing := range f.sessions {
		if existing.RegisterID == s.RegisterID && existing.Status == register.StatusOpen {
			return register.Session{}, register.ErrSessionAlreadyOpen
		}
	}
	s.ID = uuid.New()
	s.Status = register.StatusOpen
	s.TotalSalesUSD = decimal.Zero
	s.TotalSalesVES = decimal.Zero
	f.sessions = append(f.sessions, &s)
	return s, nil
}

func (f *fakeStore) GetOpenSessionByUser(_ context.Context, userID uuid.UUID) (register.Session, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.Status == register.StatusOpen {
			return *s, nil
		}
	}
	return register.Session{}, register.ErrNoOpenSession
}

func (f *fakeStore) GetOpenSessionByRegister(_ context.Context, registerID uuid.UUID) (register.Session, error) {
	for _, s := range f.sessions {
		if s.RegisterID == registerID && s.Status == register.StatusOpen {
			return *s, nil
		}
	}
	return register.Session{}, register.ErrNoOpenSession
}

func (f *fakeStore) CloseSession(_ context.Context, id uuid.UUID, closedAt time.Time, countedUSD, countedVES, closingRate decimal.Decimal) (register.Session, error) {
	for _, s := range f.sessions {
		if s.ID == id && s.Status == register.StatusOpen {
			s.Status = register.StatusClosed
			s.ClosedAt = &closedAt
			s.ClosingUSD = &countedUSD
			s.ClosingVES = &countedVES
			s.ClosingRate = &closingRate
			return *s, nil
		}
	}
	return register.Session{}, register.ErrNoOpenSession
}

type fixedRate struct {
	rate decimal.Decimal
	err  error
}

func (f fixedRate) CurrentRateValue(context.Context) (decimal.Decimal, error) {
	return f.rate, f.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newService(t *testing.T, store register.Store, rates register.RateProvider) *register.Service {
	t.Helper()
	svc, err := register.NewService(register.ServiceConfig{Store: store, Rates: rates})
	require.NoError(t, err)
	return svc
}

func activeRegister() register.Register {
	return register.Register{ID: uuid.New(), Number: 1, Name: "Caja 1", Active: true}
}

func TestOpenSessionHappyPath(t *testing.T) {
	reg := activeRegister()
	store := &fakeStore{registers: []register.Register{reg}}
	svc := newService(t, store, fixedRate{rate: dec("36.50")})
	user := uuid.New()

	sess, err := svc.Open(context.Background(), user, reg.ID, dec("100.00"), dec("500.00"))
	require.NoError(t, err)
	require.Equal(t, register.StatusOpen, sess.Status)
	require.Equal(t, "36.5", sess.OpeningRate.String())

	status, err := svc.Status(context.Background(), user)
	require.NoError(t, err)
	require.True(t, status.Open)
	require.Equal(t, sess.ID, status.Session.ID)
}

func TestOpenRejectsNegativeFloats(t *testing.T) {
	reg := activeRegister()
	svc := newService(t, &fakeStore{registers: []register.Register{reg}}, fixedRate{rate: dec("36.50")})

	_, err := svc.Open(context.Background(), uuid.New(), reg.ID, dec("-1"), dec("0"))
	require.Error(t, err)
}

func TestOpenRejectsUnknownRegister(t *testing.T) {
	svc := newService(t, &fakeStore{}, fixedRate{rate: dec("36.50")})
	_, err := svc.Open(context.Background(), uuid.New(), uuid.New(), dec("0"), dec("0"))
	require.Error(t, err)
}

func TestOpenRejectsInactiveRegister(t *testing.T) {
	reg := activeRegister()
	reg.Active = false
	svc := newService(t, &fakeStore{registers: []register.Register{reg}}, fixedRate{rate: dec("36.50")})

	_, err := svc.Open(context.Background(), uuid.New(), reg.ID, dec("0"), dec("0"))
	require.Error(t, err)
}

func TestOpenTwiceSameRegister(t *testing.T) {
	reg := activeRegister()
	store := &fakeStore{registers: []register.Register{reg}}
	svc := newService(t, store, fixedRate{rate: dec("36.50")})

	_, err := svc.Open(context.Background(), uuid.New(), reg.ID, dec("0"), dec("0"))
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), uuid.New(), reg.ID, dec("0"), dec("0"))
	require.Error(t, err)
}

func TestOpenTwiceSameUser(t *testing.T) {
	reg1 := activeRegister()
	reg2 := register.Register{ID: uuid.New(), Number: 2, Name: "Caja 2", Active: true}
	store := &fakeStore{registers: []register.Register{reg1, reg2}}
	svc := newService(t, store, fixedRate{rate: dec("36.50")})
	user := uuid.New()

	_, err := svc.Open(context.Background(), user, reg1.ID, dec("0"), dec("0"))
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), user, reg2.ID, dec("0"), dec("0"))
	require.Error(t, err)
}

func TestOpenFailsWithoutRate(t *testing.T) {
	reg := activeRegister()
	svc := newService(t, &fakeStore{registers: []register.Register{reg}},
		fixedRate{err: errors.New("no rate")})

	_, err := svc.Open(context.Background(), uuid.New(), reg.ID, dec("0"), dec("0"))
	require.Error(t, err)
}

func TestCloseSession(t *testing.T) {
	reg := activeRegister()
	store := &fakeStore{registers: []register.Register{reg}}
	svc := newService(t, store, fixedRate{rate: dec("36.50")})
	user := uuid.New()

	_, err := svc.Open(context.Background(), user, reg.ID, dec("100.00"), dec("0"))
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), user, dec("180.00"), dec("200.00"))
	require.NoError(t, err)
	require.Equal(t, register.StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	require.Equal(t, "180.00", closed.ClosingUSD.StringFixed(2))

	// register can be reopened after close
	_, err = svc.Open(context.Background(), user, reg.ID, dec("50.00"), dec("0"))
	require.NoError(t, err)
}

func TestCloseWithoutOpenSession(t *testing.T) {
	svc := newService(t, &fakeStore{}, fixedRate{rate: dec("36.50")})
	_, err := svc.Close(context.Background(), uuid.New(), dec("0"), dec("0"))
	require.Error(t, err)
}

func TestStatusClosed(t *testing.T) {
	svc := newService(t, &fakeStore{}, fixedRate{rate: dec("36.50")})
	status, err := svc.Status(context.Background(), uuid.New())
	require.NoError(t, err)
	require.False(t, status.Open)
	require.Nil(t, status.Session)
}
