package currency_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/robertoclunarc/minisuper-pos/internal/currency"
)

type fakeStore struct {
	rates       []currency.Rate
	latestCalls int
}

func (f *fakeStore) GetLatestRate(_ context.Context) (currency.Rate, error) {
	f.latestCalls++
	if len(f.rates) == 0 {
		return currency.Rate{}, currency.ErrNoRate
	}
	latest := f.rates[0]
	for _, r := range f.rates[1:] {
		if r.ObservedAt.After(latest.ObservedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (f *fakeStore) InsertRate(_ context.Context, r currency.Rate) (currency.Rate, error) {
	r.ID = uuid.New()
	f.rates = append(f.rates, r)
	return r, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newService(t *testing.T, store currency.Store) (*currency.Service, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc, err := currency.NewService(currency.ServiceConfig{
		Store:    store,
		Redis:    client,
		CacheTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc, client
}

func TestCurrentNoRate(t *testing.T) {
	svc, _ := newService(t, &fakeStore{})
	_, err := svc.Current(context.Background())
	require.Error(t, err)
}

func TestCurrentCaches(t *testing.T) {
	store := &fakeStore{rates: []currency.Rate{{
		ID:         uuid.New(),
		Rate:       dec("36.50"),
		Source:     "bcv",
		ObservedAt: time.Now(),
	}}}
	svc, _ := newService(t, store)

	first, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.True(t, first.Rate.Equal(dec("36.50")))

	_, err = svc.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, store.latestCalls)
}

func TestConvertUSDToVES(t *testing.T) {
	store := &fakeStore{rates: []currency.Rate{{Rate: dec("36.50"), ObservedAt: time.Now()}}}
	svc, _ := newService(t, store)

	conv, err := svc.Convert(context.Background(), dec("8.70"), "usd", "ves")
	require.NoError(t, err)
	require.Equal(t, "317.55", conv.Converted.StringFixed(2))
	require.Equal(t, "USD", conv.From)
	require.Equal(t, "VES", conv.To)
}

func TestConvertVESToUSD(t *testing.T) {
	store := &fakeStore{rates: []currency.Rate{{Rate: dec("36.50"), ObservedAt: time.Now()}}}
	svc, _ := newService(t, store)

	conv, err := svc.Convert(context.Background(), dec("317.55"), "VES", "USD")
	require.NoError(t, err)
	require.Equal(t, "8.70", conv.Converted.StringFixed(2))
}

func TestConvertSameCurrency(t *testing.T) {
	store := &fakeStore{rates: []currency.Rate{{Rate: dec("36.50"), ObservedAt: time.Now()}}}
	svc, _ := newService(t, store)

	conv, err := svc.Convert(context.Background(), dec("10"), "USD", "USD")
	require.NoError(t, err)
	require.Equal(t, "10.00", conv.Converted.StringFixed(2))
}

func TestConvertRejectsBadInput(t *testing.T) {
	store := &fakeStore{rates: []currency.Rate{{Rate: dec("36.50"), ObservedAt: time.Now()}}}
	svc, _ := newService(t, store)

	_, err := svc.Convert(context.Background(), dec("10"), "EUR", "USD")
	require.Error(t, err)

	_, err = svc.Convert(context.Background(), dec("-1"), "USD", "VES")
	require.Error(t, err)
}

func TestCurrentRateValueRejectsNonPositive(t *testing.T) {
	store := &fakeStore{rates: []currency.Rate{{Rate: dec("0"), ObservedAt: time.Now()}}}
	svc, err := currency.NewService(currency.ServiceConfig{Store: store})
	require.NoError(t, err)

	_, err = svc.CurrentRateValue(context.Background())
	require.Error(t, err)
}

func TestUpdateRejectsNonPositive(t *testing.T) {
	svc, _ := newService(t, &fakeStore{})
	_, err := svc.Update(context.Background(), dec("0"), "bcv", uuid.New())
	require.Error(t, err)
	_, err = svc.Update(context.Background(), dec("-3"), "bcv", uuid.New())
	require.Error(t, err)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	store := &fakeStore{rates: []currency.Rate{{Rate: dec("36.50"), ObservedAt: time.Now().Add(-time.Hour)}}}
	svc, _ := newService(t, store)

	_, err := svc.Current(context.Background())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), dec("37.00"), "bcv", uuid.New())
	require.NoError(t, err)

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, "37.00", current.Rate.StringFixed(2))
}
