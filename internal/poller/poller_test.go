package poller

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhdi-khosravi/Crypto-price-alert/internal/exchange"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/store"
	"github.com/mhdi-khosravi/Crypto-price-alert/internal/types"
)

// fakeSource answers with a fixed price (or error) and counts calls.
type fakeSource struct {
	mu    sync.Mutex
	name  string
	price decimal.Decimal
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) LastPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return decimal.Zero, &exchange.FetchError{Exchange: f.name, Symbol: symbol, Err: f.err}
	}
	return f.price, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recorder struct {
	mu       sync.Mutex
	triggers []Trigger
	cycles   []CycleResult
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnTrigger: func(t Trigger) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.triggers = append(r.triggers, t)
		},
		OnCycle: func(c CycleResult) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.cycles = append(r.cycles, c)
		},
	}
}

func newTestStore(t *testing.T, exchanges []string) *store.Store {
	t.Helper()
	s := store.New(filepath.Join(t.TempDir(), "alerts.json"), exchanges, 10)
	require.NoError(t, s.Load())
	return s
}

func addAlert(t *testing.T, s *store.Store, symbol string, cond types.Condition, target int64, exch string) types.Alert {
	t.Helper()
	a, err := s.Add(types.Alert{
		Symbol:      symbol,
		TargetPrice: decimal.NewFromInt(target),
		Condition:   cond,
		Exchange:    exch,
		Active:      true,
	})
	require.NoError(t, err)
	return a
}

func TestTriggerDeactivatesAlert(t *testing.T) {
	binance := &fakeSource{name: "Binance", price: decimal.NewFromInt(70500)}
	reg := exchange.NewRegistry(binance)
	s := newTestStore(t, reg.Names())
	added := addAlert(t, s, "BTC", types.ConditionGTE, 70000, "Binance")

	rec := &recorder{}
	p := New(s, reg, 10*time.Second, rec.hooks())

	res := p.RunOnce(context.Background())
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 1, res.Triggered)
	assert.Zero(t, res.Errors)

	require.Len(t, rec.triggers, 1)
	assert.Equal(t, added.ID, rec.triggers[0].Alert.ID)
	assert.True(t, rec.triggers[0].Price.Equal(decimal.NewFromInt(70500)))
	assert.Equal(t, "Binance", rec.triggers[0].Source)

	got, err := s.Get(added.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	require.NotNil(t, got.TriggeredAt)
}

func TestTriggeredAlertNotReEvaluated(t *testing.T) {
	binance := &fakeSource{name: "Binance", price: decimal.NewFromInt(70500)}
	reg := exchange.NewRegistry(binance)
	s := newTestStore(t, reg.Names())
	addAlert(t, s, "BTC", types.ConditionGTE, 70000, "Binance")

	rec := &recorder{}
	p := New(s, reg, 10*time.Second, rec.hooks())

	p.RunOnce(context.Background())
	require.Len(t, rec.triggers, 1)

	// Second cycle: the alert is inactive, nothing to fetch or fire.
	res := p.RunOnce(context.Background())
	assert.Zero(t, res.Triggered)
	assert.Len(t, rec.triggers, 1)
	assert.Equal(t, 1, binance.callCount())
}

func TestNoTriggerBelowTarget(t *testing.T) {
	binance := &fakeSource{name: "Binance", price: decimal.NewFromInt(69000)}
	reg := exchange.NewRegistry(binance)
	s := newTestStore(t, reg.Names())
	added := addAlert(t, s, "BTC", types.ConditionGTE, 70000, "Binance")

	rec := &recorder{}
	p := New(s, reg, 10*time.Second, rec.hooks())

	res := p.RunOnce(context.Background())
	assert.Zero(t, res.Triggered)
	assert.Empty(t, rec.triggers)

	got, err := s.Get(added.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func TestFetchErrorSkipsPairOnly(t *testing.T) {
	bybit := &fakeSource{name: "Bybit", err: errors.New("timeout")}
	binance := &fakeSource{name: "Binance", price: decimal.NewFromInt(1500)}
	reg := exchange.NewRegistry(binance, bybit)
	s := newTestStore(t, reg.Names())

	ethBybit := addAlert(t, s, "ETH", types.ConditionLTE, 2000, "Bybit")
	addAlert(t, s, "ETH", types.ConditionLTE, 2000, "Binance")

	rec := &recorder{}
	p := New(s, reg, 10*time.Second, rec.hooks())

	res := p.RunOnce(context.Background())
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 1, res.Triggered)

	// The Bybit alert was neither triggered nor mutated.
	require.Len(t, rec.triggers, 1)
	assert.Equal(t, "Binance", rec.triggers[0].Source)
	got, err := s.Get(ethBybit.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Nil(t, got.TriggeredAt)
}

func TestPairsFetchedOncePerCycle(t *testing.T) {
	binance := &fakeSource{name: "Binance", price: decimal.NewFromInt(50)}
	reg := exchange.NewRegistry(binance)
	s := newTestStore(t, reg.Names())

	// Three alerts on the same (symbol, exchange) pair: one fetch.
	addAlert(t, s, "SOL", types.ConditionGTE, 100, "Binance")
	addAlert(t, s, "SOL", types.ConditionGTE, 200, "Binance")
	addAlert(t, s, "SOL", types.ConditionLTE, 60, "Binance")

	rec := &recorder{}
	p := New(s, reg, 10*time.Second, rec.hooks())

	res := p.RunOnce(context.Background())
	assert.Equal(t, 1, binance.callCount())
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 1, res.Triggered, "only the <= 60 alert fires at 50")
	require.Len(t, rec.triggers, 1)
	assert.Equal(t, types.ConditionLTE, rec.triggers[0].Alert.Condition)
}

func TestAnyExchangeUsesFallbackChain(t *testing.T) {
	binance := &fakeSource{name: "Binance", err: errors.New("down")}
	bybit := &fakeSource{name: "Bybit", price: decimal.NewFromInt(71000)}
	reg := exchange.NewRegistry(binance, bybit)
	s := newTestStore(t, reg.Names())
	addAlert(t, s, "BTC", types.ConditionGTE, 70000, types.ExchangeAny)

	rec := &recorder{}
	p := New(s, reg, 10*time.Second, rec.hooks())

	res := p.RunOnce(context.Background())
	assert.Equal(t, 1, res.Triggered)
	require.Len(t, rec.triggers, 1)
	assert.Equal(t, "Bybit", rec.triggers[0].Source)
}

func TestCycleSummaryEmitted(t *testing.T) {
	binance := &fakeSource{name: "Binance", price: decimal.NewFromInt(10)}
	reg := exchange.NewRegistry(binance)
	s := newTestStore(t, reg.Names())
	addAlert(t, s, "BTC", types.ConditionGTE, 70000, "Binance")

	rec := &recorder{}
	p := New(s, reg, 10*time.Second, rec.hooks())

	p.RunOnce(context.Background())
	require.Len(t, rec.cycles, 1)
	assert.Equal(t, 1, rec.cycles[0].Checked)
	assert.False(t, rec.cycles[0].At.IsZero())
}

func TestStartStop(t *testing.T) {
	binance := &fakeSource{name: "Binance", price: decimal.NewFromInt(10)}
	reg := exchange.NewRegistry(binance)
	s := newTestStore(t, reg.Names())
	addAlert(t, s, "BTC", types.ConditionGTE, 70000, "Binance")

	rec := &recorder{}
	p := New(s, reg, 10*time.Second, rec.hooks())

	p.Start(context.Background())
	// The first cycle runs immediately on start.
	assert.Eventually(t, func() bool {
		return binance.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	p.Stop()
	calls := binance.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, binance.callCount(), "no cycles after Stop")
}

func TestKickRunsImmediately(t *testing.T) {
	binance := &fakeSource{name: "Binance", price: decimal.NewFromInt(10)}
	reg := exchange.NewRegistry(binance)
	s := newTestStore(t, reg.Names())
	addAlert(t, s, "BTC", types.ConditionGTE, 70000, "Binance")

	rec := &recorder{}
	p := New(s, reg, 10*time.Second, rec.hooks())
	defer p.Stop()

	p.Start(context.Background())
	assert.Eventually(t, func() bool { return binance.callCount() >= 1 }, 2*time.Second, 10*time.Millisecond)

	p.Kick()
	assert.Eventually(t, func() bool { return binance.callCount() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
