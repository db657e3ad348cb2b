package node

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// fakeLedger registra las llamadas y permite forzar un circuit breaker.
type fakeLedger struct {
	mu          sync.Mutex
	profits     []float64
	losses      []float64
	tripBreaker bool
}

func (f *fakeLedger) RecordProfit(nodeID string, amount float64) domain.ProfitBreakdown {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profits = append(f.profits, amount)
	return domain.ProfitBreakdown{}
}

func (f *fakeLedger) RecordLoss(nodeID string, amount float64) domain.LossOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.losses = append(f.losses, amount)
	if f.tripBreaker {
		return domain.LossOutcome{CircuitBreaker: true, Reason: "daily loss over the cap"}
	}
	return domain.LossOutcome{}
}

// fakeMarket devuelve precios de una secuencia por símbolo y cuenta llamadas.
type fakeMarket struct {
	mu     sync.Mutex
	prices map[string][]float64
	errs   map[string]error
	calls  int
}

func (f *fakeMarket) GetPrice(_ context.Context, symbol string) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[symbol]; ok {
		return domain.Quote{}, err
	}
	seq := f.prices[symbol]
	if len(seq) == 0 {
		return domain.Quote{}, errors.New("no price scripted for " + symbol)
	}
	price := seq[0]
	if len(seq) > 1 {
		f.prices[symbol] = seq[1:]
	}
	return domain.Quote{Symbol: symbol, Price: price, Source: "fake"}, nil
}

func testProfile() Profile {
	return Profile{
		TradeFraction: 0.2,
		MaxTradeUSD:   50,
		WinReturn:     0.02,
		LossReturn:    0.01,
		MinConfidence: 0.70,
		Watchlist:     []string{"bitcoin"},
	}
}

func buyInsight(symbol string) domain.Insight {
	return domain.Insight{Symbol: symbol, Action: domain.ActionBuy, Confidence: 0.8}
}

func TestExecute_BuySizesAndSettlesProfit(t *testing.T) {
	ldg := &fakeLedger{}
	n := NewCrypto("crypto_1", 100, testProfile(), ldg, &fakeMarket{})

	result := n.Execute(context.Background(), buyInsight("bitcoin"))
	require.True(t, result.Executed)
	assert.InDelta(t, 20, result.Size, 0.001) // 20% de 100
	assert.InDelta(t, 0.4, result.ExpectedPnL, 0.001)

	require.Len(t, ldg.profits, 1)
	assert.InDelta(t, 0.4, ldg.profits[0], 0.001)

	st := n.Status()
	assert.InDelta(t, 0.4, st.TodayPnL, 0.001)
	assert.InDelta(t, 0.4, st.LifetimePnL, 0.001)
}

func TestExecute_SizeCappedAtMaxTrade(t *testing.T) {
	ldg := &fakeLedger{}
	n := NewCrypto("crypto_1", 1000, testProfile(), ldg, &fakeMarket{})

	result := n.Execute(context.Background(), buyInsight("bitcoin"))
	assert.InDelta(t, 50, result.Size, 0.001) // 200 capado a 50
}

func TestExecute_HoldIsNotExecuted(t *testing.T) {
	ldg := &fakeLedger{}
	n := NewCrypto("crypto_1", 100, testProfile(), ldg, &fakeMarket{})

	result := n.Execute(context.Background(), domain.Insight{
		Symbol: "bitcoin", Action: domain.ActionHold, Confidence: 0.9,
	})
	assert.False(t, result.Executed)
	assert.Contains(t, result.Reason, "hold")
	assert.Empty(t, ldg.profits)
	assert.Empty(t, ldg.losses)
}

func TestExecute_SellSettlesLoss(t *testing.T) {
	ldg := &fakeLedger{}
	n := NewCrypto("crypto_1", 100, testProfile(), ldg, &fakeMarket{})

	result := n.Execute(context.Background(), domain.Insight{
		Symbol: "bitcoin", Action: domain.ActionSell, Confidence: 0.8,
	})
	require.True(t, result.Executed)
	assert.InDelta(t, -0.2, result.ExpectedPnL, 0.001) // 20 × 1%

	require.Len(t, ldg.losses, 1)
	st := n.Status()
	assert.InDelta(t, -0.2, st.TodayPnL, 0.001)
}

func TestExecute_CircuitBreakerHaltsNode(t *testing.T) {
	ldg := &fakeLedger{tripBreaker: true}
	n := NewCrypto("crypto_1", 100, testProfile(), ldg, &fakeMarket{})

	result := n.Execute(context.Background(), domain.Insight{
		Symbol: "bitcoin", Action: domain.ActionSell, Confidence: 0.8,
	})
	require.False(t, result.Executed)
	assert.True(t, result.CircuitBreaker)
	assert.Equal(t, domain.NodeHalted, n.Status().Status)

	// Parado no ejecuta nada más hasta el reset manual
	again := n.Execute(context.Background(), buyInsight("bitcoin"))
	assert.False(t, again.Executed)
	assert.Contains(t, again.Reason, "halted")

	n.Resume()
	assert.Equal(t, domain.NodeActive, n.Status().Status)
}

func TestCryptoGather_HaltedReturnsNothing(t *testing.T) {
	market := &fakeMarket{prices: map[string][]float64{"bitcoin": {100}}}
	n := NewCrypto("crypto_1", 100, testProfile(), &fakeLedger{}, market)
	n.halted = true

	insights, err := n.GatherInsights(context.Background())
	require.NoError(t, err)
	assert.Empty(t, insights)
	assert.Equal(t, 0, market.calls)
}

func TestCryptoGather_EmitsHighConfidenceInsight(t *testing.T) {
	market := &fakeMarket{prices: map[string][]float64{"bitcoin": {100}}}
	n := NewCrypto("crypto_1", 100, testProfile(), &fakeLedger{}, market)

	// 10 ciclos planos para llenar la ventana de momentum
	for i := 0; i < 10; i++ {
		insights, err := n.GatherInsights(context.Background())
		require.NoError(t, err)
		assert.Empty(t, insights)
	}

	// +2%: momentum compra con confianza 0.85 > 0.70
	market.mu.Lock()
	market.prices["bitcoin"] = []float64{102}
	market.mu.Unlock()

	insights, err := n.GatherInsights(context.Background())
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "bitcoin", insights[0].Symbol)
	assert.Equal(t, domain.ActionBuy, insights[0].Action)
	assert.Equal(t, domain.StrategyMomentum, insights[0].Strategy)
	assert.InDelta(t, 102, insights[0].Price, 0.001)
}

func TestCryptoGather_ConfidenceFloorFilters(t *testing.T) {
	profile := testProfile()
	profile.MinConfidence = 0.90 // por encima del tope de momentum (0.85)
	market := &fakeMarket{prices: map[string][]float64{"bitcoin": {100}}}
	n := NewCrypto("crypto_1", 100, profile, &fakeLedger{}, market)

	for i := 0; i < 10; i++ {
		n.GatherInsights(context.Background())
	}
	market.mu.Lock()
	market.prices["bitcoin"] = []float64{102}
	market.mu.Unlock()

	insights, err := n.GatherInsights(context.Background())
	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestCryptoGather_FailedSymbolIsSkipped(t *testing.T) {
	profile := testProfile()
	profile.Watchlist = []string{"bitcoin", "ethereum"}
	market := &fakeMarket{
		prices: map[string][]float64{"bitcoin": {100}},
		errs:   map[string]error{"ethereum": errors.New("rate limited")},
	}
	n := NewCrypto("crypto_1", 100, profile, &fakeLedger{}, market)

	// Un símbolo caído no tumba el gather del resto
	insights, err := n.GatherInsights(context.Background())
	require.NoError(t, err)
	assert.Empty(t, insights)
	assert.Equal(t, 2, market.calls)
}

func TestSessionAt_Boundaries(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	at := func(hour, minute int) time.Time {
		return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	assert.Equal(t, domain.SessionClosed, SessionAt(at(3, 59)))
	assert.Equal(t, domain.SessionPreMarket, SessionAt(at(4, 0)))
	assert.Equal(t, domain.SessionPreMarket, SessionAt(at(9, 29)))
	assert.Equal(t, domain.SessionRegular, SessionAt(at(9, 30)))
	assert.Equal(t, domain.SessionRegular, SessionAt(at(15, 59)))
	assert.Equal(t, domain.SessionAfterHours, SessionAt(at(16, 0)))
	assert.Equal(t, domain.SessionAfterHours, SessionAt(at(19, 59)))
	assert.Equal(t, domain.SessionClosed, SessionAt(at(20, 0)))
}

func TestStockGather_ClosedSessionRests(t *testing.T) {
	market := &fakeMarket{prices: map[string][]float64{"AAPL": {150}}}
	profile := testProfile()
	profile.Watchlist = []string{"AAPL"}
	n := NewStock("stock_1", 100, profile, &fakeLedger{}, market)
	n.nowFn = func() time.Time {
		return time.Date(2026, 3, 10, 22, 0, 0, 0, time.Local)
	}

	insights, err := n.GatherInsights(context.Background())
	require.NoError(t, err)
	assert.Empty(t, insights)
	assert.Equal(t, 0, market.calls) // ni una llamada de mercado con sesión cerrada
}

func TestStockGather_TagsInsightWithSession(t *testing.T) {
	market := &fakeMarket{prices: map[string][]float64{"AAPL": {150}}}
	profile := testProfile()
	profile.Watchlist = []string{"AAPL"}
	n := NewStock("stock_1", 100, profile, &fakeLedger{}, market)
	n.nowFn = func() time.Time {
		return time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)
	}

	for i := 0; i < 10; i++ {
		n.GatherInsights(context.Background())
	}
	market.mu.Lock()
	market.prices["AAPL"] = []float64{153}
	market.mu.Unlock()

	insights, err := n.GatherInsights(context.Background())
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, domain.SessionRegular, insights[0].Session)
}
