package signals_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/swarmbot/internal/application/signals"
	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// feed registra n precios idénticos y devuelve las señales del último.
func feed(e *signals.Engine, symbol string, price float64, n int) []domain.Signal {
	var out []domain.Signal
	for i := 0; i < n; i++ {
		out = e.Analyze(symbol, price, signals.MarketContext{})
	}
	return out
}

func findStrategy(sigs []domain.Signal, strategy domain.Strategy) *domain.Signal {
	for i := range sigs {
		if sigs[i].Strategy == strategy {
			return &sigs[i]
		}
	}
	return nil
}

func TestAnalyze_NoSignalsOnFlatHistory(t *testing.T) {
	e := signals.NewEngine()
	sigs := feed(e, "bitcoin", 100, 30)
	assert.Empty(t, sigs)
}

func TestAnalyze_InsufficientHistoryIsSilent(t *testing.T) {
	e := signals.NewEngine()
	// Con menos de 10 muestras ninguna estrategia tiene ventana
	sigs := feed(e, "bitcoin", 100, 5)
	assert.Empty(t, sigs)
	assert.Equal(t, 5, e.HistoryLen("bitcoin"))
}

func TestMeanReversion_BuyBelowAverage(t *testing.T) {
	e := signals.NewEngine()
	feed(e, "bitcoin", 100, 19)

	// 97 queda un ~2.85% por debajo de la media de 20
	sigs := e.Analyze("bitcoin", 97, signals.MarketContext{})
	s := findStrategy(sigs, domain.StrategyMeanReversion)
	require.NotNil(t, s)
	assert.Equal(t, domain.ActionBuy, s.Action)
	assert.InDelta(t, 0.285, s.Confidence, 0.01)
	assert.InDelta(t, 97*0.95, s.StopLoss, 0.001)
}

func TestMeanReversion_SellAboveAverage(t *testing.T) {
	e := signals.NewEngine()
	feed(e, "bitcoin", 100, 19)

	sigs := e.Analyze("bitcoin", 103, signals.MarketContext{})
	s := findStrategy(sigs, domain.StrategyMeanReversion)
	require.NotNil(t, s)
	assert.Equal(t, domain.ActionSell, s.Action)
}

func TestMeanReversion_ConfidenceCapped(t *testing.T) {
	e := signals.NewEngine()
	feed(e, "bitcoin", 100, 19)

	// Caída del ~19%: la confianza satura en 0.9
	sigs := e.Analyze("bitcoin", 80, signals.MarketContext{})
	s := findStrategy(sigs, domain.StrategyMeanReversion)
	require.NotNil(t, s)
	assert.InDelta(t, 0.9, s.Confidence, 0.001)
}

func TestMomentum_BuyOnRecentGain(t *testing.T) {
	e := signals.NewEngine()
	feed(e, "ethereum", 100, 10)

	// +2% sobre el precio de hace 5 periodos, solo momentum tiene ventana
	sigs := e.Analyze("ethereum", 102, signals.MarketContext{})
	require.Len(t, sigs, 1)
	assert.Equal(t, domain.StrategyMomentum, sigs[0].Strategy)
	assert.Equal(t, domain.ActionBuy, sigs[0].Action)
	assert.InDelta(t, 0.85, sigs[0].Confidence, 0.001)
	assert.InDelta(t, 0.04, sigs[0].ExpectedReturn, 0.001)
}

func TestMomentum_SellOnRecentDrop(t *testing.T) {
	e := signals.NewEngine()
	feed(e, "ethereum", 100, 10)

	sigs := e.Analyze("ethereum", 98.5, signals.MarketContext{})
	s := findStrategy(sigs, domain.StrategyMomentum)
	require.NotNil(t, s)
	assert.Equal(t, domain.ActionSell, s.Action)
}

func TestTrendFollowing_BullishCrossover(t *testing.T) {
	e := signals.NewEngine()
	feed(e, "solana", 100, 40)
	sigs := feed(e, "solana", 105, 10)

	s := findStrategy(sigs, domain.StrategyTrendFollowing)
	require.NotNil(t, s)
	assert.Equal(t, domain.ActionBuy, s.Action)
	assert.InDelta(t, 0.7, s.Confidence, 0.001)
}

func TestTrendFollowing_BearishCrossover(t *testing.T) {
	e := signals.NewEngine()
	feed(e, "solana", 100, 40)
	sigs := feed(e, "solana", 95, 10)

	s := findStrategy(sigs, domain.StrategyTrendFollowing)
	require.NotNil(t, s)
	assert.Equal(t, domain.ActionSell, s.Action)
}

func TestAnalyze_MultipleStrategiesCanFire(t *testing.T) {
	e := signals.NewEngine()
	feed(e, "cardano", 100, 19)

	// Una caída brusca activa mean reversion (buy) y momentum (sell) a la
	// vez: no hay netting, ambas señales salen
	sigs := e.Analyze("cardano", 95, signals.MarketContext{})
	require.NotNil(t, findStrategy(sigs, domain.StrategyMeanReversion))
	require.NotNil(t, findStrategy(sigs, domain.StrategyMomentum))
}

func TestAnalyze_HistoryBounded(t *testing.T) {
	e := signals.NewEngine()
	for i := 0; i < 120; i++ {
		e.Analyze("bitcoin", 100+float64(i%3), signals.MarketContext{})
	}
	assert.Equal(t, 100, e.HistoryLen("bitcoin"))
}

func TestAnalyze_SymbolsAreIndependent(t *testing.T) {
	e := signals.NewEngine()
	feed(e, "bitcoin", 100, 19)
	feed(e, "ethereum", 200, 3)

	assert.Equal(t, 19, e.HistoryLen("bitcoin"))
	assert.Equal(t, 3, e.HistoryLen("ethereum"))

	// El histórico de bitcoin no contamina a ethereum
	sigs := e.Analyze("ethereum", 190, signals.MarketContext{})
	assert.Empty(t, sigs)
}
