package signals

import (
	"sync"
	"time"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

const (
	// maxHistory es el tamaño máximo del histórico por símbolo.
	maxHistory = 100

	meanReversionWindow = 20
	momentumWindow      = 10
	momentumLookback    = 5
	trendShortWindow    = 10
	trendLongWindow     = 50
)

// MarketContext es el contexto de mercado que acompaña a un precio.
// Las estrategias actuales no lo consumen, pero forma parte del contrato
// para que estrategias futuras puedan usar volumen o variación diaria.
type MarketContext struct {
	Change24h float64
	Volume    float64
}

// Engine mantiene un histórico acotado de precios por símbolo y ejecuta
// las tres estrategias de forma independiente. Cada estrategia puede emitir
// o no su señal: un símbolo puede llevar hasta tres señales simultáneas.
// No se hace netting aquí; el ranking ocurre aguas abajo.
type Engine struct {
	mu      sync.Mutex
	history map[string][]float64
	nowFn   func() time.Time
}

// NewEngine crea un Engine vacío.
func NewEngine() *Engine {
	return &Engine{
		history: make(map[string][]float64),
		nowFn:   time.Now,
	}
}

// Analyze registra el precio en el histórico y devuelve las señales de
// todas las estrategias que se activaron. Seguro para uso concurrente.
func (e *Engine) Analyze(symbol string, price float64, _ MarketContext) []domain.Signal {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := append(e.history[symbol], price)
	if len(h) > maxHistory {
		h = h[len(h)-maxHistory:]
	}
	e.history[symbol] = h

	now := e.nowFn()
	var signals []domain.Signal
	for _, strategy := range []func(string, float64, []float64, time.Time) *domain.Signal{
		e.meanReversion,
		e.momentum,
		e.trendFollowing,
	} {
		if s := strategy(symbol, price, h, now); s != nil {
			signals = append(signals, *s)
		}
	}
	return signals
}

// HistoryLen devuelve cuántos precios hay registrados para un símbolo.
func (e *Engine) HistoryLen(symbol string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history[symbol])
}

// meanReversion compra cuando el precio está >2% por debajo de la media de
// 20 muestras y vende cuando está >2% por encima. El take-profit es la media.
func (e *Engine) meanReversion(symbol string, price float64, h []float64, now time.Time) *domain.Signal {
	if len(h) < meanReversionWindow {
		return nil
	}
	avg := mean(h[len(h)-meanReversionWindow:])
	deviation := (price - avg) / avg

	switch {
	case deviation < -0.02:
		return &domain.Signal{
			Symbol:         symbol,
			Strategy:       domain.StrategyMeanReversion,
			Action:         domain.ActionBuy,
			Confidence:     min(abs(deviation)*10, 0.9),
			ExpectedReturn: 0.02,
			StopLoss:       price * 0.95,
			TakeProfit:     avg,
			Timestamp:      now,
		}
	case deviation > 0.02:
		return &domain.Signal{
			Symbol:         symbol,
			Strategy:       domain.StrategyMeanReversion,
			Action:         domain.ActionSell,
			Confidence:     min(abs(deviation)*10, 0.9),
			ExpectedReturn: 0.02,
			StopLoss:       price * 1.05,
			TakeProfit:     avg,
			Timestamp:      now,
		}
	}
	return nil
}

// momentum sigue el retorno de los últimos 5 periodos: >1% al alza compra,
// >1% a la baja vende.
func (e *Engine) momentum(symbol string, price float64, h []float64, now time.Time) *domain.Signal {
	if len(h) < momentumWindow {
		return nil
	}
	base := h[len(h)-momentumLookback]
	recent := (price - base) / base

	switch {
	case recent > 0.01:
		return &domain.Signal{
			Symbol:         symbol,
			Strategy:       domain.StrategyMomentum,
			Action:         domain.ActionBuy,
			Confidence:     min(recent*50, 0.85),
			ExpectedReturn: recent * 2,
			StopLoss:       price * 0.97,
			TakeProfit:     price * 1.05,
			Timestamp:      now,
		}
	case recent < -0.01:
		return &domain.Signal{
			Symbol:         symbol,
			Strategy:       domain.StrategyMomentum,
			Action:         domain.ActionSell,
			Confidence:     min(abs(recent)*50, 0.85),
			ExpectedReturn: abs(recent) * 2,
			StopLoss:       price * 1.03,
			TakeProfit:     price * 0.95,
			Timestamp:      now,
		}
	}
	return nil
}

// trendFollowing compara la media de 10 muestras contra la de 50:
// corta > larga×1.01 es tendencia alcista, corta < larga×0.99 bajista.
func (e *Engine) trendFollowing(symbol string, price float64, h []float64, now time.Time) *domain.Signal {
	if len(h) < trendLongWindow {
		return nil
	}
	short := mean(h[len(h)-trendShortWindow:])
	long := mean(h[len(h)-trendLongWindow:])

	switch {
	case short > long*1.01:
		return &domain.Signal{
			Symbol:         symbol,
			Strategy:       domain.StrategyTrendFollowing,
			Action:         domain.ActionBuy,
			Confidence:     0.7,
			ExpectedReturn: 0.05,
			StopLoss:       long * 0.98,
			TakeProfit:     price * 1.10,
			Timestamp:      now,
		}
	case short < long*0.99:
		return &domain.Signal{
			Symbol:         symbol,
			Strategy:       domain.StrategyTrendFollowing,
			Action:         domain.ActionSell,
			Confidence:     0.7,
			ExpectedReturn: 0.05,
			StopLoss:       long * 1.02,
			TakeProfit:     price * 0.90,
			Timestamp:      now,
		}
	}
	return nil
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
