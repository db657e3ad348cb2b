package domain

import "time"

// Action es la acción recomendada por una estrategia.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Strategy identifica la estrategia que generó una señal.
type Strategy string

const (
	StrategyMeanReversion  Strategy = "mean_reversion"
	StrategyMomentum       Strategy = "momentum"
	StrategyTrendFollowing Strategy = "trend_following"
)

// Signal es una señal de trading con score de confianza.
// Es efímera: se produce y consume dentro de un mismo ciclo.
type Signal struct {
	Symbol         string
	Strategy       Strategy
	Action         Action
	Confidence     float64 // 0.0 .. 1.0
	ExpectedReturn float64
	StopLoss       float64
	TakeProfit     float64
	Timestamp      time.Time
}

// Actionable devuelve true si la señal pide comprar o vender.
func (s Signal) Actionable() bool {
	return s.Action == ActionBuy || s.Action == ActionSell
}
