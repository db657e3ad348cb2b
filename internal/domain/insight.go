package domain

import "time"

// Insight es una señal filtrada y lista para rankear, producida por un nodo
// a partir del análisis de su watchlist. Igual que Signal, vive un solo ciclo.
type Insight struct {
	Symbol         string
	Price          float64
	Action         Action
	Confidence     float64
	ExpectedReturn float64
	StopLoss       float64
	TakeProfit     float64
	Strategy       Strategy
	Session        Session // solo relevante para nodos stock
	Timestamp      time.Time
}

// RankedInsight asocia un insight con el nodo que lo produjo.
// El orquestador aplana todos los insights del ciclo en esta forma.
type RankedInsight struct {
	NodeID  string
	Insight Insight
}

// ExecutionResult es el resultado de intentar ejecutar un insight.
// Un rechazo por política (nodo parado, circuit breaker) no es un error:
// se reporta aquí como decisión estructurada.
type ExecutionResult struct {
	Executed       bool
	NodeID         string
	Symbol         string
	Action         Action
	Size           float64
	ExpectedPnL    float64
	CircuitBreaker bool
	GrowthHalt     bool
	Reason         string
	ExecutedAt     time.Time
}
