package domain

import "time"

// SpawnDecision es la respuesta del ledger a una solicitud de alta de nodo.
// Un rechazo es un resultado esperado, no un error: el motivo viene en Reason.
type SpawnDecision struct {
	Approved         bool
	NodeID           string
	Reason           string
	NetworkRemaining float64
	ReserveTotal     float64
}

// ProfitBreakdown es el desglose de una distribución de beneficio:
// parte compuesta (vuelve al capital de red), aporte a reserva y payout.
type ProfitBreakdown struct {
	Compounded     float64
	Distribution   float64
	ReserveAdded   float64
	Payout         float64
	NetworkCapital float64
	ReserveTotal   float64
}

// LossOutcome es la respuesta del ledger al registrar una pérdida.
// CircuitBreaker y GrowthHalt son estados de política, no errores.
type LossOutcome struct {
	CircuitBreaker      bool
	GrowthHalt          bool
	Reason              string
	ConsecutiveFailures int
	DailyLoss           float64
}

// WithdrawDecision es la respuesta del fondo de reserva a un retiro de emergencia.
type WithdrawDecision struct {
	Approved  bool
	Reason    string
	Amount    float64
	Remaining float64
}

// NetworkStatus es el snapshot read-only del estado de la red.
// Dos lecturas sin mutaciones intermedias devuelven snapshots idénticos.
type NetworkStatus struct {
	Timestamp           time.Time           `json:"timestamp"`
	NetworkCapital      float64             `json:"network_capital"`
	ReserveTotal        float64             `json:"reserve_total"`
	TotalNodes          int                 `json:"total_nodes"`
	Nodes               map[string]NodeInfo `json:"nodes"`
	ConsecutiveFailures int                 `json:"consecutive_failures"`
	DailyLoss           float64             `json:"daily_loss"`
	CircuitBreaker      bool                `json:"circuit_breaker"`
	GrowthHalt          bool                `json:"growth_halt"`
	CanSpawn            bool                `json:"can_spawn"`
}

// CycleReport resume un ciclo completo del orquestador.
type CycleReport struct {
	RanAt      time.Time
	Duration   time.Duration
	Insights   []RankedInsight
	Executions []ExecutionResult
	Halted     bool // true si el ciclo paró por circuit breaker
	Status     NetworkStatus
}

// ExecutedCount devuelve cuántas ejecuciones del ciclo se completaron.
func (c CycleReport) ExecutedCount() int {
	n := 0
	for _, e := range c.Executions {
		if e.Executed {
			n++
		}
	}
	return n
}

// FinalReport es el documento de cierre generado en el shutdown.
type FinalReport struct {
	Timestamp      time.Time           `json:"timestamp"`
	RunID          string              `json:"run_id"`
	NetworkCapital float64             `json:"final_network_capital"`
	ReserveTotal   float64             `json:"reserve_total"`
	TotalNodes     int                 `json:"total_nodes"`
	Nodes          map[string]NodeInfo `json:"nodes"`
	CyclesRun      int                 `json:"cycles_run"`
}
