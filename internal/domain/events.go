package domain

import "time"

// EventKind clasifica las entradas del growth log.
type EventKind string

const (
	EventNodeSpawned        EventKind = "node_spawned"
	EventProfitDistribution EventKind = "profit_distribution"
	EventLossRecorded       EventKind = "loss_recorded"
	EventCircuitBreaker     EventKind = "circuit_breaker"
	EventManualReset        EventKind = "manual_reset"
)

// GrowthEvent es una entrada append-only del log de crecimiento de la red.
// Es el audit trail de referencia: nunca se muta ni se borra.
type GrowthEvent struct {
	ID                  string             `json:"id"`
	Timestamp           time.Time          `json:"timestamp"`
	Kind                EventKind          `json:"event"`
	NodeID              string             `json:"node_id,omitempty"`
	Amount              float64            `json:"amount"`
	NetworkCapitalAfter float64            `json:"network_capital_after"`
	Metadata            map[string]float64 `json:"metadata,omitempty"`
}

// ReserveEventKind clasifica los movimientos del fondo de reserva.
type ReserveEventKind string

const (
	ReserveDeposit             ReserveEventKind = "deposit"
	ReserveEmergencyWithdrawal ReserveEventKind = "emergency_withdrawal"
)

// ReserveEvent es una entrada append-only del ledger de reserva.
type ReserveEvent struct {
	Timestamp     time.Time        `json:"timestamp"`
	Kind          ReserveEventKind `json:"type"`
	Amount        float64          `json:"amount"`
	Reason        string           `json:"reason,omitempty"`
	ReservesAfter float64          `json:"reserves_after"`
}
