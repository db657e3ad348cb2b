package domain

import "time"

// Specialty es el conjunto cerrado de especializaciones de nodo.
type Specialty string

const (
	SpecialtyCrypto Specialty = "crypto"
	SpecialtyStock  Specialty = "stock"
)

// Valid devuelve true si la especialidad pertenece al conjunto cerrado.
func (s Specialty) Valid() bool {
	return s == SpecialtyCrypto || s == SpecialtyStock
}

// NodeStatus es el estado de vida de un nodo.
type NodeStatus string

const (
	NodeActive NodeStatus = "active"
	NodeHalted NodeStatus = "halted"
)

// NodeInfo es el snapshot de un nodo tal como lo ve el ledger.
// Los nodos nunca se borran del registro: un nodo caído queda como halted.
type NodeInfo struct {
	ID          string     `json:"id"`
	Specialty   Specialty  `json:"specialty"`
	Capital     float64    `json:"capital"`
	LifetimePnL float64    `json:"lifetime_pnl"`
	TodayPnL    float64    `json:"today_pnl"`
	Status      NodeStatus `json:"status"`
	SpawnedAt   time.Time  `json:"spawned_at"`
}

// Session es la sesión de mercado para los nodos ligados a horario bursátil.
type Session string

const (
	SessionPreMarket  Session = "pre"
	SessionRegular    Session = "regular"
	SessionAfterHours Session = "after"
	SessionClosed     Session = "closed"
)

// Open devuelve true si la sesión admite operar (pre, regular o after).
func (s Session) Open() bool {
	return s != SessionClosed
}
