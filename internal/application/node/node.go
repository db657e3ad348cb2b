package node

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrodnm/swarmbot/internal/application/signals"
	"github.com/alejandrodnm/swarmbot/internal/domain"
	"github.com/alejandrodnm/swarmbot/internal/ports"
)

// Ledger is the slice of the constitution a node reports to. Every trade
// outcome goes through here; nothing else may move capital.
type Ledger interface {
	RecordProfit(nodeID string, amount float64) domain.ProfitBreakdown
	RecordLoss(nodeID string, amount float64) domain.LossOutcome
}

// Node is an autonomous trading agent with its own capital allocation.
// The set of specializations is closed: crypto and stock.
type Node interface {
	ID() string
	Specialty() domain.Specialty

	// GatherInsights scans the node's watchlist and returns ranked-ready
	// insights. A halted node returns nothing without touching the network.
	GatherInsights(ctx context.Context) ([]domain.Insight, error)

	// Execute attempts the trade within constitutional limits and reports
	// the outcome to the ledger. A circuit breaker halts the node.
	Execute(ctx context.Context, insight domain.Insight) domain.ExecutionResult

	// Status returns a point-in-time snapshot of the node.
	Status() domain.NodeInfo

	// Resume reactivates a halted node. Manual-reset path only.
	Resume()
}

// Profile carries the specialty-specific sizing and filtering constants.
// These are configuration, not algorithm: position sizing is independent of
// signal confidence.
type Profile struct {
	TradeFraction float64
	MaxTradeUSD   float64
	WinReturn     float64
	LossReturn    float64
	MinConfidence float64
	Watchlist     []string
}

// gatherWorkers bounds the per-symbol market fetch fan-out inside one node.
const gatherWorkers = 4

// base holds the state and behavior shared by both specializations.
type base struct {
	id        string
	specialty domain.Specialty
	capital   float64
	profile   Profile
	ledger    Ledger
	market    ports.MarketProvider
	signals   *signals.Engine
	spawnedAt time.Time
	nowFn     func() time.Time

	mu          sync.Mutex
	halted      bool
	todayPnL    float64
	lifetimePnL float64
}

func newBase(id string, specialty domain.Specialty, capital float64, profile Profile, ldg Ledger, market ports.MarketProvider) base {
	return base{
		id:        id,
		specialty: specialty,
		capital:   capital,
		profile:   profile,
		ledger:    ldg,
		market:    market,
		signals:   signals.NewEngine(),
		spawnedAt: time.Now(),
		nowFn:     time.Now,
	}
}

func (b *base) ID() string                  { return b.id }
func (b *base) Specialty() domain.Specialty { return b.specialty }

func (b *base) Halted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.halted
}

func (b *base) Resume() {
	b.mu.Lock()
	b.halted = false
	b.mu.Unlock()
}

// Status snapshots the node. Capital is fixed at spawn; P&L accumulates.
func (b *base) Status() domain.NodeInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	status := domain.NodeActive
	if b.halted {
		status = domain.NodeHalted
	}
	return domain.NodeInfo{
		ID:          b.id,
		Specialty:   b.specialty,
		Capital:     b.capital,
		LifetimePnL: b.lifetimePnL,
		TodayPnL:    b.todayPnL,
		Status:      status,
		SpawnedAt:   b.spawnedAt,
	}
}

// execute runs the deterministic paper fill: trade size is a fixed fraction
// of the node's own capital under a hard ceiling, expected P&L comes from
// the profile's return constants, and the result is settled with the ledger
// immediately. A circuit breaker from the ledger halts this node and vetoes
// further trades until a manual reset.
func (b *base) execute(insight domain.Insight) domain.ExecutionResult {
	b.mu.Lock()
	if b.halted {
		b.mu.Unlock()
		return domain.ExecutionResult{
			NodeID: b.id,
			Symbol: insight.Symbol,
			Action: insight.Action,
			Reason: "node halted: awaiting manual reset",
		}
	}
	b.mu.Unlock()

	if insight.Action == domain.ActionHold {
		return domain.ExecutionResult{
			NodeID: b.id,
			Symbol: insight.Symbol,
			Action: insight.Action,
			Reason: "hold signals are not executed",
		}
	}

	size := b.capital * b.profile.TradeFraction
	if size > b.profile.MaxTradeUSD {
		size = b.profile.MaxTradeUSD
	}

	result := domain.ExecutionResult{
		NodeID:     b.id,
		Symbol:     insight.Symbol,
		Action:     insight.Action,
		Size:       size,
		ExecutedAt: b.nowFn(),
	}

	if insight.Action == domain.ActionBuy {
		profit := size * b.profile.WinReturn
		b.ledger.RecordProfit(b.id, profit)
		b.applyPnL(profit)
		result.Executed = true
		result.ExpectedPnL = profit
		return result
	}

	loss := size * b.profile.LossReturn
	outcome := b.ledger.RecordLoss(b.id, loss)
	if outcome.CircuitBreaker {
		b.mu.Lock()
		b.halted = true
		b.mu.Unlock()
		result.CircuitBreaker = true
		result.Reason = outcome.Reason
		return result
	}

	b.applyPnL(-loss)
	result.Executed = true
	result.ExpectedPnL = -loss
	result.GrowthHalt = outcome.GrowthHalt
	result.Reason = outcome.Reason
	return result
}

func (b *base) applyPnL(amount float64) {
	b.mu.Lock()
	b.todayPnL += amount
	b.lifetimePnL += amount
	b.mu.Unlock()
}
