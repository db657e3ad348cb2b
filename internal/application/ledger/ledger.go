package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/swarmbot/internal/domain"
	"github.com/alejandrodnm/swarmbot/internal/ports"
)

// growthHaltThreshold is the number of consecutive losing trades that
// suspends new spawns until the next recorded profit.
const growthHaltThreshold = 3

// Limits are the constitutional limits of the network. Loaded once at
// genesis and never mutated afterwards.
type Limits struct {
	MaxDailyLossPercent     float64
	MaxNodeCapitalPercent   float64
	ReservePercent          float64
	MinProfitToSpawn        float64
	MaxNodesWithoutApproval int
	CompoundPercent         float64
	DistributionPercent     float64
}

// Ledger is the single source of truth for network capital, the node
// registry and every admission/accounting decision. All mutation goes
// through one mutex: concurrent profit/loss recording from multiple nodes
// serializes here, which is what keeps the conservation invariant honest.
type Ledger struct {
	mu     sync.Mutex
	limits Limits

	networkCapital float64
	netRealized    float64 // cumulative realized P&L, gates spawns past 3 nodes
	nodes          map[string]*domain.NodeInfo

	consecutiveFailures int
	breakerTripped      bool
	breakerReason       string
	rolloverDay         string // local date of the last daily reset

	reserve *Reserve
	growth  ports.GrowthLog
	nowFn   func() time.Time
}

// New creates a Ledger with the given genesis capital. The reserve fund and
// growth log are collaborators: the ledger never touches files itself.
func New(limits Limits, genesisCapital float64, reserve *Reserve, growth ports.GrowthLog) *Ledger {
	l := &Ledger{
		limits:         limits,
		networkCapital: genesisCapital,
		nodes:          make(map[string]*domain.NodeInfo),
		reserve:        reserve,
		growth:         growth,
		nowFn:          time.Now,
	}
	l.rolloverDay = localDay(l.nowFn())
	return l
}

// RegisterNode admits or rejects a node spawn. Checks run in fixed order and
// the first failure wins; a rejection leaves the ledger untouched. On
// approval the node id is assigned here, capital moves from the network to
// the node, and a node_spawned event is appended.
func (l *Ledger) RegisterNode(specialty domain.Specialty, capital float64) domain.SpawnDecision {
	if !specialty.Valid() {
		panic(fmt.Sprintf("ledger.RegisterNode: unknown specialty %q", specialty))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeRollover()

	if l.breakerTripped {
		return l.reject("circuit breaker active: manual reset required before spawning")
	}
	if l.consecutiveFailures >= growthHaltThreshold {
		return l.reject(fmt.Sprintf(
			"growth halted after %d consecutive losses: next profit lifts the halt",
			l.consecutiveFailures))
	}

	// Check 1: per-node capital cap, as a fraction of current network capital.
	maxCapital := l.networkCapital * l.limits.MaxNodeCapitalPercent / 100
	if capital > maxCapital {
		return l.reject(fmt.Sprintf(
			"capital %.2f exceeds %.0f%% of network capital %.2f (max %.2f)",
			capital, l.limits.MaxNodeCapitalPercent, l.networkCapital, maxCapital))
	}

	// Check 2: node count ceiling; beyond it every spawn needs out-of-band approval.
	if len(l.nodes) >= l.limits.MaxNodesWithoutApproval {
		return l.reject(fmt.Sprintf(
			"network already has %d nodes: out-of-band approval required for more",
			len(l.nodes)))
	}

	// Check 3: growth gate. Past 3 nodes the network must have earned its expansion.
	if len(l.nodes) >= 3 && l.netRealized < l.limits.MinProfitToSpawn {
		return l.reject(fmt.Sprintf(
			"need %.2f cumulative profit to spawn, current %.2f",
			l.limits.MinProfitToSpawn, l.netRealized))
	}

	id := fmt.Sprintf("%s_%d", specialty, len(l.nodes)+1)
	now := l.nowFn()
	l.nodes[id] = &domain.NodeInfo{
		ID:        id,
		Specialty: specialty,
		Capital:   capital,
		Status:    domain.NodeActive,
		SpawnedAt: now,
	}
	l.networkCapital -= capital

	l.appendEvent(domain.EventNodeSpawned, id, capital, nil)

	return domain.SpawnDecision{
		Approved:         true,
		NodeID:           id,
		NetworkRemaining: l.networkCapital,
		ReserveTotal:     l.reserve.Total(),
	}
}

// RecordProfit splits a realized profit per the constitutional percentages:
// the compound share returns to network capital, the reserve contribution is
// carved out of the distribution share, the payout leaves the network.
// A profit also lifts any growth halt by resetting the failure counter.
func (l *Ledger) RecordProfit(nodeID string, amount float64) domain.ProfitBreakdown {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeRollover()

	rec := l.mustNode(nodeID)

	compound := amount * l.limits.CompoundPercent / 100
	distribution := amount * l.limits.DistributionPercent / 100
	reserveAdd := distribution * l.limits.ReservePercent / 100
	payout := distribution - reserveAdd

	l.networkCapital += compound
	l.reserve.Deposit(reserveAdd)
	l.netRealized += amount
	rec.LifetimePnL += amount
	rec.TodayPnL += amount
	l.consecutiveFailures = 0

	l.appendEvent(domain.EventProfitDistribution, nodeID, amount, map[string]float64{
		"compounded":       compound,
		"payout":           payout,
		"reserve_addition": reserveAdd,
	})

	return domain.ProfitBreakdown{
		Compounded:     compound,
		Distribution:   distribution,
		ReserveAdded:   reserveAdd,
		Payout:         payout,
		NetworkCapital: l.networkCapital,
		ReserveTotal:   l.reserve.Total(),
	}
}

// RecordLoss absorbs a realized loss into network capital and evaluates the
// two policy states: the network-wide circuit breaker (daily aggregate loss
// over the cap) and the growth halt (3 consecutive losses). The daily
// aggregate is the sum over nodes of their negative today P&L, so a day that
// is net positive for a node contributes nothing.
func (l *Ledger) RecordLoss(nodeID string, amount float64) domain.LossOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeRollover()

	rec := l.mustNode(nodeID)

	// El cap diario se evalúa contra el capital previo a esta pérdida
	capitalBefore := l.networkCapital
	maxDaily := capitalBefore * l.limits.MaxDailyLossPercent / 100

	rec.LifetimePnL -= amount
	rec.TodayPnL -= amount
	l.networkCapital -= amount
	l.netRealized -= amount
	l.consecutiveFailures++

	l.appendEvent(domain.EventLossRecorded, nodeID, amount, map[string]float64{
		"consecutive_failures": float64(l.consecutiveFailures),
	})

	dailyLoss := l.dailyLossLocked()
	if dailyLoss > maxDaily {
		l.tripBreakerLocked(fmt.Sprintf(
			"daily loss %.2f exceeds %.0f%% of network capital %.2f",
			dailyLoss, l.limits.MaxDailyLossPercent, capitalBefore))
		return domain.LossOutcome{
			CircuitBreaker:      true,
			Reason:              l.breakerReason,
			ConsecutiveFailures: l.consecutiveFailures,
			DailyLoss:           dailyLoss,
		}
	}

	if l.consecutiveFailures >= growthHaltThreshold {
		return domain.LossOutcome{
			GrowthHalt:          true,
			Reason:              fmt.Sprintf("%d consecutive losses: no new spawns until next profit", l.consecutiveFailures),
			ConsecutiveFailures: l.consecutiveFailures,
			DailyLoss:           dailyLoss,
		}
	}

	return domain.LossOutcome{
		ConsecutiveFailures: l.consecutiveFailures,
		DailyLoss:           dailyLoss,
	}
}

// Status returns a read-only snapshot. Reading twice without intervening
// mutations yields identical snapshots (modulo the timestamp).
func (l *Ledger) Status() domain.NetworkStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeRollover()

	nodes := make(map[string]domain.NodeInfo, len(l.nodes))
	for id, rec := range l.nodes {
		nodes[id] = *rec
	}

	growthHalt := l.consecutiveFailures >= growthHaltThreshold
	return domain.NetworkStatus{
		Timestamp:           l.nowFn(),
		NetworkCapital:      l.networkCapital,
		ReserveTotal:        l.reserve.Total(),
		TotalNodes:          len(l.nodes),
		Nodes:               nodes,
		ConsecutiveFailures: l.consecutiveFailures,
		DailyLoss:           l.dailyLossLocked(),
		CircuitBreaker:      l.breakerTripped,
		GrowthHalt:          growthHalt,
		CanSpawn: !l.breakerTripped && !growthHalt &&
			len(l.nodes) < l.limits.MaxNodesWithoutApproval,
	}
}

// ManualReset clears the circuit breaker and the failure counter and
// reactivates every node. This is the operator path; nothing in the
// autonomous loop calls it.
func (l *Ledger) ManualReset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.breakerTripped = false
	l.breakerReason = ""
	l.consecutiveFailures = 0
	for _, rec := range l.nodes {
		rec.Status = domain.NodeActive
	}
	l.appendEvent(domain.EventManualReset, "", 0, nil)
}

// Reserve exposes the reserve fund for emergency operations.
func (l *Ledger) Reserve() *Reserve {
	return l.reserve
}

// reject builds a rejection decision without mutating state.
func (l *Ledger) reject(reason string) domain.SpawnDecision {
	return domain.SpawnDecision{
		Approved:         false,
		Reason:           reason,
		NetworkRemaining: l.networkCapital,
		ReserveTotal:     l.reserve.Total(),
	}
}

// mustNode returns the registry record or panics: an unknown node id is a
// programmer error, not an admissible outcome.
func (l *Ledger) mustNode(nodeID string) *domain.NodeInfo {
	rec, ok := l.nodes[nodeID]
	if !ok {
		panic(fmt.Sprintf("ledger: unknown node id %q", nodeID))
	}
	return rec
}

// dailyLossLocked aggregates today's losses across nodes. Caller holds l.mu.
func (l *Ledger) dailyLossLocked() float64 {
	loss := 0.0
	for _, rec := range l.nodes {
		if rec.TodayPnL < 0 {
			loss += -rec.TodayPnL
		}
	}
	return loss
}

// tripBreakerLocked halts every node and records the event. Caller holds l.mu.
func (l *Ledger) tripBreakerLocked(reason string) {
	l.breakerTripped = true
	l.breakerReason = reason
	for _, rec := range l.nodes {
		rec.Status = domain.NodeHalted
	}
	l.appendEvent(domain.EventCircuitBreaker, "", 0, nil)
	slog.Warn("circuit breaker tripped", "reason", reason)
}

// maybeRollover zeroes the daily accumulators when the local date changes.
// Caller holds l.mu.
func (l *Ledger) maybeRollover() {
	day := localDay(l.nowFn())
	if day == l.rolloverDay {
		return
	}
	for _, rec := range l.nodes {
		rec.TodayPnL = 0
	}
	l.rolloverDay = day
	slog.Info("daily accumulators reset", "day", day)
}

// appendEvent writes to the growth log. Audit failures are logged, never
// allowed to fail the accounting that already happened. Caller holds l.mu.
func (l *Ledger) appendEvent(kind domain.EventKind, nodeID string, amount float64, meta map[string]float64) {
	if l.growth == nil {
		return
	}
	event := domain.GrowthEvent{
		ID:                  uuid.New().String(),
		Timestamp:           l.nowFn(),
		Kind:                kind,
		NodeID:              nodeID,
		Amount:              amount,
		NetworkCapitalAfter: l.networkCapital,
		Metadata:            meta,
	}
	if err := l.growth.Append(event); err != nil {
		slog.Warn("growth log append failed", "event", kind, "err", err)
	}
}

func localDay(t time.Time) string {
	return t.Local().Format("2006-01-02")
}
