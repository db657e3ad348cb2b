package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/swarmbot/internal/application/ledger"
	"github.com/alejandrodnm/swarmbot/internal/application/node"
	"github.com/alejandrodnm/swarmbot/internal/domain"
	"github.com/alejandrodnm/swarmbot/internal/ports"
)

const (
	// DefaultMaxCandidates is how deep into the ranked insights a cycle looks.
	DefaultMaxCandidates = 5
	// DefaultMaxExecutions caps successful executions per cycle.
	DefaultMaxExecutions = 3
)

// Config holds orchestrator settings.
type Config struct {
	Interval        time.Duration
	SeedNodeCapital float64
	SpawnThreshold  float64 // minimum network capital for opportunistic spawns
	SpawnCapitalCap float64 // USD ceiling for an auto-spawned node
	SpawnFraction   float64 // fraction of network capital for an auto-spawn
	MaxCandidates   int
	MaxExecutions   int
}

// DefaultConfig returns sane production settings.
func DefaultConfig() Config {
	return Config{
		Interval:        30 * time.Minute,
		SeedNodeCapital: 30,
		SpawnThreshold:  50,
		SpawnCapitalCap: 20,
		SpawnFraction:   0.2,
		MaxCandidates:   DefaultMaxCandidates,
		MaxExecutions:   DefaultMaxExecutions,
	}
}

// Engine is the orchestrator: it owns the concrete nodes, drives the
// gather-rank-execute cycles and the autonomous loop, and is the only
// component that spawns nodes through the ledger.
type Engine struct {
	cfg      Config
	ledger   *ledger.Ledger
	markets  map[domain.Specialty]ports.MarketProvider
	profiles map[domain.Specialty]node.Profile
	notifier ports.Notifier
	storage  ports.Storage
	reports  ports.ReportWriter
	runID    string
	nowFn    func() time.Time

	mu        sync.Mutex
	nodes     map[string]node.Node
	order     []string // spawn order, keeps cycles deterministic
	cyclesRun int
}

// New creates an Engine. notifier, storage and reports may be nil; the
// engine degrades to logging only.
func New(
	cfg Config,
	ldg *ledger.Ledger,
	markets map[domain.Specialty]ports.MarketProvider,
	profiles map[domain.Specialty]node.Profile,
	notifier ports.Notifier,
	storage ports.Storage,
	reports ports.ReportWriter,
) *Engine {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	if cfg.MaxExecutions <= 0 {
		cfg.MaxExecutions = DefaultMaxExecutions
	}
	if cfg.SpawnFraction <= 0 {
		cfg.SpawnFraction = 0.2
	}
	return &Engine{
		cfg:      cfg,
		ledger:   ldg,
		markets:  markets,
		profiles: profiles,
		notifier: notifier,
		storage:  storage,
		reports:  reports,
		runID:    uuid.New().String(),
		nowFn:    time.Now,
		nodes:    make(map[string]node.Node),
	}
}

// SpawnNode asks the ledger for approval and, on success, constructs the
// concrete specialization. A rejection is propagated untouched.
func (e *Engine) SpawnNode(specialty domain.Specialty, capital float64) domain.SpawnDecision {
	decision := e.ledger.RegisterNode(specialty, capital)
	if !decision.Approved {
		slog.Info("spawn rejected", "specialty", specialty, "capital", capital, "reason", decision.Reason)
		return decision
	}

	profile, ok := e.profiles[specialty]
	if !ok {
		panic(fmt.Sprintf("engine.SpawnNode: no profile for specialty %q", specialty))
	}
	market, ok := e.markets[specialty]
	if !ok {
		panic(fmt.Sprintf("engine.SpawnNode: no market provider for specialty %q", specialty))
	}

	var n node.Node
	switch specialty {
	case domain.SpecialtyCrypto:
		n = node.NewCrypto(decision.NodeID, capital, profile, e.ledger, market)
	case domain.SpecialtyStock:
		n = node.NewStock(decision.NodeID, capital, profile, e.ledger, market)
	}

	e.mu.Lock()
	e.nodes[decision.NodeID] = n
	e.order = append(e.order, decision.NodeID)
	e.mu.Unlock()

	slog.Info("node spawned",
		"node", decision.NodeID,
		"specialty", specialty,
		"capital", capital,
		"network_remaining", decision.NetworkRemaining,
	)
	return decision
}

// Nodes returns the current nodes in spawn order.
func (e *Engine) Nodes() []node.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]node.Node, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.nodes[id])
	}
	return out
}
