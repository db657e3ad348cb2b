package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// Run drives the autonomous loop: spawn the initial crypto/stock pair, run
// cycles on a fixed interval, and opportunistically grow the network when
// the ledger permits. Cancellation is observed between cycles — a cycle in
// flight finishes — and the final report always runs exactly once.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("autonomous mode starting",
		"run_id", e.runID,
		"interval", e.cfg.Interval,
		"seed_capital", e.cfg.SeedNodeCapital,
	)

	// With the default limits (genesis 100, seed 30, 35% cap) the second
	// seed exceeds the per-node cap against the post-spawn capital and is
	// rejected: the network starts with one node and grows via maybeSpawn.
	e.SpawnNode(domain.SpecialtyCrypto, e.cfg.SeedNodeCapital)
	e.SpawnNode(domain.SpecialtyStock, e.cfg.SeedNodeCapital)

	// The cycle itself is immune to cancellation; only the loop observes it.
	cycleCtx := context.WithoutCancel(ctx)

	e.runAndGrow(cycleCtx)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("autonomous mode stopping")
			e.writeFinalReport()
			return nil
		case <-ticker.C:
			e.runAndGrow(cycleCtx)
		}
	}
}

func (e *Engine) runAndGrow(ctx context.Context) {
	report, err := e.RunCycle(ctx)
	if err != nil {
		slog.Error("cycle failed", "err", err)
		return
	}
	e.maybeSpawn(report.Status)
}

// maybeSpawn grows the network by one node when the ledger currently
// permits spawns and enough unallocated capital is available. Specialty
// alternates to keep the network diversified.
func (e *Engine) maybeSpawn(status domain.NetworkStatus) {
	if !status.CanSpawn || status.NetworkCapital <= e.cfg.SpawnThreshold {
		return
	}

	capital := status.NetworkCapital * e.cfg.SpawnFraction
	if capital > e.cfg.SpawnCapitalCap {
		capital = e.cfg.SpawnCapitalCap
	}

	specialty := domain.SpecialtyCrypto
	if status.TotalNodes%2 != 0 {
		specialty = domain.SpecialtyStock
	}

	decision := e.SpawnNode(specialty, capital)
	if decision.Approved {
		slog.Info("auto-growth spawn", "node", decision.NodeID, "capital", capital)
	}
}

// writeFinalReport produces the shutdown document: final capital, reserve
// total and per-node lifetime P&L.
func (e *Engine) writeFinalReport() {
	status := e.ledger.Status()

	e.mu.Lock()
	cycles := e.cyclesRun
	e.mu.Unlock()

	report := domain.FinalReport{
		Timestamp:      e.nowFn(),
		RunID:          e.runID,
		NetworkCapital: status.NetworkCapital,
		ReserveTotal:   status.ReserveTotal,
		TotalNodes:     status.TotalNodes,
		Nodes:          status.Nodes,
		CyclesRun:      cycles,
	}

	if e.reports != nil {
		if err := e.reports.WriteFinalReport(report); err != nil {
			slog.Error("final report write failed", "err", err)
		}
	}

	slog.Info("final report",
		"run_id", e.runID,
		"network_capital", report.NetworkCapital,
		"reserve", report.ReserveTotal,
		"nodes", report.TotalNodes,
		"cycles", report.CyclesRun,
	)
}
