package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/swarmbot/internal/application/node"
	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// RunCycle performs one gather-rank-execute round: every active node scans
// its watchlist concurrently, the pooled insights are ranked by confidence,
// and the top candidates execute through their owning node until the
// execution budget is spent or a circuit breaker stops the cycle early.
// Ledger mutations serialize inside the ledger; only the gathers overlap.
func (e *Engine) RunCycle(ctx context.Context) (domain.CycleReport, error) {
	start := e.nowFn()
	nodes := e.Nodes()

	insights := e.gatherAll(ctx, nodes)
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Insight.Confidence > insights[j].Insight.Confidence
	})

	report := domain.CycleReport{
		RanAt:    start,
		Insights: insights,
	}

	byID := make(map[string]node.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID()] = n
	}

	// Ranked execution: strictly descending confidence, hard stop on a
	// circuit breaker — later candidates are never attempted.
	executed := 0
	candidates := insights
	if len(candidates) > e.cfg.MaxCandidates {
		candidates = candidates[:e.cfg.MaxCandidates]
	}
	for _, cand := range candidates {
		owner, ok := byID[cand.NodeID]
		if !ok {
			continue
		}
		result := owner.Execute(ctx, cand.Insight)
		report.Executions = append(report.Executions, result)

		if result.CircuitBreaker {
			report.Halted = true
			slog.Warn("cycle halted by circuit breaker", "node", cand.NodeID, "reason", result.Reason)
			break
		}
		if result.Executed {
			executed++
			slog.Info("trade executed",
				"node", cand.NodeID,
				"symbol", result.Symbol,
				"action", result.Action,
				"size", result.Size,
				"expected_pnl", result.ExpectedPnL,
			)
			if executed >= e.cfg.MaxExecutions {
				break
			}
		}
	}

	report.Status = e.ledger.Status()
	report.Duration = e.nowFn().Sub(start)

	e.mu.Lock()
	e.cyclesRun++
	e.mu.Unlock()

	e.publish(ctx, report)

	slog.Info("cycle complete",
		"insights", len(insights),
		"executed", executed,
		"halted", report.Halted,
		"network_capital", report.Status.NetworkCapital,
		"reserve", report.Status.ReserveTotal,
		"nodes", report.Status.TotalNodes,
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

// gatherAll fans out GatherInsights to every node. One node failing (or one
// symbol's data being unavailable) never kills the cycle: the failure is
// logged and that node simply contributes nothing this round.
func (e *Engine) gatherAll(ctx context.Context, nodes []node.Node) []domain.RankedInsight {
	var (
		mu  sync.Mutex
		all []domain.RankedInsight
	)
	g, ctx := errgroup.WithContext(ctx)

	for _, n := range nodes {
		n := n
		g.Go(func() error {
			insights, err := n.GatherInsights(ctx)
			if err != nil {
				slog.Warn("gather failed", "node", n.ID(), "err", err)
				return nil
			}
			slog.Debug("gathered insights", "node", n.ID(), "count", len(insights))
			mu.Lock()
			for _, ins := range insights {
				all = append(all, domain.RankedInsight{NodeID: n.ID(), Insight: ins})
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; Wait is for completion only

	return all
}

// publish hands the report to the optional collaborators. Their failures
// are logged and swallowed: presentation and history never block trading.
func (e *Engine) publish(ctx context.Context, report domain.CycleReport) {
	if e.notifier != nil {
		if err := e.notifier.NotifyCycle(ctx, report); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	if e.storage != nil {
		if err := e.storage.SaveCycle(ctx, report); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}
	if e.reports != nil {
		if err := e.reports.WriteSnapshot(report.Status); err != nil {
			slog.Warn("snapshot error", "err", err)
		}
	}
}
