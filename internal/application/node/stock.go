package node

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/swarmbot/internal/application/signals"
	"github.com/alejandrodnm/swarmbot/internal/domain"
	"github.com/alejandrodnm/swarmbot/internal/ports"
)

// Stock is the session-bound specialization: it only scans while its market
// session is open and applies a stricter confidence floor than crypto.
type Stock struct {
	base
}

// NewStock creates a stock node with its own isolated capital allocation.
func NewStock(id string, capital float64, profile Profile, ldg Ledger, market ports.MarketProvider) *Stock {
	return &Stock{base: newBase(id, domain.SpecialtyStock, capital, profile, ldg, market)}
}

// SessionAt maps a wall-clock time to a market session using the fixed
// boundaries 04:00, 09:30, 16:00 and 20:00.
func SessionAt(t time.Time) domain.Session {
	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes >= 4*60 && minutes < 9*60+30:
		return domain.SessionPreMarket
	case minutes >= 9*60+30 && minutes < 16*60:
		return domain.SessionRegular
	case minutes >= 16*60 && minutes < 20*60:
		return domain.SessionAfterHours
	default:
		return domain.SessionClosed
	}
}

// Session returns the node's current market session.
func (s *Stock) Session() domain.Session {
	return SessionAt(s.nowFn())
}

// GatherInsights rests while the market is closed; otherwise it scans the
// watchlist concurrently like the crypto node, tagging each insight with
// the session it was produced in.
func (s *Stock) GatherInsights(ctx context.Context) ([]domain.Insight, error) {
	if s.Halted() {
		return nil, nil
	}
	session := s.Session()
	if !session.Open() {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		insights []domain.Insight
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(gatherWorkers)

	for _, symbol := range s.profile.Watchlist {
		symbol := symbol
		g.Go(func() error {
			quote, err := s.market.GetPrice(ctx, symbol)
			if err != nil {
				slog.Debug("market data unavailable, skipping symbol",
					"node", s.id, "symbol", symbol, "err", err)
				return nil
			}

			sigs := s.signals.Analyze(symbol, quote.Price, signals.MarketContext{
				Volume: quote.Volume,
			})
			for _, sig := range sigs {
				if !sig.Actionable() || sig.Confidence <= s.profile.MinConfidence {
					continue
				}
				mu.Lock()
				insights = append(insights, domain.Insight{
					Symbol:         sig.Symbol,
					Price:          quote.Price,
					Action:         sig.Action,
					Confidence:     sig.Confidence,
					ExpectedReturn: sig.ExpectedReturn,
					StopLoss:       sig.StopLoss,
					TakeProfit:     sig.TakeProfit,
					Strategy:       sig.Strategy,
					Session:        session,
					Timestamp:      sig.Timestamp,
				})
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return insights, nil
}

// Execute runs the deterministic fill with the more conservative stock sizing.
func (s *Stock) Execute(_ context.Context, insight domain.Insight) domain.ExecutionResult {
	return s.execute(insight)
}
