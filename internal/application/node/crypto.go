package node

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/swarmbot/internal/application/signals"
	"github.com/alejandrodnm/swarmbot/internal/domain"
	"github.com/alejandrodnm/swarmbot/internal/ports"
)

// Crypto is the continuous-market specialization: the watchlist is scanned
// every cycle around the clock, and only high-confidence signals survive.
type Crypto struct {
	base
}

// NewCrypto creates a crypto node with its own isolated capital allocation.
func NewCrypto(id string, capital float64, profile Profile, ldg Ledger, market ports.MarketProvider) *Crypto {
	return &Crypto{base: newBase(id, domain.SpecialtyCrypto, capital, profile, ldg, market)}
}

// GatherInsights fetches the whole watchlist concurrently, feeds prices to
// the signal engine and keeps signals above the confidence floor. A failed
// fetch skips that symbol for this cycle only; there are no retries.
func (c *Crypto) GatherInsights(ctx context.Context) ([]domain.Insight, error) {
	if c.Halted() {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		insights []domain.Insight
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(gatherWorkers)

	for _, symbol := range c.profile.Watchlist {
		symbol := symbol
		g.Go(func() error {
			quote, err := c.market.GetPrice(ctx, symbol)
			if err != nil {
				slog.Debug("market data unavailable, skipping symbol",
					"node", c.id, "symbol", symbol, "err", err)
				return nil
			}

			sigs := c.signals.Analyze(symbol, quote.Price, signals.MarketContext{
				Change24h: quote.Change24h,
				Volume:    quote.Volume,
			})
			for _, s := range sigs {
				if !s.Actionable() || s.Confidence <= c.profile.MinConfidence {
					continue
				}
				mu.Lock()
				insights = append(insights, domain.Insight{
					Symbol:         s.Symbol,
					Price:          quote.Price,
					Action:         s.Action,
					Confidence:     s.Confidence,
					ExpectedReturn: s.ExpectedReturn,
					StopLoss:       s.StopLoss,
					TakeProfit:     s.TakeProfit,
					Strategy:       s.Strategy,
					Timestamp:      s.Timestamp,
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

// Execute runs the deterministic fill with crypto sizing.
func (c *Crypto) Execute(_ context.Context, insight domain.Insight) domain.ExecutionResult {
	return c.execute(insight)
}
