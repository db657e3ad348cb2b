package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

const (
	defaultBase = "https://api.coingecko.com"

	// TTL del caché: CoinGecko free no necesita más resolución que esto.
	cacheTTL = 5 * time.Minute

	// Rate limit al 60% del límite free documentado (~30 req/min → 18/min).
	requestsPerMinute = 18
)

// cachedQuote es la última quote conocida de un símbolo.
type cachedQuote struct {
	quote     domain.Quote
	fetchedAt time.Time
}

// CoinGecko implementa ports.MarketProvider contra el endpoint público
// simple/price (sin API key). Cachea con TTL corto y, si el upstream falla,
// degrada a la última quote conocida en vez de propagar el error; el breaker
// evita martillear una API caída.
type CoinGecko struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]cachedQuote
	nowFn func() time.Time
}

// NewCoinGecko crea el cliente. Si base está vacío usa el URL de producción.
func NewCoinGecko(base string) *CoinGecko {
	if base == "" {
		base = defaultBase
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "coingecko",
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("market data breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &CoinGecko{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    strings.TrimRight(base, "/"),
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute)/60, 3),
		breaker: breaker,
		ttl:     cacheTTL,
		cache:   make(map[string]cachedQuote),
		nowFn:   time.Now,
	}
}

// GetPrice devuelve la quote del símbolo (id de CoinGecko, p.ej. "bitcoin").
// Sin reintentos: un fallo degrada a caché stale o, si no hay nada, error.
func (c *CoinGecko) GetPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	key := strings.ToLower(symbol)

	if quote, ok := c.fresh(key); ok {
		return quote, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return c.staleOrError(key, err)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, key)
	})
	if err != nil {
		return c.staleOrError(key, err)
	}

	quote := result.(domain.Quote)
	c.mu.Lock()
	c.cache[key] = cachedQuote{quote: quote, fetchedAt: c.nowFn()}
	c.mu.Unlock()
	return quote, nil
}

// fresh devuelve la quote cacheada si aún está dentro del TTL.
func (c *CoinGecko) fresh(key string) (domain.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || c.nowFn().Sub(entry.fetchedAt) >= c.ttl {
		return domain.Quote{}, false
	}
	return entry.quote, true
}

// staleOrError degrada a la última quote conocida, marcada como stale.
// Solo devuelve error cuando nunca hubo una quote para el símbolo.
func (c *CoinGecko) staleOrError(key string, cause error) (domain.Quote, error) {
	c.mu.Lock()
	entry, ok := c.cache[key]
	c.mu.Unlock()
	if !ok {
		return domain.Quote{}, fmt.Errorf("marketdata.GetPrice: %q: %w", key, cause)
	}
	slog.Debug("serving stale quote", "symbol", key, "age", c.nowFn().Sub(entry.fetchedAt).Round(time.Second), "err", cause)
	quote := entry.quote
	quote.Stale = true
	quote.Source = "coingecko (stale)"
	return quote, nil
}

// simplePriceEntry es la respuesta del endpoint simple/price por moneda.
type simplePriceEntry struct {
	USD       float64 `json:"usd"`
	Change24h float64 `json:"usd_24h_change"`
	Volume24h float64 `json:"usd_24h_vol"`
}

// fetch hace el GET real contra el upstream.
func (c *CoinGecko) fetch(ctx context.Context, id string) (domain.Quote, error) {
	url := fmt.Sprintf(
		"%s/api/v3/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true&include_24hr_vol=true",
		c.base, id,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Quote{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Quote{}, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]simplePriceEntry
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Quote{}, fmt.Errorf("decode: %w", err)
	}
	entry, ok := payload[id]
	if !ok {
		return domain.Quote{}, fmt.Errorf("symbol %q not in response", id)
	}

	return domain.Quote{
		Symbol:    id,
		Price:     entry.USD,
		Change24h: entry.Change24h,
		Volume:    entry.Volume24h,
		Timestamp: c.nowFn(),
		Source:    "coingecko",
	}, nil
}
