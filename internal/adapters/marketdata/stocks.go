package marketdata

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// StockQuotes implementa ports.MarketProvider con precios sintéticos
// deterministas derivados del símbolo. Sustituto del feed bursátil real
// hasta tener un proveedor con API key; la estructura de las quotes es
// la misma que daría el feed real.
type StockQuotes struct {
	nowFn func() time.Time
}

// NewStockQuotes crea el proveedor sintético.
func NewStockQuotes() *StockQuotes {
	return &StockQuotes{nowFn: time.Now}
}

// GetPrice devuelve un precio determinista por símbolo: 150 + hash % 50.
// Nunca falla y no toca la red.
func (s *StockQuotes) GetPrice(_ context.Context, symbol string) (domain.Quote, error) {
	h := fnv.New32a()
	h.Write([]byte(strings.ToUpper(symbol)))

	return domain.Quote{
		Symbol:    strings.ToUpper(symbol),
		Price:     150.0 + float64(h.Sum32()%50),
		Change24h: 2.5,
		Volume:    1_000_000,
		Timestamp: s.nowFn(),
		Source:    "synthetic",
	}, nil
}
