package ports

import (
	"context"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// MarketProvider obtiene el precio actual de un símbolo.
type MarketProvider interface {
	// GetPrice devuelve la quote del símbolo. El proveedor cachea con un
	// TTL corto y degrada a la última quote conocida si el upstream falla;
	// solo devuelve error cuando no hay nada en caché.
	GetPrice(ctx context.Context, symbol string) (domain.Quote, error)
}
