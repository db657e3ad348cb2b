package ports

import (
	"context"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// Notifier presenta el resultado de cada ciclo al usuario.
type Notifier interface {
	// NotifyCycle muestra las ejecuciones del ciclo y el estado de la red.
	// En la implementación de consola, imprime tablas formateadas.
	NotifyCycle(ctx context.Context, report domain.CycleReport) error
}
