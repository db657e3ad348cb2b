package ports

import (
	"context"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// Storage persiste el histórico de ciclos y ejecuciones.
type Storage interface {
	// SaveCycle persiste el resumen del ciclo y sus ejecuciones.
	SaveCycle(ctx context.Context, report domain.CycleReport) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
