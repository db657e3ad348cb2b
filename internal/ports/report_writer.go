package ports

import "github.com/alejandrodnm/swarmbot/internal/domain"

// ReportWriter persiste snapshots de estado y el informe final de shutdown.
// Cada documento es un JSON completo que se crea o sobreescribe por run.
type ReportWriter interface {
	// WriteSnapshot sobreescribe el snapshot de estado periódico.
	WriteSnapshot(status domain.NetworkStatus) error

	// WriteFinalReport crea el informe de cierre del run.
	WriteFinalReport(report domain.FinalReport) error
}
