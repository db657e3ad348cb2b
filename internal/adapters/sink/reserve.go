package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// ReserveFile implementa ports.ReserveLog: un JSONL append-only con todos
// los movimientos del fondo de reserva.
type ReserveFile struct {
	path string
	mu   sync.Mutex
}

// NewReserveFile crea el sink y asegura que el directorio exista.
func NewReserveFile(path string) (*ReserveFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sink.NewReserveFile: mkdir: %w", err)
	}
	return &ReserveFile{path: path}, nil
}

// Append añade el movimiento al ledger de reserva.
func (r *ReserveFile) Append(event domain.ReserveEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return appendLine(r.path, event)
}
