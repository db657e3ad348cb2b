package sink

// growth.go — log de crecimiento append-only en JSONL.
//
// Una entrada por evento (spawn, profit, loss, breaker), una línea JSON por
// entrada, particionado por mes (growth/YYYYMM.jsonl). Las entradas nunca
// se reescriben: es el audit trail de referencia.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// GrowthFile implementa ports.GrowthLog sobre archivos JSONL mensuales.
type GrowthFile struct {
	dir string
	mu  sync.Mutex
}

// NewGrowthFile crea el sink y asegura que el directorio exista.
func NewGrowthFile(dir string) (*GrowthFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sink.NewGrowthFile: mkdir %q: %w", dir, err)
	}
	return &GrowthFile{dir: dir}, nil
}

// Append añade el evento a la partición del mes de su timestamp.
func (g *GrowthFile) Append(event domain.GrowthEvent) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	path := filepath.Join(g.dir, event.Timestamp.Format("200601")+".jsonl")
	return appendLine(path, event)
}

// appendLine serializa v como una línea JSON y la añade al archivo.
func appendLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sink: marshal: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("sink: open %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("sink: write %q: %w", path, err)
	}
	return nil
}
