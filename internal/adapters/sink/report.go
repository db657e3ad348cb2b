package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// ReportFile implementa ports.ReportWriter: el snapshot periódico se
// sobreescribe en cada ciclo; el informe final crea un documento nuevo
// por run, con timestamp en el nombre.
type ReportFile struct {
	dir string
	mu  sync.Mutex
}

// NewReportFile crea el writer y asegura que el directorio exista.
func NewReportFile(dir string) (*ReportFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sink.NewReportFile: mkdir %q: %w", dir, err)
	}
	return &ReportFile{dir: dir}, nil
}

// WriteSnapshot sobreescribe status.json con el estado actual de la red.
func (r *ReportFile) WriteSnapshot(status domain.NetworkStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return writeDoc(filepath.Join(r.dir, "status.json"), status)
}

// WriteFinalReport crea el informe de cierre del run.
func (r *ReportFile) WriteFinalReport(report domain.FinalReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := fmt.Sprintf("final_report_%s.json", report.Timestamp.Format("20060102_1504"))
	return writeDoc(filepath.Join(r.dir, name), report)
}

// writeDoc escribe v como un documento JSON indentado.
func writeDoc(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("sink: marshal %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("sink: write %q: %w", path, err)
	}
	return nil
}
