package storage

// sqlite.go — histórico de ciclos y ejecuciones.
//
// Estrategia:
//   - `cycles`: resumen ligero por ciclo (insights, ejecuciones, capital).
//     Siempre 1 fila por ciclo.
//   - `executions`: una fila por ejecución del ciclo, incluidas las
//     rechazadas (el motivo queda en `reason`).
//   - Prune automático al arrancar: ciclos y ejecuciones > 30 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/swarmbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Resumen ligero por ciclo
CREATE TABLE IF NOT EXISTS cycles (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    ran_at          DATETIME NOT NULL,
    duration_ms     INTEGER  NOT NULL DEFAULT 0,
    insights        INTEGER  NOT NULL DEFAULT 0,
    executed        INTEGER  NOT NULL DEFAULT 0,
    halted          INTEGER  NOT NULL DEFAULT 0,
    network_capital REAL     NOT NULL DEFAULT 0,
    reserve_total   REAL     NOT NULL DEFAULT 0,
    total_nodes     INTEGER  NOT NULL DEFAULT 0
);

-- Una fila por ejecución, exitosa o rechazada
CREATE TABLE IF NOT EXISTS executions (
    id           TEXT PRIMARY KEY,
    cycle_id     INTEGER NOT NULL,
    node_id      TEXT    NOT NULL,
    symbol       TEXT    NOT NULL,
    action       TEXT    NOT NULL,
    size         REAL    NOT NULL DEFAULT 0,
    expected_pnl REAL    NOT NULL DEFAULT 0,
    executed     INTEGER NOT NULL DEFAULT 0,
    reason       TEXT,
    executed_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_at  ON cycles(ran_at DESC);
CREATE INDEX IF NOT EXISTS idx_exec_cycle ON executions(cycle_id);
CREATE INDEX IF NOT EXISTS idx_exec_node  ON executions(node_id);
`

// retention limita el histórico a 30 días.
const retention = 30 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveCycle persiste el resumen del ciclo y sus ejecuciones en una transacción.
func (s *SQLiteStorage) SaveCycle(ctx context.Context, report domain.CycleReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO cycles (ran_at, duration_ms, insights, executed, halted, network_capital, reserve_total, total_nodes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RanAt.UTC(),
		report.Duration.Milliseconds(),
		len(report.Insights),
		report.ExecutedCount(),
		boolToInt(report.Halted),
		report.Status.NetworkCapital,
		report.Status.ReserveTotal,
		report.Status.TotalNodes,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: insert cycle: %w", err)
	}
	cycleID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: cycle id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO executions (id, cycle_id, node_id, symbol, action, size, expected_pnl, executed, reason, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range report.Executions {
		executedAt := e.ExecutedAt
		if executedAt.IsZero() {
			executedAt = report.RanAt
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), cycleID, e.NodeID, e.Symbol, string(e.Action),
			e.Size, e.ExpectedPnL, boolToInt(e.Executed), e.Reason, executedAt.UTC(),
		); err != nil {
			return fmt.Errorf("storage.SaveCycle: insert execution: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveCycle: commit: %w", err)
	}
	return nil
}

// GetExecutions devuelve las ejecuciones de un nodo, más recientes primero.
func (s *SQLiteStorage) GetExecutions(ctx context.Context, nodeID string) ([]domain.ExecutionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, symbol, action, size, expected_pnl, executed, COALESCE(reason, ''), executed_at
		 FROM executions WHERE node_id = ? ORDER BY executed_at DESC`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetExecutions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.ExecutionResult
	for rows.Next() {
		var (
			e        domain.ExecutionResult
			action   string
			executed int
		)
		if err := rows.Scan(&e.NodeID, &e.Symbol, &action, &e.Size, &e.ExpectedPnL, &executed, &e.Reason, &e.ExecutedAt); err != nil {
			return nil, fmt.Errorf("storage.GetExecutions: scan: %w", err)
		}
		e.Action = domain.Action(action)
		e.Executed = executed != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// CycleCount devuelve cuántos ciclos hay registrados.
func (s *SQLiteStorage) CycleCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage.CycleCount: %w", err)
	}
	return n, nil
}

// Close cierra la conexión a la base de datos limpiamente.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld borra histórico más antiguo que la retención configurada.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retention)
	s.db.ExecContext(ctx, `DELETE FROM executions WHERE executed_at < ?`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE ran_at < ?`, cutoff)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
