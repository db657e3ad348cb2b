package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyCycle imprime el resultado del ciclo en el modo configurado.
func (c *Console) NotifyCycle(_ context.Context, report domain.CycleReport) error {
	if c.table {
		c.printFull(report)
	} else {
		c.printCompact(report)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(report domain.CycleReport) {
	now := report.RanAt.Format("15:04:05")
	st := report.Status

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d insights | %d/%d exec | net $%.2f | rsrv $%.2f | nodes %d",
		now, len(report.Insights), report.ExecutedCount(), len(report.Executions),
		st.NetworkCapital, st.ReserveTotal, st.TotalNodes)

	if st.CircuitBreaker {
		sb.WriteString(" | !! CIRCUIT BREAKER")
	} else if st.GrowthHalt {
		sb.WriteString(" | >> growth halted")
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime las tablas de ejecuciones y de nodos.
func (c *Console) printFull(report domain.CycleReport) {
	now := report.RanAt.Format("15:04:05")
	st := report.Status

	fmt.Fprintf(c.out, "\n[%s] cycle done in %s — %d insights, %d executed\n",
		now, report.Duration.Round(time.Millisecond), len(report.Insights), report.ExecutedCount())

	if len(report.Executions) > 0 {
		c.printExecutions(report.Executions)
	}
	c.printNodes(st)

	fmt.Fprintf(c.out, "\n  Network: $%.2f | Reserve: $%.2f | Daily loss: $%.2f\n",
		st.NetworkCapital, st.ReserveTotal, st.DailyLoss)

	switch {
	case st.CircuitBreaker:
		fmt.Fprintf(c.out, "  !! CIRCUIT BREAKER ACTIVO — todos los nodos parados, requiere reset manual\n\n")
	case st.GrowthHalt:
		fmt.Fprintf(c.out, "  >> Crecimiento pausado por pérdidas consecutivas (%d)\n\n", st.ConsecutiveFailures)
	default:
		fmt.Fprintln(c.out)
	}
}

// printExecutions imprime la tabla de ejecuciones del ciclo.
func (c *Console) printExecutions(execs []domain.ExecutionResult) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Node", "Symbol", "Action", "Size", "Exp PnL", "Result")

	for i, e := range execs {
		result := "OK"
		if !e.Executed {
			result = truncate(e.Reason, 40)
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			e.NodeID,
			e.Symbol,
			string(e.Action),
			fmt.Sprintf("$%.2f", e.Size),
			fmt.Sprintf("$%.2f", e.ExpectedPnL),
			result,
		)
	}

	table.Render()
}

// printNodes imprime el estado de cada nodo en orden de spawn.
func (c *Console) printNodes(st domain.NetworkStatus) {
	if len(st.Nodes) == 0 {
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Node", "Specialty", "Capital", "Today PnL", "Lifetime", "Status")

	for _, id := range sortedNodeIDs(st.Nodes) {
		n := st.Nodes[id]
		table.Append(
			n.ID,
			string(n.Specialty),
			fmt.Sprintf("$%.2f", n.Capital),
			fmt.Sprintf("$%.2f", n.TodayPnL),
			fmt.Sprintf("$%.2f", n.LifetimePnL),
			string(n.Status),
		)
	}

	table.Render()
}

// --- helpers ---

func sortedNodeIDs(nodes map[string]domain.NodeInfo) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
