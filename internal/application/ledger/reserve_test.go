package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/swarmbot/internal/domain"
)

// memReserveLog captura movimientos de reserva en memoria.
type memReserveLog struct {
	events []domain.ReserveEvent
}

func (m *memReserveLog) Append(event domain.ReserveEvent) error {
	m.events = append(m.events, event)
	return nil
}

func TestReserve_DepositGrowsAndLogs(t *testing.T) {
	log := &memReserveLog{}
	r := NewReserve(20, log)

	r.Deposit(10)
	assert.InDelta(t, 30, r.Total(), 0.001)

	require.Len(t, log.events, 1)
	assert.Equal(t, domain.ReserveDeposit, log.events[0].Kind)
	assert.InDelta(t, 30, log.events[0].ReservesAfter, 0.001)
}

func TestReserve_DepositIgnoresNonPositive(t *testing.T) {
	r := NewReserve(20, nil)
	r.Deposit(0)
	r.Deposit(-5)
	assert.InDelta(t, 20, r.Total(), 0.001)
}

func TestEmergencyWithdraw_OverHalfRejected(t *testing.T) {
	r := NewReserve(100, nil)

	d := r.EmergencyWithdraw("node rescue", 51)
	require.False(t, d.Approved)
	assert.Contains(t, d.Reason, "50%")
	assert.InDelta(t, 100, r.Total(), 0.001)

	// Exactamente la mitad sí pasa
	d = r.EmergencyWithdraw("node rescue", 50)
	require.True(t, d.Approved)
	assert.InDelta(t, 50, d.Remaining, 0.001)
}

func TestEmergencyWithdraw_LifetimeCap(t *testing.T) {
	log := &memReserveLog{}
	r := NewReserve(1000, log)

	require.True(t, r.EmergencyWithdraw("a", 100).Approved)
	require.True(t, r.EmergencyWithdraw("b", 100).Approved)
	require.True(t, r.EmergencyWithdraw("c", 100).Approved)
	assert.Equal(t, 3, r.WithdrawalCount())

	// El cuarto intento queda bloqueado de por vida
	d := r.EmergencyWithdraw("d", 10)
	require.False(t, d.Approved)
	assert.Contains(t, d.Reason, "fund locked")
	assert.InDelta(t, 700, r.Total(), 0.001)

	// Solo los retiros aprobados quedan en el ledger
	withdrawals := 0
	for _, ev := range log.events {
		if ev.Kind == domain.ReserveEmergencyWithdrawal {
			withdrawals++
		}
	}
	assert.Equal(t, 3, withdrawals)
}
