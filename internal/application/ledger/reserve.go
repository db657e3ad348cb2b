package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/swarmbot/internal/domain"
	"github.com/alejandrodnm/swarmbot/internal/ports"
)

const (
	// maxWithdrawFraction caps a single emergency withdrawal at half the reserves.
	maxWithdrawFraction = 0.5
	// maxEmergencyWithdrawals is the lifetime cap on emergency withdrawals.
	maxEmergencyWithdrawals = 3
)

// Reserve is the protected emergency fund. It only grows — a fixed share of
// every distributed profit — except through the narrow emergency policy.
type Reserve struct {
	mu            sync.Mutex
	reserves      float64
	withdrawals   int
	lastEmergency time.Time
	log           ports.ReserveLog
	nowFn         func() time.Time
}

// NewReserve creates the fund with its initial endowment.
func NewReserve(initial float64, log ports.ReserveLog) *Reserve {
	return &Reserve{
		reserves: initial,
		log:      log,
		nowFn:    time.Now,
	}
}

// Deposit adds to the reserves unconditionally and logs the movement.
func (r *Reserve) Deposit(amount float64) {
	if amount <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reserves += amount
	r.logEvent(domain.ReserveEvent{
		Timestamp:     r.nowFn(),
		Kind:          domain.ReserveDeposit,
		Amount:        amount,
		ReservesAfter: r.reserves,
	})
}

// EmergencyWithdraw applies the emergency policy: never more than half the
// current reserves in one withdrawal, never more than three withdrawals in
// the fund's lifetime. Rejections have no partial effect.
func (r *Reserve) EmergencyWithdraw(reason string, amount float64) domain.WithdrawDecision {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount > r.reserves*maxWithdrawFraction {
		return domain.WithdrawDecision{
			Reason:    fmt.Sprintf("cannot withdraw %.2f: over 50%% of reserves %.2f", amount, r.reserves),
			Remaining: r.reserves,
		}
	}
	if r.withdrawals >= maxEmergencyWithdrawals {
		return domain.WithdrawDecision{
			Reason:    fmt.Sprintf("%d emergency withdrawals already used: fund locked", r.withdrawals),
			Remaining: r.reserves,
		}
	}

	r.reserves -= amount
	r.withdrawals++
	r.lastEmergency = r.nowFn()

	r.logEvent(domain.ReserveEvent{
		Timestamp:     r.lastEmergency,
		Kind:          domain.ReserveEmergencyWithdrawal,
		Amount:        amount,
		Reason:        reason,
		ReservesAfter: r.reserves,
	})

	return domain.WithdrawDecision{
		Approved:  true,
		Amount:    amount,
		Remaining: r.reserves,
	}
}

// Total returns the current reserves.
func (r *Reserve) Total() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserves
}

// WithdrawalCount returns how many emergency withdrawals have succeeded.
func (r *Reserve) WithdrawalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.withdrawals
}

func (r *Reserve) logEvent(ev domain.ReserveEvent) {
	if r.log == nil {
		return
	}
	if err := r.log.Append(ev); err != nil {
		slog.Warn("reserve ledger append failed", "type", ev.Kind, "err", err)
	}
}
