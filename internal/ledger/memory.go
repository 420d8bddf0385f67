package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
)

// MemoryLedger keeps tenant balances and reservations in process memory. It
// is intended for tests and single-node development, mirroring the file
// store posture for assets. A single mutex is the serialization point for
// every pool, which makes Reserve trivially linearizable per tenant.
type MemoryLedger struct {
	mu           sync.Mutex
	balances     map[string]*domain.TenantBalances
	reservations map[string]*domain.CreditReservation
}

// NewMemoryLedger initializes an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:     make(map[string]*domain.TenantBalances),
		reservations: make(map[string]*domain.CreditReservation),
	}
}

// SetBalances seeds or replaces the balance document for a tenant.
func (l *MemoryLedger) SetBalances(b domain.TenantBalances) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b.UpdatedAt = time.Now().UTC()
	l.balances[b.TenantID] = &b
}

// Reserve debits the first priority pool that can cover amount and records
// a HELD reservation against it.
func (l *MemoryLedger) Reserve(ctx context.Context, tenantID, customerID string, amount int) (*domain.CreditReservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("ledger: amount must be positive, got %d", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[tenantID]
	if !ok {
		return nil, domain.ErrInsufficientFunds
	}

	source, ok := bal.FirstViablePool(amount)
	if !ok {
		return nil, domain.ErrInsufficientFunds
	}
	debit(bal, source, amount)
	bal.UpdatedAt = time.Now().UTC()

	res := &domain.CreditReservation{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		CustomerID: customerID,
		Amount:     amount,
		Source:     source,
		State:      domain.ReservationHeld,
		CreatedAt:  time.Now().UTC(),
	}
	l.reservations[res.ID] = res
	return res, nil
}

// Commit finalizes a held reservation. No balance change: the funds were
// already subtracted when the hold was taken.
func (l *MemoryLedger) Commit(ctx context.Context, reservationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	res, ok := l.reservations[reservationID]
	if !ok {
		return domain.ErrNotFound
	}
	if res.State != domain.ReservationHeld {
		return nil
	}
	res.State = domain.ReservationCommitted
	now := time.Now().UTC()
	res.ResolvedAt = &now
	return nil
}

// Rollback restores the reserved amount to the pool it was drawn from.
func (l *MemoryLedger) Rollback(ctx context.Context, reservationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	res, ok := l.reservations[reservationID]
	if !ok {
		return domain.ErrNotFound
	}
	if res.State != domain.ReservationHeld {
		return nil
	}
	if bal, ok := l.balances[res.TenantID]; ok {
		credit(bal, res.Source, res.Amount)
		bal.UpdatedAt = time.Now().UTC()
	}
	res.State = domain.ReservationRolledBack
	now := time.Now().UTC()
	res.ResolvedAt = &now
	return nil
}

// Balances returns a copy of the tenant's balance document.
func (l *MemoryLedger) Balances(ctx context.Context, tenantID string) (*domain.TenantBalances, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *bal
	return &copied, nil
}

// Reservation returns a copy of a reservation, mainly for tests and audit.
func (l *MemoryLedger) Reservation(reservationID string) (*domain.CreditReservation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.reservations[reservationID]
	if !ok {
		return nil, false
	}
	copied := *res
	return &copied, true
}

func debit(b *domain.TenantBalances, source domain.CreditSource, amount int) {
	switch source {
	case domain.CreditSourcePack:
		b.PackCredits -= amount
	case domain.CreditSourceSubscription:
		b.SubscriptionCredits -= amount
	}
	// vip is unlimited; nothing to subtract.
}

func credit(b *domain.TenantBalances, source domain.CreditSource, amount int) {
	switch source {
	case domain.CreditSourcePack:
		b.PackCredits += amount
	case domain.CreditSourceSubscription:
		b.SubscriptionCredits += amount
	}
}

var _ domain.Ledger = (*MemoryLedger)(nil)
