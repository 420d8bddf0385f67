package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
	"server/internal/sqlinline"
)

// LedgerPG is the durable ledger. Each Reserve runs in one transaction that
// locks the tenant's balance row, so two concurrent reservations against the
// same tenant can never observe the same pre-decrement balance.
type LedgerPG struct {
	pool *pgxpool.Pool
}

// NewLedger creates a Postgres-backed ledger.
func NewLedger(pool *pgxpool.Pool) *LedgerPG {
	return &LedgerPG{pool: pool}
}

// Reserve debits the first priority pool able to cover amount and inserts a
// HELD reservation, atomically.
func (l *LedgerPG) Reserve(ctx context.Context, tenantID, customerID string, amount int) (*domain.CreditReservation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("ledger: amount must be positive, got %d", amount)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: begin reserve: %w", err)
	}
	defer tx.Rollback(ctx)

	var bal domain.TenantBalances
	row := tx.QueryRow(ctx, sqlinline.QSelectBalancesForUpdate, tenantID)
	if err := row.Scan(&bal.TenantID, &bal.VIP, &bal.PackCredits, &bal.SubscriptionCredits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInsufficientFunds
		}
		return nil, fmt.Errorf("ledger: load balances: %w", err)
	}

	source, ok := bal.FirstViablePool(amount)
	if !ok {
		return nil, domain.ErrInsufficientFunds
	}

	if query := adjustQuery(source); query != "" {
		if _, err := tx.Exec(ctx, query, tenantID, -amount); err != nil {
			return nil, fmt.Errorf("ledger: debit %s: %w", source, err)
		}
	}

	res := &domain.CreditReservation{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		CustomerID: customerID,
		Amount:     amount,
		Source:     source,
		State:      domain.ReservationHeld,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := tx.Exec(ctx, sqlinline.QInsertReservation,
		res.ID, res.TenantID, res.CustomerID, res.Amount, res.Source, res.State, res.CreatedAt); err != nil {
		return nil, fmt.Errorf("ledger: insert reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ledger: commit reserve: %w", err)
	}
	return res, nil
}

// Commit finalizes a held reservation. Idempotent; committing a resolved
// reservation changes nothing.
func (l *LedgerPG) Commit(ctx context.Context, reservationID string) error {
	return l.resolve(ctx, reservationID, domain.ReservationCommitted, false)
}

// Rollback resolves a held reservation and restores the amount to the pool
// it was drawn from. Idempotent.
func (l *LedgerPG) Rollback(ctx context.Context, reservationID string) error {
	return l.resolve(ctx, reservationID, domain.ReservationRolledBack, true)
}

func (l *LedgerPG) resolve(ctx context.Context, reservationID string, target domain.ReservationState, restore bool) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger: begin resolve: %w", err)
	}
	defer tx.Rollback(ctx)

	var tenantID string
	var amount int
	var source domain.CreditSource
	var state domain.ReservationState
	row := tx.QueryRow(ctx, sqlinline.QSelectReservationForUpdate, reservationID)
	if err := row.Scan(&tenantID, &amount, &source, &state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("ledger: load reservation: %w", err)
	}

	// A reservation leaves HELD exactly once; later calls are no-ops so a
	// retried failure handler can never double-adjust balances.
	if state != domain.ReservationHeld {
		return nil
	}

	if restore {
		if query := adjustQuery(source); query != "" {
			if _, err := tx.Exec(ctx, query, tenantID, amount); err != nil {
				return fmt.Errorf("ledger: restore %s: %w", source, err)
			}
		}
	}

	if _, err := tx.Exec(ctx, sqlinline.QResolveReservation, reservationID, target); err != nil {
		return fmt.Errorf("ledger: resolve reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger: commit resolve: %w", err)
	}
	return nil
}

// Balances reads the visible pool balances for a tenant.
func (l *LedgerPG) Balances(ctx context.Context, tenantID string) (*domain.TenantBalances, error) {
	var bal domain.TenantBalances
	row := l.pool.QueryRow(ctx, sqlinline.QSelectBalances, tenantID)
	if err := row.Scan(&bal.TenantID, &bal.VIP, &bal.PackCredits, &bal.SubscriptionCredits, &bal.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &bal, nil
}

// adjustQuery maps a debitable pool to its signed-delta adjust statement.
// The vip pool is unlimited and never adjusted.
func adjustQuery(source domain.CreditSource) string {
	switch source {
	case domain.CreditSourcePack:
		return sqlinline.QAdjustPackCredits
	case domain.CreditSourceSubscription:
		return sqlinline.QAdjustSubscriptionCredits
	default:
		return ""
	}
}

var _ domain.Ledger = (*LedgerPG)(nil)
