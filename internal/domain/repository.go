package domain

import "context"

// JobRepository defines persistence for job entities.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
}

// Ledger owns the per-tenant credit pools. All balance mutation goes through
// Reserve, Commit and Rollback; no other code path touches balance fields.
type Ledger interface {
	// Reserve atomically debits the first priority pool with sufficient
	// balance and records a HELD reservation. Returns ErrInsufficientFunds
	// when no pool can cover the amount; no reservation is created then.
	Reserve(ctx context.Context, tenantID, customerID string, amount int) (*CreditReservation, error)
	// Commit finalizes a HELD reservation. Funds were already subtracted at
	// reservation time, so no balance changes. Idempotent.
	Commit(ctx context.Context, reservationID string) error
	// Rollback resolves a HELD reservation and restores the amount to the
	// exact pool it was drawn from. Idempotent: resolving an already
	// resolved reservation never re-credits funds.
	Rollback(ctx context.Context, reservationID string) error
	// Balances reads the visible pool balances for a tenant.
	Balances(ctx context.Context, tenantID string) (*TenantBalances, error)
}

// AssetStore persists generated image bytes and returns a stable public URL.
// Writes are safe to retry; overwriting the same key is harmless.
type AssetStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
