package domain

import "time"

// CreditSource identifies which balance pool satisfied a reservation. Pools
// are tried in priority order: vip first, then prepaid pack, then
// subscription credits. The order is a business rule, not an accident.
type CreditSource string

const (
	CreditSourceVIP          CreditSource = "vip"
	CreditSourcePack         CreditSource = "pack"
	CreditSourceSubscription CreditSource = "subscription"
)

// PoolPriority lists the credit pools in the order Reserve tries them.
var PoolPriority = []CreditSource{CreditSourceVIP, CreditSourcePack, CreditSourceSubscription}

// ReservationState enumerates the lifecycle of a credit hold. A reservation
// leaves HELD exactly once; resolving an already-resolved reservation must
// never adjust balances again.
type ReservationState string

const (
	ReservationHeld       ReservationState = "HELD"
	ReservationCommitted  ReservationState = "COMMITTED"
	ReservationRolledBack ReservationState = "ROLLED_BACK"
)

// CreditReservation is a provisional hold of credits against one balance
// pool, created before any compute is spent and resolved by commit or
// rollback. The source pool is recorded so rollback restores exactly the
// pool that was debited.
type CreditReservation struct {
	ID         string
	TenantID   string
	CustomerID string
	Amount     int
	Source     CreditSource
	State      ReservationState
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// TenantBalances is the per-tenant credit document. Held amounts are already
// subtracted from the visible pool balances, so concurrent jobs can never
// both spend the last unit.
type TenantBalances struct {
	TenantID            string
	VIP                 bool
	PackCredits         int
	SubscriptionCredits int
	UpdatedAt           time.Time
}

// FirstViablePool walks the pool priority order and returns the first pool
// able to cover amount.
func (b TenantBalances) FirstViablePool(amount int) (CreditSource, bool) {
	for _, source := range PoolPriority {
		avail := b.Available(source)
		if avail < 0 || avail >= amount {
			return source, true
		}
	}
	return "", false
}

// Available reports the balance of the given pool. The vip pool is
// unlimited and reports -1.
func (b TenantBalances) Available(source CreditSource) int {
	switch source {
	case CreditSourceVIP:
		if b.VIP {
			return -1
		}
		return 0
	case CreditSourcePack:
		return b.PackCredits
	case CreditSourceSubscription:
		return b.SubscriptionCredits
	default:
		return 0
	}
}
