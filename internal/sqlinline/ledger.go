package sqlinline

const QSelectBalancesForUpdate = `--sql a41d43ac-51c7-4e8d-a270-67e39ea90cf3
select tenant_id, vip, pack_credits, subscription_credits
from tenant_balances
where tenant_id = $1
for update;
`

const QSelectBalances = `--sql 8fe13487-9f66-45c4-bb0d-1b15b9db70c6
select tenant_id, vip, pack_credits, subscription_credits, updated_at
from tenant_balances
where tenant_id = $1;
`

// The adjust statements take a signed delta: negative to debit a hold,
// positive to restore a rollback.
const QAdjustPackCredits = `--sql bdf37a7d-d1b6-4258-91d3-326a3e3d6184
update tenant_balances
set pack_credits = pack_credits + $2, updated_at = now()
where tenant_id = $1;
`

const QAdjustSubscriptionCredits = `--sql 9f7eb1e2-f2d8-401e-8118-31af5cebf464
update tenant_balances
set subscription_credits = subscription_credits + $2, updated_at = now()
where tenant_id = $1;
`

const QInsertReservation = `--sql 756fe36b-8df1-4f7f-996e-ac8d00e2f0bd
insert into credit_reservations (id, tenant_id, customer_id, amount, source, state, created_at)
values ($1, $2, $3, $4, $5, $6, $7);
`

const QSelectReservationForUpdate = `--sql d03d0465-83d5-4978-9878-dd577a591c51
select tenant_id, amount, source, state
from credit_reservations
where id = $1
for update;
`

const QResolveReservation = `--sql 38e4d275-cdc8-44d2-bb90-0e95d8d36574
update credit_reservations
set state = $2, resolved_at = now()
where id = $1;
`
