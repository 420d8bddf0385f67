package sqlinline

// QGrantTenantCredits seeds or tops up a tenant's balance row. Credits
// accumulate; the vip flag is overwritten with the provided value.
const QGrantTenantCredits = `--sql 9f41a814-1577-4782-95cf-6ec31d95b106
insert into tenant_balances (tenant_id, vip, pack_credits, subscription_credits, updated_at)
values ($1, $2, $3, $4, now())
on conflict (tenant_id) do update
set vip = excluded.vip,
    pack_credits = tenant_balances.pack_credits + excluded.pack_credits,
    subscription_credits = tenant_balances.subscription_credits + excluded.subscription_credits,
    updated_at = now()
returning tenant_id, vip, pack_credits, subscription_credits;
`
