// Package sqlinline holds every SQL statement the service executes. Each
// statement opens with a `--sql <uuid>` audit marker; the marker travels to
// the server as a comment and shows up verbatim in pg_stat_statements, so a
// slow query can be traced back to the exact constant that produced it. The
// sqllint tool under internal/tools enforces the markers.
package sqlinline

const QInsertTryonJob = `--sql 076f4a55-0b39-4903-aec3-a72fd7a10ae3
insert into tryon_jobs (id, tenant_id, customer_id, kind, status, input_refs, product_tags, scenario_category, created_at)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`

const QUpdateTryonJob = `--sql 829d745b-2621-4ffe-bf3b-ba41a0aa67dc
update tryon_jobs
set status = $2,
    reservation_id = nullif($3, ''),
    result_url = nullif($4, ''),
    scenario_category = $5,
    reason_code = $6,
    error_message = $7,
    started_at = $8,
    completed_at = $9
where id = $1;
`

const QSelectTryonJobByID = `--sql 23f0c684-b6e9-4a60-8373-41ff7d2c3534
select id, tenant_id, customer_id, kind, status, input_refs, product_tags, scenario_category,
       coalesce(reservation_id, ''), coalesce(result_url, ''), reason_code, error_message,
       created_at, started_at, completed_at
from tryon_jobs
where id = $1;
`

const QClaimPendingTryonJob = `--sql 853913b7-26d8-4967-975a-5d9bc9df73a4
with next_job as (
    select id
    from tryon_jobs
    where status = 'PENDING'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update tryon_jobs
    set status = 'PROCESSING', started_at = now()
    where id in (select id from next_job)
    returning id, tenant_id, customer_id, kind, status, input_refs, product_tags, scenario_category,
              coalesce(reservation_id, ''), coalesce(result_url, ''), reason_code, error_message,
              created_at, started_at, completed_at
)
select * from updated;
`
