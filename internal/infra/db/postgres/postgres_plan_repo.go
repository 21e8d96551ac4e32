package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planColumns = `id::text, name, audience, price::text, currency, duration_days, features, job_posts_limit, applications_limit, active, created_at`

// Save inserts a new plan. Plans are never updated in place; a duplicate id is a conflict.
func (r *planRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	const q = `
INSERT INTO plans (id, name, audience, price, currency, duration_days, features, job_posts_limit, applications_limit, active, created_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11);`

	features := plan.Features
	if features == nil {
		features = []string{}
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		plan.ID, plan.Name, string(plan.Audience), plan.Price.StringFixed(2), plan.Currency, plan.DurationDays,
		features, int64(plan.JobPostsLimit), int64(plan.ApplicationsLimit), plan.Active, plan.CreatedAt,
	)
	return dbErr("save plan", err)
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if !isUUID(id) {
		return nil, domain.ErrPlanNotFound
	}
	q := `SELECT ` + planColumns + ` FROM plans WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(row)
	if err != nil {
		return nil, scanErr("find plan", err, domain.ErrPlanNotFound)
	}
	return p, nil
}

func (r *planRepo) List(ctx context.Context, tx repository.Tx, audience model.Audience, includeInactive bool) ([]*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans
 WHERE ($1 = '' OR audience = $1) AND (active OR $2)
 ORDER BY price ASC, name ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(audience), includeInactive)
	if err != nil {
		return nil, dbErr("list plans", err)
	}
	defer rows.Close()

	out := []*model.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, scanErr("list plans", err, domain.ErrReadDatabaseRow)
		}
		out = append(out, p)
	}
	return out, dbErr("list plans", rows.Err())
}

func (r *planRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	if !isUUID(id) {
		return domain.ErrPlanNotFound
	}
	const q = `UPDATE plans SET active = FALSE WHERE id = $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return dbErr("deactivate plan", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var (
		p        model.Plan
		audience string
		price    string
		jobPosts int64
		apps     int64
	)
	if err := row.Scan(&p.ID, &p.Name, &audience, &price, &p.Currency, &p.DurationDays, &p.Features, &jobPosts, &apps, &p.Active, &p.CreatedAt); err != nil {
		return nil, err
	}
	amount, err := parseAmount(price)
	if err != nil {
		return nil, err
	}
	p.Audience = model.Audience(audience)
	p.Price = amount
	p.JobPostsLimit = model.Quota(jobPosts)
	p.ApplicationsLimit = model.Quota(apps)
	if p.Features == nil {
		p.Features = []string{}
	}
	return &p, nil
}
