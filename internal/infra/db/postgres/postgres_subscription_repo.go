package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id::text, holder_kind, holder_id, plan_id::text, payment_id::text, status, start_at, expires_at,
  job_posts_limit, applications_limit, job_posts_used, applications_used, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, holder_kind, holder_id, plan_id, payment_id, status, start_at, expires_at,
  job_posts_limit, applications_limit, job_posts_used, applications_used, created_at, updated_at
) VALUES (
  $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
);`
	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, string(s.Holder.Kind), s.Holder.ID, s.PlanID, s.PaymentID, string(s.Status), s.StartAt, s.ExpiresAt,
		int64(s.JobPostsLimit), int64(s.ApplicationsLimit), s.JobPostsUsed, s.ApplicationsUsed, s.CreatedAt, s.UpdatedAt,
	)
	return dbErr("save subscription", err)
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1` + lockClause(tx) + `;`
	return r.one(ctx, tx, "find subscription", q, id)
}

func (r *subscriptionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Subscription, error) {
	if !isUUID(paymentID) {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE payment_id = $1` + lockClause(tx) + `;`
	return r.one(ctx, tx, "find subscription by payment", q, paymentID)
}

// FindActive picks the most recently started window when several overlap.
func (r *subscriptionRepo) FindActive(ctx context.Context, tx repository.Tx, holder model.Holder, now time.Time) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE holder_kind = $1 AND holder_id = $2 AND status = 'active' AND expires_at > $3
 ORDER BY start_at DESC, created_at DESC
 LIMIT 1;`
	return r.one(ctx, tx, "find active subscription", q, string(holder.Kind), holder.ID, now)
}

func (r *subscriptionRepo) ListByHolder(ctx context.Context, tx repository.Tx, holder model.Holder) ([]*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE holder_kind = $1 AND holder_id = $2
 ORDER BY start_at DESC, created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(holder.Kind), holder.ID)
	if err != nil {
		return nil, dbErr("list subscriptions", err)
	}
	defer rows.Close()

	out := []*model.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, scanErr("list subscriptions", err, domain.ErrReadDatabaseRow)
		}
		out = append(out, s)
	}
	return out, dbErr("list subscriptions", rows.Err())
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.SubscriptionStatus, at time.Time) error {
	const q = `UPDATE subscriptions SET status = $2, updated_at = $3 WHERE id = $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, id, string(status), at)
	if err != nil {
		return dbErr("update subscription status", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementUsage consumes one unit in a single statement. The WHERE clause is
// the whole guard, so two concurrent callers can never both take the last unit.
func (r *subscriptionRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string, res model.Resource, now time.Time) (*model.Subscription, bool, error) {
	var used, limit string
	switch res {
	case model.ResourceJobPost:
		used, limit = "job_posts_used", "job_posts_limit"
	case model.ResourceApplication:
		used, limit = "applications_used", "applications_limit"
	default:
		return nil, false, domain.ErrInvalidArgument
	}
	if !isUUID(id) {
		return nil, false, domain.ErrNotFound
	}

	q := `
UPDATE subscriptions
   SET ` + used + ` = ` + used + ` + 1, updated_at = $2
 WHERE id = $1
   AND status = 'active'
   AND expires_at > $2
   AND (` + limit + ` = -1 OR ` + used + ` < ` + limit + `)
RETURNING ` + subscriptionColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, id, now)
	if err != nil {
		return nil, false, err
	}
	s, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, dbErr("increment subscription usage", err)
	}
	return s, true, nil
}

func (r *subscriptionRepo) ExpireOverdue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	const q = `UPDATE subscriptions SET status = 'expired', updated_at = $1 WHERE status = 'active' AND expires_at <= $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, dbErr("expire subscriptions", err)
	}
	return ct.RowsAffected(), nil
}

func (r *subscriptionRepo) CountActive(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	const q = `SELECT COUNT(*) FROM subscriptions WHERE status = 'active' AND expires_at > $1;`
	row, err := pickRow(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, scanErr("count active subscriptions", err, domain.ErrReadDatabaseRow)
	}
	return n, nil
}

func (r *subscriptionRepo) one(ctx context.Context, tx repository.Tx, op, q string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	s, err := scanSubscription(row)
	if err != nil {
		return nil, scanErr(op, err, domain.ErrNotFound)
	}
	return s, nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var (
		s          model.Subscription
		holderKind string
		holderID   int64
		status     string
		jobPosts   int64
		apps       int64
	)
	if err := row.Scan(
		&s.ID, &holderKind, &holderID, &s.PlanID, &s.PaymentID, &status, &s.StartAt, &s.ExpiresAt,
		&jobPosts, &apps, &s.JobPostsUsed, &s.ApplicationsUsed, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.Holder = holderFrom(holderKind, holderID)
	s.Status = model.SubscriptionStatus(status)
	s.JobPostsLimit = model.Quota(jobPosts)
	s.ApplicationsLimit = model.Quota(apps)
	return &s, nil
}
