package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `p.id::text, p.payer_kind, p.payer_id, p.plan_id::text, p.amount::text, p.currency, p.kind, p.channel,
  p.external_ref, p.status, p.reference_id, p.created_at, p.updated_at, p.expires_at, p.confirmed_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, payer_kind, payer_id, plan_id, amount, currency, kind, channel, external_ref, status, reference_id, created_at, updated_at, expires_at, confirmed_at
) VALUES (
  $1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
);`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, string(p.Payer.Kind), p.Payer.ID, p.PlanID, p.Amount.StringFixed(2), p.Currency, string(p.Kind), string(p.Channel),
		p.ExternalRef, string(p.Status), p.ReferenceID, p.CreatedAt, p.UpdatedAt, p.ExpiresAt, p.ConfirmedAt,
	)
	return dbErr("save payment", err)
}

// FindByID loads the payment and its annotations. Inside a transaction the
// payment row stays locked until commit.
func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if !isUUID(id) {
		return nil, domain.ErrPaymentNotFound
	}
	q := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.id = $1` + lockClause(tx) + `;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, scanErr("find payment", err, domain.ErrPaymentNotFound)
	}
	notes, err := r.loadNotes(ctx, tx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Notes = notes[p.ID]
	return p, nil
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, at time.Time) error {
	const q = `
UPDATE payments
   SET status = $2,
       updated_at = $3,
       confirmed_at = CASE WHEN $2 = 'completed' THEN $3 ELSE confirmed_at END
 WHERE id = $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, id, string(status), at)
	if err != nil {
		return dbErr("update payment status", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *paymentRepo) AddAnnotation(ctx context.Context, tx repository.Tx, a *model.Annotation) error {
	const q = `
INSERT INTO payment_annotations (id, payment_id, actor_kind, actor_id, body, created_at)
VALUES ($1, $2, $3, $4, $5, $6);`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.PaymentID, string(a.Actor.Kind), a.Actor.ID, a.Text, a.CreatedAt)
	return dbErr("add payment annotation", err)
}

func (r *paymentRepo) ListByPayer(ctx context.Context, tx repository.Tx, payer model.Holder) ([]*model.PaymentRecord, error) {
	q := `SELECT ` + paymentColumns + `, pl.name
  FROM payments p
  LEFT JOIN plans pl ON pl.id = p.plan_id
 WHERE p.payer_kind = $1 AND p.payer_id = $2
 ORDER BY p.created_at DESC, p.id DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(payer.Kind), payer.ID)
	if err != nil {
		return nil, dbErr("list payments by payer", err)
	}
	defer rows.Close()

	var (
		out []*model.PaymentRecord
		ids []string
	)
	for rows.Next() {
		var planName *string
		p, err := scanPayment(rows, &planName)
		if err != nil {
			return nil, scanErr("list payments by payer", err, domain.ErrReadDatabaseRow)
		}
		out = append(out, &model.PaymentRecord{Payment: *p, PlanName: planName})
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list payments by payer", err)
	}
	rows.Close()

	notes, err := r.loadNotes(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for _, rec := range out {
		rec.Notes = notes[rec.ID]
	}
	return out, nil
}

func (r *paymentRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.PaymentStatus) ([]*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.status = $1 ORDER BY p.created_at DESC, p.id DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(status))
	if err != nil {
		return nil, dbErr("list payments by status", err)
	}
	defer rows.Close()

	var (
		out []*model.Payment
		ids []string
	)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, scanErr("list payments by status", err, domain.ErrReadDatabaseRow)
		}
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list payments by status", err)
	}
	rows.Close()

	notes, err := r.loadNotes(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range out {
		p.Notes = notes[p.ID]
	}
	return out, nil
}

func (r *paymentRepo) HasCompletedFee(ctx context.Context, tx repository.Tx, payer model.Holder, jobID int64) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM payments
   WHERE payer_kind = $1 AND payer_id = $2
     AND kind = 'application_fee' AND status = 'completed' AND reference_id = $3
);`
	row, err := pickRow(ctx, r.pool, tx, q, string(payer.Kind), payer.ID, jobID)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, scanErr("has completed fee", err, domain.ErrReadDatabaseRow)
	}
	return ok, nil
}

func (r *paymentRepo) SumCompleted(ctx context.Context, tx repository.Tx) (decimal.Decimal, error) {
	const q = `SELECT COALESCE(SUM(amount), 0)::text FROM payments WHERE status = 'completed';`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return decimal.Zero, err
	}
	var s string
	if err := row.Scan(&s); err != nil {
		return decimal.Zero, scanErr("sum completed", err, domain.ErrReadDatabaseRow)
	}
	return parseAmount(s)
}

// SumCompletedByMonth groups by the UTC calendar month the payment was created in.
func (r *paymentRepo) SumCompletedByMonth(ctx context.Context, tx repository.Tx) ([]model.MonthlyRevenue, error) {
	const q = `
SELECT to_char(date_trunc('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month, SUM(amount)::text
  FROM payments
 WHERE status = 'completed'
 GROUP BY 1
 ORDER BY 1 DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, dbErr("sum completed by month", err)
	}
	defer rows.Close()

	out := []model.MonthlyRevenue{}
	for rows.Next() {
		var month, sum string
		if err := rows.Scan(&month, &sum); err != nil {
			return nil, scanErr("sum completed by month", err, domain.ErrReadDatabaseRow)
		}
		amount, err := parseAmount(sum)
		if err != nil {
			return nil, err
		}
		out = append(out, model.MonthlyRevenue{Month: month, Amount: amount})
	}
	return out, dbErr("sum completed by month", rows.Err())
}

func (r *paymentRepo) SumCompletedByKind(ctx context.Context, tx repository.Tx) ([]model.KindRevenue, error) {
	const q = `SELECT kind, SUM(amount)::text FROM payments WHERE status = 'completed' GROUP BY kind ORDER BY kind;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, dbErr("sum completed by kind", err)
	}
	defer rows.Close()

	out := []model.KindRevenue{}
	for rows.Next() {
		var kind, sum string
		if err := rows.Scan(&kind, &sum); err != nil {
			return nil, scanErr("sum completed by kind", err, domain.ErrReadDatabaseRow)
		}
		amount, err := parseAmount(sum)
		if err != nil {
			return nil, err
		}
		out = append(out, model.KindRevenue{Kind: model.PaymentKind(kind), Amount: amount})
	}
	return out, dbErr("sum completed by kind", rows.Err())
}

// loadNotes fetches annotations for ids in ULID (creation) order.
func (r *paymentRepo) loadNotes(ctx context.Context, tx repository.Tx, ids []string) (map[string][]model.Annotation, error) {
	out := make(map[string][]model.Annotation, len(ids))
	for _, id := range ids {
		out[id] = []model.Annotation{}
	}
	if len(ids) == 0 {
		return out, nil
	}
	const q = `
SELECT id, payment_id::text, actor_kind, actor_id, body, created_at
  FROM payment_annotations
 WHERE payment_id::text = ANY($1)
 ORDER BY payment_id, id;`
	rows, err := queryRows(ctx, r.pool, tx, q, ids)
	if err != nil {
		return nil, dbErr("load payment annotations", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a         model.Annotation
			actorKind string
			actorID   int64
		)
		if err := rows.Scan(&a.ID, &a.PaymentID, &actorKind, &actorID, &a.Text, &a.CreatedAt); err != nil {
			return nil, scanErr("load payment annotations", err, domain.ErrReadDatabaseRow)
		}
		a.Actor = holderFrom(actorKind, actorID)
		out[a.PaymentID] = append(out[a.PaymentID], a)
	}
	return out, dbErr("load payment annotations", rows.Err())
}

// scanPayment reads paymentColumns followed by any extra destinations.
func scanPayment(row pgx.Row, extra ...interface{}) (*model.Payment, error) {
	var (
		p         model.Payment
		payerKind string
		payerID   int64
		amount    string
		kind      string
		channel   string
		status    string
	)
	dest := []interface{}{
		&p.ID, &payerKind, &payerID, &p.PlanID, &amount, &p.Currency, &kind, &channel,
		&p.ExternalRef, &status, &p.ReferenceID, &p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt, &p.ConfirmedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	p.Payer = holderFrom(payerKind, payerID)
	p.Amount = a
	p.Kind = model.PaymentKind(kind)
	p.Channel = model.PaymentChannel(channel)
	p.Status = model.PaymentStatus(status)
	p.Notes = []model.Annotation{}
	return &p, nil
}
