//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

// fixedClock returns a clock func pinned at t that can be moved by tests.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{t: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories
// =============================

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.Plan

	SaveFunc       func(ctx context.Context, tx repository.Tx, plan *model.Plan) error
	FindByIDFunc   func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error)
	ListFunc       func(ctx context.Context, tx repository.Tx, audience model.Audience, includeInactive bool) ([]*model.Plan, error)
	DeactivateFunc func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.Plan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, plan)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *plan
	r.data[plan.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) List(ctx context.Context, tx repository.Tx, audience model.Audience, includeInactive bool) ([]*model.Plan, error) {
	if r.ListFunc != nil {
		return r.ListFunc(ctx, tx, audience, includeInactive)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Plan{}
	for _, p := range r.data {
		if audience != "" && p.Audience != audience {
			continue
		}
		if !p.Active && !includeInactive {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Price.Cmp(out[j].Price); c != 0 {
			return c < 0
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MockPlanRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	if r.DeactivateFunc != nil {
		return r.DeactivateFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrPlanNotFound
	}
	p.Active = false
	return nil
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu    sync.Mutex
	data  map[string]*model.Payment
	notes map[string][]model.Annotation
	order []string // insertion order
	plans *MockPlanRepo

	SaveFunc          func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByIDFunc      func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
	UpdateStatusFunc  func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, at time.Time) error
	AddAnnotationFunc func(ctx context.Context, tx repository.Tx, a *model.Annotation) error
	HasCompletedFeeFn func(ctx context.Context, tx repository.Tx, payer model.Holder, jobID int64) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

// NewMockPaymentRepo resolves plan names for history through plans when non-nil.
func NewMockPaymentRepo(plans *MockPlanRepo) *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}, notes: map[string][]model.Annotation{}, plans: plans}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	cp := *p
	cp.Notes = nil
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return r.copyLocked(p), nil
}

func (r *MockPaymentRepo) copyLocked(p *model.Payment) *model.Payment {
	cp := *p
	cp.Notes = append([]model.Annotation{}, r.notes[p.ID]...)
	return &cp
}

func (r *MockPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, at time.Time) error {
	if r.UpdateStatusFunc != nil {
		return r.UpdateStatusFunc(ctx, tx, id, status, at)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = status
	p.UpdatedAt = at
	if status == model.PaymentStatusCompleted {
		p.ConfirmedAt = &at
	}
	return nil
}

func (r *MockPaymentRepo) AddAnnotation(ctx context.Context, tx repository.Tx, a *model.Annotation) error {
	if r.AddAnnotationFunc != nil {
		return r.AddAnnotationFunc(ctx, tx, a)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[a.PaymentID] = append(r.notes[a.PaymentID], *a)
	return nil
}

func (r *MockPaymentRepo) ListByPayer(ctx context.Context, tx repository.Tx, payer model.Holder) ([]*model.PaymentRecord, error) {
	r.mu.Lock()
	var out []*model.PaymentRecord
	for i := len(r.order) - 1; i >= 0; i-- {
		p := r.data[r.order[i]]
		if p.Payer.Equal(payer) {
			out = append(out, &model.PaymentRecord{Payment: *r.copyLocked(p)})
		}
	}
	r.mu.Unlock()

	for _, rec := range out {
		if rec.PlanID == nil || r.plans == nil {
			continue
		}
		if plan, err := r.plans.FindByID(ctx, tx, *rec.PlanID); err == nil {
			name := plan.Name
			rec.PlanName = &name
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.PaymentStatus) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for i := len(r.order) - 1; i >= 0; i-- {
		if p := r.data[r.order[i]]; p.Status == status {
			out = append(out, r.copyLocked(p))
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) HasCompletedFee(ctx context.Context, tx repository.Tx, payer model.Holder, jobID int64) (bool, error) {
	if r.HasCompletedFeeFn != nil {
		return r.HasCompletedFeeFn(ctx, tx, payer, jobID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.Kind == model.PaymentKindApplicationFee && p.Status == model.PaymentStatusCompleted &&
			p.Payer.Equal(payer) && p.ReferenceID != nil && *p.ReferenceID == jobID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MockPaymentRepo) SumCompleted(ctx context.Context, tx repository.Tx) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, p := range r.data {
		if p.Status == model.PaymentStatusCompleted {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (r *MockPaymentRepo) SumCompletedByMonth(ctx context.Context, tx repository.Tx) ([]model.MonthlyRevenue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sums := map[string]decimal.Decimal{}
	for _, p := range r.data {
		if p.Status != model.PaymentStatusCompleted {
			continue
		}
		m := p.CreatedAt.UTC().Format("2006-01")
		sums[m] = sums[m].Add(p.Amount)
	}
	out := make([]model.MonthlyRevenue, 0, len(sums))
	for m, v := range sums {
		out = append(out, model.MonthlyRevenue{Month: m, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out, nil
}

func (r *MockPaymentRepo) SumCompletedByKind(ctx context.Context, tx repository.Tx) ([]model.KindRevenue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sums := map[model.PaymentKind]decimal.Decimal{}
	for _, p := range r.data {
		if p.Status == model.PaymentStatusCompleted {
			sums[p.Kind] = sums[p.Kind].Add(p.Amount)
		}
	}
	out := make([]model.KindRevenue, 0, len(sums))
	for k, v := range sums {
		out = append(out, model.KindRevenue{Kind: k, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (r *MockPaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---- Mock SubscriptionRepository ----

// MockSubscriptionRepo holds one mutex across the guard and the increment so
// IncrementUsage behaves like the single conditional UPDATE in Postgres.
type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription

	SaveFunc         func(ctx context.Context, tx repository.Tx, sub *model.Subscription) error
	UpdateStatusFunc func(ctx context.Context, tx repository.Tx, id string, status model.SubscriptionStatus, at time.Time) error
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, sub)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.data[sub.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MockSubscriptionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.PaymentID == paymentID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindActive(ctx context.Context, tx repository.Tx, holder model.Holder, now time.Time) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.Subscription
	for _, s := range r.data {
		if !s.Holder.Equal(holder) || !s.IsActive(now) {
			continue
		}
		if best == nil || s.StartAt.After(best.StartAt) {
			best = s
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *MockSubscriptionRepo) ListByHolder(ctx context.Context, tx repository.Tx, holder model.Holder) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Subscription{}
	for _, s := range r.data {
		if s.Holder.Equal(holder) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.After(out[j].StartAt) })
	return out, nil
}

func (r *MockSubscriptionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.SubscriptionStatus, at time.Time) error {
	if r.UpdateStatusFunc != nil {
		return r.UpdateStatusFunc(ctx, tx, id, status, at)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = at
	return nil
}

func (r *MockSubscriptionRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string, res model.Resource, now time.Time) (*model.Subscription, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok || s.Status != model.SubscriptionStatusActive || !now.Before(s.ExpiresAt) || !s.Allows(res) {
		return nil, false, nil
	}
	if res == model.ResourceApplication {
		s.ApplicationsUsed++
	} else {
		s.JobPostsUsed++
	}
	s.UpdatedAt = now
	cp := *s
	return &cp, true, nil
}

func (r *MockSubscriptionRepo) ExpireOverdue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive && !now.Before(s.ExpiresAt) {
			s.Status = model.SubscriptionStatusExpired
			s.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *MockSubscriptionRepo) CountActive(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.data {
		if s.IsActive(now) {
			n++
		}
	}
	return n, nil
}

func (r *MockSubscriptionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---- Mock directories ----

type MockJobDirectory struct {
	jobs map[int64]*model.JobRef
}

var _ repository.JobDirectory = (*MockJobDirectory)(nil)

func NewMockJobDirectory(jobs ...model.JobRef) *MockJobDirectory {
	d := &MockJobDirectory{jobs: map[int64]*model.JobRef{}}
	for i := range jobs {
		d.jobs[jobs[i].ID] = &jobs[i]
	}
	return d
}

func (d *MockJobDirectory) FindJob(ctx context.Context, tx repository.Tx, id int64) (*model.JobRef, error) {
	j, ok := d.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

type MockHolderDirectory struct {
	names map[model.Holder]string

	LookupFunc func(ctx context.Context, tx repository.Tx, h model.Holder) (*model.HolderProfile, error)
	calls      int
}

var _ repository.HolderDirectory = (*MockHolderDirectory)(nil)

func NewMockHolderDirectory(names map[model.Holder]string) *MockHolderDirectory {
	return &MockHolderDirectory{names: names}
}

func (d *MockHolderDirectory) Lookup(ctx context.Context, tx repository.Tx, h model.Holder) (*model.HolderProfile, error) {
	d.calls++
	if d.LookupFunc != nil {
		return d.LookupFunc(ctx, tx, h)
	}
	name, ok := d.names[h]
	if !ok {
		return nil, domain.ErrHolderNotFound
	}
	return &model.HolderProfile{Holder: h, DisplayName: name}, nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
