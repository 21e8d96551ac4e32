package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/logging"
	"jobboard-billing/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// CreatePlanPayment records a pending plan purchase and its not-yet-active subscription.
	CreatePlanPayment(ctx context.Context, payer model.Holder, planID string, channel model.PaymentChannel, externalRef string) (*model.Payment, error)
	// CreateApplicationFeePayment records a pending fee for applying to one job.
	CreateApplicationFeePayment(ctx context.Context, payer model.Holder, jobID int64, channel model.PaymentChannel, externalRef string) (*model.Payment, error)
	// Confirm settles a pending payment as completed or failed. Replays with the
	// same status are no-ops.
	Confirm(ctx context.Context, actor model.Holder, paymentID string, status model.PaymentStatus, note string) (*model.Payment, error)
	Refund(ctx context.Context, actor model.Holder, paymentID string, note string) (*model.Payment, error)
	Get(ctx context.Context, viewer model.Holder, paymentID string) (*model.Payment, error)
	// History lists payer's payments newest first. A zero payer means the viewer.
	History(ctx context.Context, viewer, payer model.Holder) ([]*model.PaymentRecord, error)
}

// FeeSettings carries the fixed application fee.
type FeeSettings struct {
	ApplicationFee decimal.Decimal
	Currency       string
}

type paymentUC struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	plans    repository.PlanRepository
	jobs     repository.JobDirectory
	tm       repository.TransactionManager
	fees     FeeSettings
	log      *zerolog.Logger
	opts     options
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	jobs repository.JobDirectory,
	tm repository.TransactionManager,
	fees FeeSettings,
	logger *zerolog.Logger,
	opts ...Option,
) *paymentUC {
	if fees.Currency == "" {
		fees.Currency = model.DefaultCurrency
	}
	return &paymentUC{
		payments: payments,
		subs:     subs,
		plans:    plans,
		jobs:     jobs,
		tm:       tm,
		fees:     fees,
		log:      logger,
		opts:     applyOptions(opts),
	}
}

func (u *paymentUC) CreatePlanPayment(ctx context.Context, payer model.Holder, planID string, channel model.PaymentChannel, externalRef string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreatePlanPayment")()
	if err := payer.Validate(); err != nil {
		return nil, err
	}
	audience, ok := payer.Audience()
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot buy plans", domain.ErrForbidden, payer.Kind)
	}
	if !channel.Valid() {
		return nil, fmt.Errorf("%w: unknown payment channel %q", domain.ErrInvalidArgument, channel)
	}

	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, fmt.Errorf("%w: plan %s is no longer sold", domain.ErrInvalidArgument, plan.ID)
	}
	if plan.Audience != audience {
		return nil, fmt.Errorf("%w: plan %s is for %s accounts", domain.ErrInvalidArgument, plan.ID, plan.Audience)
	}

	now := u.opts.now()
	expires := plan.ExpiryFrom(now)
	p := &model.Payment{
		ID:          uuid.NewString(),
		Payer:       payer,
		PlanID:      &plan.ID,
		Amount:      plan.Price,
		Currency:    plan.Currency,
		Kind:        model.PlanPaymentKind(audience),
		Channel:     channel,
		ExternalRef: optionalRef(externalRef),
		Status:      model.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   &expires,
		Notes:       []model.Annotation{},
	}
	sub, err := model.NewPendingSubscription(payer, plan, p.ID, p.CreatedAt)
	if err != nil {
		return nil, err
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		return u.subs.Save(ctx, tx, sub)
	})
	if err != nil {
		u.log.Error().Err(err).Str("payer", payer.String()).Str("plan_id", plan.ID).Msg("failed to create plan payment")
		return nil, err
	}

	metrics.IncPayment(string(p.Kind), string(p.Status))
	logging.With(logging.WithPaymentID(ctx, p.ID), u.log).Info().
		Str("payer", payer.String()).Str("plan_id", plan.ID).Str("amount", p.Amount.StringFixed(2)).
		Msg("plan payment created")
	return p, nil
}

func (u *paymentUC) CreateApplicationFeePayment(ctx context.Context, payer model.Holder, jobID int64, channel model.PaymentChannel, externalRef string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateApplicationFeePayment")()
	if err := payer.Validate(); err != nil {
		return nil, err
	}
	if payer.Kind != model.HolderJobseeker {
		return nil, fmt.Errorf("%w: only job seekers pay application fees", domain.ErrForbidden)
	}
	if !channel.Valid() {
		return nil, fmt.Errorf("%w: unknown payment channel %q", domain.ErrInvalidArgument, channel)
	}
	job, err := u.jobs.FindJob(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, err
	}

	now := u.opts.now()
	p := &model.Payment{
		ID:          uuid.NewString(),
		Payer:       payer,
		Amount:      u.fees.ApplicationFee,
		Currency:    u.fees.Currency,
		Kind:        model.PaymentKindApplicationFee,
		Channel:     channel,
		ExternalRef: optionalRef(externalRef),
		Status:      model.PaymentStatusPending,
		ReferenceID: &job.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Notes:       []model.Annotation{},
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		u.log.Error().Err(err).Str("payer", payer.String()).Int64("job_id", jobID).Msg("failed to create application fee payment")
		return nil, err
	}

	metrics.IncPayment(string(p.Kind), string(p.Status))
	logging.With(logging.WithPaymentID(ctx, p.ID), u.log).Info().
		Str("payer", payer.String()).Int64("job_id", job.ID).Msg("application fee payment created")
	return p, nil
}

func (u *paymentUC) Confirm(ctx context.Context, actor model.Holder, paymentID string, status model.PaymentStatus, note string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Confirm")()
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if status != model.PaymentStatusCompleted && status != model.PaymentStatusFailed {
		return nil, fmt.Errorf("%w: confirmation status must be completed or failed, got %q", domain.ErrInvalidArgument, status)
	}
	return u.settle(ctx, actor, paymentID, status, note)
}

func (u *paymentUC) Refund(ctx context.Context, actor model.Holder, paymentID string, note string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Refund")()
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return u.settle(ctx, actor, paymentID, model.PaymentStatusRefunded, note)
}

// settle moves a payment to status and applies the subscription side effect in
// the same transaction. The payment row is locked for the duration.
func (u *paymentUC) settle(ctx context.Context, actor model.Holder, paymentID string, status model.PaymentStatus, note string) (*model.Payment, error) {
	var (
		out       *model.Payment
		applied   bool
		activated bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		apply, err := p.Status.TransitionTo(status)
		if err != nil {
			return fmt.Errorf("payment %s: %w", paymentID, err)
		}
		out = p
		if !apply {
			return nil
		}

		now := u.opts.now()
		if err := u.payments.UpdateStatus(ctx, tx, p.ID, status, now); err != nil {
			return err
		}
		p.Status = status
		p.UpdatedAt = now
		if status == model.PaymentStatusCompleted {
			p.ConfirmedAt = &now
		}

		if text := strings.TrimSpace(note); text != "" {
			a := model.NewAnnotation(p.ID, actor, text, now)
			if err := u.payments.AddAnnotation(ctx, tx, &a); err != nil {
				return err
			}
			p.Notes = append(p.Notes, a)
		}

		activated, err = u.applyToSubscription(ctx, tx, p.ID, status, now)
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrNotFound) {
			u.log.Error().Err(err).Str("payment_id", paymentID).Str("status", string(status)).Msg("failed to settle payment")
		}
		return nil, err
	}

	log := logging.With(logging.WithPaymentID(ctx, out.ID), u.log)
	if !applied {
		log.Debug().Str("status", string(status)).Msg("payment already settled; replay ignored")
		return out, nil
	}
	metrics.IncPayment(string(out.Kind), string(out.Status))
	if out.Status == model.PaymentStatusCompleted {
		metrics.AddPaymentRevenue(out.Currency, out.Amount)
	}
	if activated {
		metrics.IncSubscriptionActivated()
	}
	log.Info().Str("status", string(out.Status)).Str("actor", actor.String()).Bool("subscription_activated", activated).Msg("payment settled")
	return out, nil
}

// applyToSubscription activates the linked subscription on completion and
// cancels it on refund. Payments without a subscription are left alone.
func (u *paymentUC) applyToSubscription(ctx context.Context, tx repository.Tx, paymentID string, status model.PaymentStatus, now time.Time) (bool, error) {
	var target model.SubscriptionStatus
	switch status {
	case model.PaymentStatusCompleted:
		target = model.SubscriptionStatusActive
	case model.PaymentStatusRefunded:
		target = model.SubscriptionStatusCancelled
	default:
		return false, nil
	}

	sub, err := u.subs.FindByPaymentID(ctx, tx, paymentID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if target == model.SubscriptionStatusActive && sub.Status != model.SubscriptionStatusPending {
		return false, nil
	}
	if err := u.subs.UpdateStatus(ctx, tx, sub.ID, target, now); err != nil {
		return false, err
	}
	return target == model.SubscriptionStatusActive, nil
}

func (u *paymentUC) Get(ctx context.Context, viewer model.Holder, paymentID string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Get")()
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && !viewer.Equal(p.Payer) {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

func (u *paymentUC) History(ctx context.Context, viewer, payer model.Holder) ([]*model.PaymentRecord, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.History")()
	if payer.IsZero() {
		payer = viewer
	}
	if err := payer.Validate(); err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && !viewer.Equal(payer) {
		return nil, domain.ErrForbidden
	}
	return u.payments.ListByPayer(ctx, repository.NoTX, payer)
}

func optionalRef(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
