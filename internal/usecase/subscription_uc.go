package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/logging"
	"jobboard-billing/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// ActiveFor returns the holder's newest-started active subscription or
	// domain.ErrNoActiveSubscription.
	ActiveFor(ctx context.Context, holder model.Holder) (*model.Subscription, error)
	RemainingJobPosts(sub *model.Subscription) model.Quota
	RemainingApplications(sub *model.Subscription) model.Quota
	// Consume takes one unit of r from the subscription in a single atomic step.
	Consume(ctx context.Context, subscriptionID string, r model.Resource) (*model.Subscription, error)
	List(ctx context.Context, holder model.Holder) ([]*model.Subscription, error)
	// ExpireOverdue persists the expired status on rows whose window has closed.
	ExpireOverdue(ctx context.Context) (int64, error)
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	log  *zerolog.Logger
	opts options
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, logger *zerolog.Logger, opts ...Option) *subscriptionUC {
	return &subscriptionUC{subs: subs, log: logger, opts: applyOptions(opts)}
}

func (u *subscriptionUC) ActiveFor(ctx context.Context, holder model.Holder) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ActiveFor")()
	if err := holder.Validate(); err != nil {
		return nil, err
	}
	sub, err := u.subs.FindActive(ctx, repository.NoTX, holder, u.opts.now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (u *subscriptionUC) RemainingJobPosts(sub *model.Subscription) model.Quota {
	return sub.RemainingQuota(model.ResourceJobPost)
}

func (u *subscriptionUC) RemainingApplications(sub *model.Subscription) model.Quota {
	return sub.RemainingQuota(model.ResourceApplication)
}

func (u *subscriptionUC) Consume(ctx context.Context, subscriptionID string, r model.Resource) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Consume")()
	if !r.Valid() {
		return nil, fmt.Errorf("%w: unknown resource %q", domain.ErrInvalidArgument, r)
	}
	now := u.opts.now()
	sub, ok, err := u.subs.IncrementUsage(ctx, repository.NoTX, subscriptionID, r, now)
	if err != nil {
		return nil, err
	}
	if ok {
		return sub, nil
	}

	// The guarded update refused; read back only to name the reason.
	cur, err := u.subs.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !cur.IsActive(now) {
		return nil, domain.ErrNoActiveSubscription
	}
	return nil, fmt.Errorf("%w: no %s left on subscription %s", domain.ErrQuotaExceeded, r, subscriptionID)
}

// List returns every subscription of holder with lazily applied expiry.
func (u *subscriptionUC) List(ctx context.Context, holder model.Holder) ([]*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.List")()
	if err := holder.Validate(); err != nil {
		return nil, err
	}
	subs, err := u.subs.ListByHolder(ctx, repository.NoTX, holder)
	if err != nil {
		return nil, err
	}
	now := u.opts.now()
	for _, s := range subs {
		s.Status = s.EffectiveStatus(now)
	}
	return subs, nil
}

func (u *subscriptionUC) ExpireOverdue(ctx context.Context) (int64, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ExpireOverdue")()
	now := u.opts.now()
	n, err := u.subs.ExpireOverdue(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.IncSubscriptionsExpired(n)
		u.log.Info().Int64("count", n).Msg("overdue subscriptions expired")
	}
	active, err := u.subs.CountActive(ctx, repository.NoTX, now)
	if err != nil {
		u.log.Warn().Err(err).Msg("failed to count active subscriptions")
		return n, nil
	}
	metrics.SetSubscriptionsActive(active)
	return n, nil
}
