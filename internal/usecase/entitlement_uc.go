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
var _ EntitlementUseCase = (*entitlementUC)(nil)

// EntitlementUseCase is the gate job posting and application submission call
// before writing. A returned Grant means one unit has already been consumed.
type EntitlementUseCase interface {
	AuthorizeJobPost(ctx context.Context, employer model.Holder) (*model.Grant, error)
	AuthorizeApplication(ctx context.Context, jobseeker model.Holder, jobID int64) (*model.Grant, error)
	Entitlements(ctx context.Context, holder model.Holder) (*model.Entitlements, error)
}

// EnforcementPolicy switches the gate per action. A disabled gate grants and logs.
type EnforcementPolicy struct {
	JobPosts     bool
	Applications bool
}

type entitlementUC struct {
	subs     SubscriptionUseCase
	payments repository.PaymentRepository
	jobs     repository.JobDirectory
	policy   EnforcementPolicy
	log      *zerolog.Logger
}

func NewEntitlementUseCase(subs SubscriptionUseCase, payments repository.PaymentRepository, jobs repository.JobDirectory, policy EnforcementPolicy, logger *zerolog.Logger) *entitlementUC {
	return &entitlementUC{subs: subs, payments: payments, jobs: jobs, policy: policy, log: logger}
}

func (u *entitlementUC) AuthorizeJobPost(ctx context.Context, employer model.Holder) (*model.Grant, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.AuthorizeJobPost")()
	if err := employer.Validate(); err != nil {
		return nil, err
	}
	if employer.Kind != model.HolderEmployer {
		return nil, fmt.Errorf("%w: only employers post jobs", domain.ErrForbidden)
	}
	res := model.ResourceJobPost
	if !u.policy.JobPosts {
		return u.notEnforced(ctx, employer, res), nil
	}

	sub, err := u.subs.ActiveFor(ctx, employer)
	if err != nil {
		return nil, u.reject(ctx, employer, res, err)
	}
	updated, err := u.subs.Consume(ctx, sub.ID, res)
	if err != nil {
		return nil, u.reject(ctx, employer, res, err)
	}
	return u.grantFromSubscription(employer, res, updated), nil
}

// AuthorizeApplication prefers the seeker's subscription quota and falls back
// to a completed application fee paid for this job.
func (u *entitlementUC) AuthorizeApplication(ctx context.Context, jobseeker model.Holder, jobID int64) (*model.Grant, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.AuthorizeApplication")()
	if err := jobseeker.Validate(); err != nil {
		return nil, err
	}
	if jobseeker.Kind != model.HolderJobseeker {
		return nil, fmt.Errorf("%w: only job seekers apply to jobs", domain.ErrForbidden)
	}
	if _, err := u.jobs.FindJob(ctx, repository.NoTX, jobID); err != nil {
		return nil, err
	}
	res := model.ResourceApplication
	if !u.policy.Applications {
		return u.notEnforced(ctx, jobseeker, res), nil
	}

	var quotaErr error
	sub, err := u.subs.ActiveFor(ctx, jobseeker)
	switch {
	case err == nil:
		updated, cerr := u.subs.Consume(ctx, sub.ID, res)
		switch {
		case cerr == nil:
			return u.grantFromSubscription(jobseeker, res, updated), nil
		case errors.Is(cerr, domain.ErrQuotaExceeded):
			quotaErr = cerr
		case errors.Is(cerr, domain.ErrNoActiveSubscription):
		default:
			return nil, u.reject(ctx, jobseeker, res, cerr)
		}
	case errors.Is(err, domain.ErrNoActiveSubscription):
	default:
		return nil, u.reject(ctx, jobseeker, res, err)
	}

	paid, err := u.payments.HasCompletedFee(ctx, repository.NoTX, jobseeker, jobID)
	if err != nil {
		return nil, u.reject(ctx, jobseeker, res, err)
	}
	if paid {
		metrics.IncEntitlementCheck(string(res), "fee")
		return &model.Grant{Holder: jobseeker, Resource: res, Basis: model.GrantApplicationFee}, nil
	}
	if quotaErr != nil {
		return nil, u.reject(ctx, jobseeker, res, quotaErr)
	}
	return nil, u.reject(ctx, jobseeker, res, domain.ErrNoActiveSubscription)
}

func (u *entitlementUC) Entitlements(ctx context.Context, holder model.Holder) (*model.Entitlements, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.Entitlements")()
	out := &model.Entitlements{Holder: holder}
	sub, err := u.subs.ActiveFor(ctx, holder)
	if errors.Is(err, domain.ErrNoActiveSubscription) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	jobPosts := u.subs.RemainingJobPosts(sub)
	apps := u.subs.RemainingApplications(sub)
	out.Subscription = sub
	out.RemainingJobPosts = &jobPosts
	out.RemainingApplications = &apps
	return out, nil
}

func (u *entitlementUC) grantFromSubscription(h model.Holder, res model.Resource, sub *model.Subscription) *model.Grant {
	metrics.IncEntitlementCheck(string(res), "allowed")
	left := sub.RemainingQuota(res)
	return &model.Grant{Holder: h, Resource: res, Basis: model.GrantSubscription, Subscription: sub, Remaining: &left}
}

func (u *entitlementUC) notEnforced(ctx context.Context, h model.Holder, res model.Resource) *model.Grant {
	metrics.IncEntitlementCheck(string(res), "not_enforced")
	logging.With(ctx, u.log).Info().Str("holder", h.String()).Str("resource", string(res)).Msg("entitlement not enforced; granting")
	return &model.Grant{Holder: h, Resource: res, Basis: model.GrantNotEnforced}
}

func (u *entitlementUC) reject(ctx context.Context, h model.Holder, res model.Resource, err error) error {
	outcome := "error"
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		outcome = "quota_exceeded"
	case errors.Is(err, domain.ErrNoActiveSubscription):
		outcome = "no_subscription"
	default:
		logging.With(ctx, u.log).Error().Err(err).Str("holder", h.String()).Str("resource", string(res)).Msg("entitlement check failed")
	}
	metrics.IncEntitlementCheck(string(res), outcome)
	return err
}
