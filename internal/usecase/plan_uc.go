package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/logging"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase manages the plan catalog.
type PlanUseCase interface {
	List(ctx context.Context, audience model.Audience, includeInactive bool) ([]*model.Plan, error)
	Get(ctx context.Context, id string) (*model.Plan, error)
	Create(ctx context.Context, actor model.Holder, in CreatePlanInput) (*model.Plan, error)
	Deactivate(ctx context.Context, actor model.Holder, id string) (*model.Plan, error)
}

type CreatePlanInput struct {
	Name              string
	Audience          model.Audience
	Price             decimal.Decimal
	Currency          string
	DurationDays      int
	Features          []string
	JobPostsLimit     model.Quota
	ApplicationsLimit model.Quota
}

type planUC struct {
	plans repository.PlanRepository
	log   *zerolog.Logger
	opts  options
}

func NewPlanUseCase(plans repository.PlanRepository, logger *zerolog.Logger, opts ...Option) *planUC {
	return &planUC{plans: plans, log: logger, opts: applyOptions(opts)}
}

func (u *planUC) List(ctx context.Context, audience model.Audience, includeInactive bool) ([]*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.List")()
	if audience != "" && !audience.Valid() {
		return nil, fmt.Errorf("%w: unknown audience %q", domain.ErrInvalidArgument, audience)
	}
	return u.plans.List(ctx, repository.NoTX, audience, includeInactive)
}

func (u *planUC) Get(ctx context.Context, id string) (*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Get")()
	if id == "" {
		return nil, domain.ErrPlanNotFound
	}
	return u.plans.FindByID(ctx, repository.NoTX, id)
}

func (u *planUC) Create(ctx context.Context, actor model.Holder, in CreatePlanInput) (*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Create")()
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	plan, err := model.NewPlan("", in.Name, in.Audience, in.Price, in.Currency, in.DurationDays, in.Features, in.JobPostsLimit, in.ApplicationsLimit)
	if err != nil {
		return nil, err
	}
	plan.CreatedAt = u.opts.now()
	if err := u.plans.Save(ctx, repository.NoTX, plan); err != nil {
		u.log.Error().Err(err).Str("plan_name", plan.Name).Msg("failed to save plan")
		return nil, err
	}
	u.log.Info().Str("plan_id", plan.ID).Str("audience", string(plan.Audience)).Str("actor", actor.String()).Msg("plan created")
	return plan, nil
}

// Deactivate hides a plan from new purchases. Existing payments keep referencing it.
func (u *planUC) Deactivate(ctx context.Context, actor model.Holder, id string) (*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Deactivate")()
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return plan, nil
	}
	if err := u.plans.Deactivate(ctx, repository.NoTX, id); err != nil {
		return nil, err
	}
	plan.Active = false
	u.log.Info().Str("plan_id", id).Str("actor", actor.String()).Msg("plan deactivated")
	return plan, nil
}
