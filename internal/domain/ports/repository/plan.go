package repository

import (
	"context"

	"jobboard-billing/internal/domain/model"
)

// PlanRepository is the port for the plan catalog.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	// List returns plans ordered by price ascending then name, optionally
	// narrowed to one audience (empty means all). Inactive plans are skipped
	// unless includeInactive is set.
	List(ctx context.Context, tx Tx, audience model.Audience, includeInactive bool) ([]*model.Plan, error)
	Deactivate(ctx context.Context, tx Tx, id string) error
}
