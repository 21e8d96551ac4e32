package repository

import (
	"context"

	"jobboard-billing/internal/domain/model"
)

// HolderDirectory reads the job-board core user tables.
type HolderDirectory interface {
	Lookup(ctx context.Context, tx Tx, holder model.Holder) (*model.HolderProfile, error)
}

// JobDirectory reads the job-board core jobs table.
type JobDirectory interface {
	FindJob(ctx context.Context, tx Tx, id int64) (*model.JobRef, error)
}
