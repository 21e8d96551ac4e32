package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

var (
	_ repository.HolderDirectory = (*directoryRepo)(nil)
	_ repository.JobDirectory    = (*directoryRepo)(nil)
)

// directoryRepo reads the job-board core tables. Billing never writes them.
type directoryRepo struct {
	pool *pgxpool.Pool
}

func NewDirectoryRepo(pool *pgxpool.Pool) *directoryRepo {
	return &directoryRepo{pool: pool}
}

func (r *directoryRepo) Lookup(ctx context.Context, tx repository.Tx, holder model.Holder) (*model.HolderProfile, error) {
	var q string
	switch holder.Kind {
	case model.HolderEmployer:
		q = `SELECT company_name, COALESCE(email, '') FROM employers WHERE id = $1;`
	case model.HolderJobseeker:
		q = `SELECT full_name, COALESCE(email, '') FROM jobseekers WHERE id = $1;`
	case model.HolderAdmin:
		q = `SELECT name, COALESCE(email, '') FROM admins WHERE id = $1;`
	default:
		return nil, domain.ErrInvalidArgument
	}
	row, err := pickRow(ctx, r.pool, tx, q, holder.ID)
	if err != nil {
		return nil, err
	}
	p := model.HolderProfile{Holder: holder}
	if err := row.Scan(&p.DisplayName, &p.Email); err != nil {
		return nil, scanErr("lookup holder", err, domain.ErrHolderNotFound)
	}
	return &p, nil
}

func (r *directoryRepo) FindJob(ctx context.Context, tx repository.Tx, id int64) (*model.JobRef, error) {
	const q = `SELECT id, employer_id, title FROM jobs WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var j model.JobRef
	if err := row.Scan(&j.ID, &j.EmployerID, &j.Title); err != nil {
		return nil, scanErr("find job", err, domain.ErrJobNotFound)
	}
	return &j, nil
}
