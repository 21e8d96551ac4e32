package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"jobboard-billing/internal/domain/model"
)

// PaymentRepository is the port for the payment ledger. Rows are never deleted.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	// FindByID locks the row when tx is a live transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PaymentStatus, at time.Time) error
	AddAnnotation(ctx context.Context, tx Tx, a *model.Annotation) error

	// ListByPayer returns the payer's payments newest first, joined with plan names.
	ListByPayer(ctx context.Context, tx Tx, payer model.Holder) ([]*model.PaymentRecord, error)
	ListByStatus(ctx context.Context, tx Tx, status model.PaymentStatus) ([]*model.Payment, error)
	// HasCompletedFee reports whether payer has a completed application fee for jobID.
	HasCompletedFee(ctx context.Context, tx Tx, payer model.Holder, jobID int64) (bool, error)

	// --- Revenue read-only methods ---
	SumCompleted(ctx context.Context, tx Tx) (decimal.Decimal, error)
	// SumCompletedByMonth groups by the payment's creation month, newest first.
	SumCompletedByMonth(ctx context.Context, tx Tx) ([]model.MonthlyRevenue, error)
	SumCompletedByKind(ctx context.Context, tx Tx) ([]model.KindRevenue, error)
}
