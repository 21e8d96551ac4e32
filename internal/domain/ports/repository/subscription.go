package repository

import (
	"context"
	"time"

	"jobboard-billing/internal/domain/model"
)

// SubscriptionRepository is the port for holder subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Subscription, error)
	// FindActive returns the holder's active, unexpired subscription with the
	// latest start, or domain.ErrNotFound.
	FindActive(ctx context.Context, tx Tx, holder model.Holder, now time.Time) (*model.Subscription, error)
	ListByHolder(ctx context.Context, tx Tx, holder model.Holder) ([]*model.Subscription, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.SubscriptionStatus, at time.Time) error

	// IncrementUsage adds one unit of r in a single conditional statement that
	// only succeeds while the subscription is active, unexpired at now and
	// under its limit. ok=false means the guard rejected the increment.
	IncrementUsage(ctx context.Context, tx Tx, id string, r model.Resource, now time.Time) (sub *model.Subscription, ok bool, err error)

	// ExpireOverdue persists expired for active rows whose window closed before now.
	ExpireOverdue(ctx context.Context, tx Tx, now time.Time) (int64, error)
	CountActive(ctx context.Context, tx Tx, now time.Time) (int64, error)
}
