package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/logging"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	// RevenueAnalytics is recomputed from the ledger on every call.
	RevenueAnalytics(ctx context.Context, actor model.Holder) (*model.RevenueReport, error)
}

type statsUC struct {
	payments repository.PaymentRepository
	holders  repository.HolderDirectory
	currency string

	log *zerolog.Logger
}

func NewStatsUseCase(payments repository.PaymentRepository, holders repository.HolderDirectory, currency string, logger *zerolog.Logger) *statsUC {
	if currency == "" {
		currency = model.DefaultCurrency
	}
	return &statsUC{payments: payments, holders: holders, currency: currency, log: logger}
}

func (s *statsUC) RevenueAnalytics(ctx context.Context, actor model.Holder) (*model.RevenueReport, error) {
	defer logging.TraceDuration(s.log, "StatsUC.RevenueAnalytics")()
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	total, err := s.payments.SumCompleted(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	monthly, err := s.payments.SumCompletedByMonth(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byKind, err := s.payments.SumCompletedByKind(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	pending, err := s.payments.ListByStatus(ctx, repository.NoTX, model.PaymentStatusPending)
	if err != nil {
		return nil, err
	}

	report := &model.RevenueReport{
		TotalRevenue:    total,
		Currency:        s.currency,
		MonthlyRevenue:  nonNil(monthly),
		RevenueByType:   nonNil(byKind),
		PendingPayments: make([]model.PendingPayment, 0, len(pending)),
	}
	names := map[model.Holder]string{}
	for _, p := range pending {
		name, seen := names[p.Payer]
		if !seen {
			name = s.displayName(ctx, p.Payer)
			names[p.Payer] = name
		}
		report.PendingPayments = append(report.PendingPayments, model.PendingPayment{Payment: *p, PayerName: name})
	}
	return report, nil
}

// displayName degrades to an empty name; a missing user row must not hide the payment.
func (s *statsUC) displayName(ctx context.Context, h model.Holder) string {
	profile, err := s.holders.Lookup(ctx, repository.NoTX, h)
	if err != nil {
		logging.With(ctx, s.log).Warn().Err(err).Str("holder", h.String()).Msg("payer lookup failed")
		return ""
	}
	return profile.DisplayName
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
