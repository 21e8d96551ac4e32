package model

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"jobboard-billing/internal/domain"
)

const DefaultCurrency = "ETB"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // created by the payer; awaiting admin review
	PaymentStatusCompleted PaymentStatus = "completed" // money received; entitlement unlocked
	PaymentStatusFailed    PaymentStatus = "failed"    // rejected by admin review
	PaymentStatusRefunded  PaymentStatus = "refunded"  // completed, then returned to the payer
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) Terminal() bool { return s != PaymentStatusPending }

// TransitionTo checks moving from s to next. It returns apply=false with a nil
// error when s already equals next, so replayed confirmations are no-ops.
// Allowed moves: pending -> completed|failed, completed -> refunded.
func (s PaymentStatus) TransitionTo(next PaymentStatus) (apply bool, err error) {
	switch next {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
	default:
		return false, fmt.Errorf("%w: cannot move a payment to %q", domain.ErrInvalidArgument, next)
	}
	if s == next {
		return false, nil
	}
	switch {
	case s == PaymentStatusPending && (next == PaymentStatusCompleted || next == PaymentStatusFailed):
		return true, nil
	case s == PaymentStatusCompleted && next == PaymentStatusRefunded:
		return true, nil
	}
	return false, fmt.Errorf("%w: payment is %s, cannot become %s", domain.ErrConflict, s, next)
}

type PaymentKind string

const (
	PaymentKindJobPost        PaymentKind = "job_post"
	PaymentKindSubscription   PaymentKind = "subscription"
	PaymentKindApplicationFee PaymentKind = "application_fee"
)

func (k PaymentKind) Valid() bool {
	switch k {
	case PaymentKindJobPost, PaymentKindSubscription, PaymentKindApplicationFee:
		return true
	}
	return false
}

// PlanPaymentKind is the ledger kind used when a holder of the given audience buys a plan.
func PlanPaymentKind(a Audience) PaymentKind {
	if a == AudienceJobseeker {
		return PaymentKindSubscription
	}
	return PaymentKindJobPost
}

type PaymentChannel string

const (
	ChannelTelebirr     PaymentChannel = "telebirr"
	ChannelCBEBirr      PaymentChannel = "cbe_birr"
	ChannelChapa        PaymentChannel = "chapa"
	ChannelBankTransfer PaymentChannel = "bank_transfer"
	ChannelCash         PaymentChannel = "cash"
)

var PaymentChannels = []PaymentChannel{ChannelTelebirr, ChannelCBEBirr, ChannelChapa, ChannelBankTransfer, ChannelCash}

func (c PaymentChannel) Valid() bool {
	for _, v := range PaymentChannels {
		if c == v {
			return true
		}
	}
	return false
}

// Payment is a ledger entry for money owed or received. Rows are never deleted.
type Payment struct {
	ID          string          `json:"id"`
	Payer       Holder          `json:"payer"`
	PlanID      *string         `json:"plan_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Kind        PaymentKind     `json:"kind"`
	Channel     PaymentChannel  `json:"channel"`
	ExternalRef *string         `json:"external_ref,omitempty"`
	Status      PaymentStatus   `json:"status"`
	ReferenceID *int64          `json:"reference_id,omitempty"` // job id for application fees
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	Notes       []Annotation    `json:"notes"`
}

// PaymentRecord is a payment joined with the name of the plan it bought, if any.
type PaymentRecord struct {
	Payment
	PlanName *string `json:"plan_name,omitempty"`
}

// PendingPayment is a pending payment enriched with the payer's display name.
type PendingPayment struct {
	Payment
	PayerName string `json:"payer_name"`
}

// Annotation is one audit entry on a payment.
type Annotation struct {
	ID        string    `json:"id"`
	PaymentID string    `json:"payment_id"`
	Actor     Holder    `json:"actor"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAnnotation stamps a note with a time-ordered ULID.
func NewAnnotation(paymentID string, actor Holder, text string, at time.Time) Annotation {
	return Annotation{
		ID:        ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		PaymentID: paymentID,
		Actor:     actor,
		Text:      text,
		CreatedAt: at,
	}
}

// MonthlyRevenue is completed revenue for one calendar month (YYYY-MM).
type MonthlyRevenue struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// KindRevenue is completed revenue for one payment kind.
type KindRevenue struct {
	Kind   PaymentKind     `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// RevenueReport is recomputed from the ledger on every request.
type RevenueReport struct {
	TotalRevenue    decimal.Decimal  `json:"total_revenue"`
	Currency        string           `json:"currency"`
	MonthlyRevenue  []MonthlyRevenue `json:"monthly_revenue"`
	RevenueByType   []KindRevenue    `json:"revenue_by_type"`
	PendingPayments []PendingPayment `json:"pending_payments"`
}
