package model

import (
	"time"

	"github.com/google/uuid"

	"jobboard-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending" // created with its payment, awaiting confirmation
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Resource is a quota-governed action.
type Resource string

const (
	ResourceJobPost     Resource = "job_post"
	ResourceApplication Resource = "application"
)

func (r Resource) Valid() bool { return r == ResourceJobPost || r == ResourceApplication }

// Subscription is the entitlement window bought by a plan payment. The
// quota limits are copied from the plan when the payment is created.
type Subscription struct {
	ID                string             `json:"id"`
	Holder            Holder             `json:"holder"`
	PlanID            string             `json:"plan_id"`
	PaymentID         string             `json:"payment_id"`
	Status            SubscriptionStatus `json:"status"`
	StartAt           time.Time          `json:"start_at"`
	ExpiresAt         time.Time          `json:"expires_at"`
	JobPostsLimit     Quota              `json:"job_posts_limit"`
	ApplicationsLimit Quota              `json:"applications_limit"`
	JobPostsUsed      int64              `json:"job_posts_used"`
	ApplicationsUsed  int64              `json:"applications_used"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewPendingSubscription builds the not-yet-active subscription that is
// stored together with a plan payment. The window starts at the payment's
// creation time, not at confirmation time.
func NewPendingSubscription(holder Holder, plan *Plan, paymentID string, paymentCreatedAt time.Time) (*Subscription, error) {
	if plan.IsZero() || paymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := holder.Validate(); err != nil {
		return nil, err
	}
	return &Subscription{
		ID:                uuid.NewString(),
		Holder:            holder,
		PlanID:            plan.ID,
		PaymentID:         paymentID,
		Status:            SubscriptionStatusPending,
		StartAt:           paymentCreatedAt,
		ExpiresAt:         plan.ExpiryFrom(paymentCreatedAt),
		JobPostsLimit:     plan.JobPostsLimit,
		ApplicationsLimit: plan.ApplicationsLimit,
		CreatedAt:         paymentCreatedAt,
		UpdatedAt:         paymentCreatedAt,
	}, nil
}

// EffectiveStatus applies lazy expiry: a stored active row whose window has
// closed reads as expired.
func (s *Subscription) EffectiveStatus(now time.Time) SubscriptionStatus {
	if s.Status == SubscriptionStatusActive && !now.Before(s.ExpiresAt) {
		return SubscriptionStatusExpired
	}
	return s.Status
}

func (s *Subscription) IsActive(now time.Time) bool {
	return s.EffectiveStatus(now) == SubscriptionStatusActive
}

func (s *Subscription) RemainingJobPosts() int64 {
	return s.JobPostsLimit.Remaining(s.JobPostsUsed)
}

func (s *Subscription) RemainingApplications() int64 {
	return s.ApplicationsLimit.Remaining(s.ApplicationsUsed)
}

// Remaining dispatches on resource.
func (s *Subscription) Remaining(r Resource) int64 {
	if r == ResourceApplication {
		return s.RemainingApplications()
	}
	return s.RemainingJobPosts()
}

// Allows reports whether one more unit of r fits in the quota.
func (s *Subscription) Allows(r Resource) bool {
	if r == ResourceApplication {
		return s.ApplicationsLimit.Allows(s.ApplicationsUsed)
	}
	return s.JobPostsLimit.Allows(s.JobPostsUsed)
}

// Entitlements summarises what a holder may still do.
type Entitlements struct {
	Holder                Holder        `json:"holder"`
	Subscription          *Subscription `json:"subscription,omitempty"`
	RemainingJobPosts     *Quota        `json:"remaining_job_posts,omitempty"`
	RemainingApplications *Quota        `json:"remaining_applications,omitempty"`
}

// GrantBasis records why an entitlement check let an action through.
type GrantBasis string

const (
	GrantSubscription   GrantBasis = "subscription"
	GrantApplicationFee GrantBasis = "application_fee"
	GrantNotEnforced    GrantBasis = "not_enforced"
)

// Grant is a successful entitlement decision.
type Grant struct {
	Holder       Holder        `json:"holder"`
	Resource     Resource      `json:"resource"`
	Basis        GrantBasis    `json:"basis"`
	Subscription *Subscription `json:"subscription,omitempty"`
	Remaining    *Quota        `json:"remaining,omitempty"`
}

// RemainingQuota is the quota left for r, keeping the unlimited sentinel intact.
func (s *Subscription) RemainingQuota(r Resource) Quota {
	limit := s.JobPostsLimit
	if r == ResourceApplication {
		limit = s.ApplicationsLimit
	}
	if limit.IsUnlimited() {
		return Unlimited
	}
	return Limit(s.Remaining(r))
}
