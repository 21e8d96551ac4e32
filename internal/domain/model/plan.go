package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jobboard-billing/internal/domain"
)

// Audience is the side of the job board a plan is sold to.
type Audience string

const (
	AudienceEmployer  Audience = "employer"
	AudienceJobseeker Audience = "jobseeker"
)

func (a Audience) Valid() bool { return a == AudienceEmployer || a == AudienceJobseeker }

// Plan is a purchasable bundle of price, validity and usage quotas.
// Plans referenced by a payment are never edited; a changed offer is a new plan.
type Plan struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Audience          Audience        `json:"audience"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency"`
	DurationDays      int             `json:"duration_days"`
	Features          []string        `json:"features"`
	JobPostsLimit     Quota           `json:"job_posts_limit"`
	ApplicationsLimit Quota           `json:"applications_limit"`
	Active            bool            `json:"active"`
	CreatedAt         time.Time       `json:"created_at"`
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs an active plan. An empty id gets a fresh UUID.
func NewPlan(id, name string, audience Audience, price decimal.Decimal, currency string, durationDays int, features []string, jobPosts, applications Quota) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" || !audience.Valid() || durationDays <= 0 || price.IsNegative() {
		return nil, domain.ErrInvalidArgument
	}
	if !jobPosts.Valid() || !applications.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if id == "" {
		id = uuid.NewString()
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	if features == nil {
		features = []string{}
	}
	return &Plan{
		ID:                id,
		Name:              name,
		Audience:          audience,
		Price:             price.Round(2),
		Currency:          currency,
		DurationDays:      durationDays,
		Features:          features,
		JobPostsLimit:     jobPosts,
		ApplicationsLimit: applications,
		Active:            true,
		CreatedAt:         time.Now(),
	}, nil
}

// ExpiryFrom returns start plus the plan's validity in calendar days.
func (p *Plan) ExpiryFrom(start time.Time) time.Time {
	return start.AddDate(0, 0, p.DurationDays)
}
