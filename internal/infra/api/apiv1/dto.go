package apiv1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
)

// ===== requests =====

type CreatePlanRequest struct {
	Name              string          `json:"name" validate:"required,max=120"`
	Audience          string          `json:"audience" validate:"required,oneof=employer jobseeker"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency" validate:"omitempty,len=3,uppercase"`
	DurationDays      int             `json:"duration_days" validate:"required,gt=0,lte=3660"`
	Features          []string        `json:"features" validate:"max=32,dive,required,max=200"`
	JobPostsLimit     model.Quota     `json:"job_posts_limit"`
	ApplicationsLimit model.Quota     `json:"applications_limit"`
}

type CreatePlanPaymentRequest struct {
	PlanID      string `json:"plan_id" validate:"required,uuid"`
	Channel     string `json:"channel" validate:"required"`
	ExternalRef string `json:"external_ref" validate:"max=128"`
}

type CreateApplicationFeeRequest struct {
	JobID       int64  `json:"job_id" validate:"required,gt=0"`
	Channel     string `json:"channel" validate:"required"`
	ExternalRef string `json:"external_ref" validate:"max=128"`
}

type ConfirmPaymentRequest struct {
	Status string `json:"status" validate:"required,oneof=completed failed"`
	Note   string `json:"note" validate:"max=1000"`
}

type RefundPaymentRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

type AuthorizeApplicationRequest struct {
	JobID int64 `json:"job_id" validate:"required,gt=0"`
}

// ===== responses =====

type ListResponse[T any] struct {
	Items []T `json:"items"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeBody reads a JSON body into dst and validates it. Unknown fields and
// trailing data are rejected.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return badRequest{msg: "request body is required"}
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest{msg: "request body is required"}
		}
		if errors.Is(err, domain.ErrInvalidArgument) {
			return err
		}
		return badRequest{msg: "invalid json: " + err.Error()}
	}
	if dec.More() {
		return badRequest{msg: "request body must hold a single json object"}
	}
	return validate.Struct(dst)
}
