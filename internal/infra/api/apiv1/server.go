// Package apiv1 is the billing HTTP API mounted under /api/v1.
package apiv1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/infra/logging"
	"jobboard-billing/internal/usecase"
)

// ServerInterface lists every /api/v1 operation. Path and query parameters
// arrive already bound.
type ServerInterface interface {
	ListPlans(w http.ResponseWriter, r *http.Request, params ListPlansParams)
	GetPlan(w http.ResponseWriter, r *http.Request, id string)
	CreatePlan(w http.ResponseWriter, r *http.Request)
	DeactivatePlan(w http.ResponseWriter, r *http.Request, id string)

	CreatePlanPayment(w http.ResponseWriter, r *http.Request)
	CreateApplicationFeePayment(w http.ResponseWriter, r *http.Request)
	GetPayment(w http.ResponseWriter, r *http.Request, id string)
	ConfirmPayment(w http.ResponseWriter, r *http.Request, id string)
	RefundPayment(w http.ResponseWriter, r *http.Request, id string)
	ListPaymentHistory(w http.ResponseWriter, r *http.Request, params ListPaymentHistoryParams)
	RevenueAnalytics(w http.ResponseWriter, r *http.Request)

	GetEntitlements(w http.ResponseWriter, r *http.Request)
	ListSubscriptions(w http.ResponseWriter, r *http.Request)
	AuthorizeJobPost(w http.ResponseWriter, r *http.Request)
	AuthorizeApplication(w http.ResponseWriter, r *http.Request)
}

type ListPlansParams struct {
	Audience        *string `form:"audience,omitempty" json:"audience,omitempty"`
	IncludeInactive *bool   `form:"include_inactive,omitempty" json:"include_inactive,omitempty"`
}

type ListPaymentHistoryParams struct {
	HolderKind *string `form:"holder_kind,omitempty" json:"holder_kind,omitempty"`
	HolderID   *int64  `form:"holder_id,omitempty" json:"holder_id,omitempty"`
}

// Deps carries the use cases the API fronts.
type Deps struct {
	Plans         usecase.PlanUseCase
	Payments      usecase.PaymentUseCase
	Subscriptions usecase.SubscriptionUseCase
	Entitlements  usecase.EntitlementUseCase
	Stats         usecase.StatsUseCase
	Auth          *Authenticator
	Logger        *zerolog.Logger
}

// Compile-time check
var _ ServerInterface = (*Server)(nil)

type Server struct {
	plans    usecase.PlanUseCase
	payments usecase.PaymentUseCase
	subs     usecase.SubscriptionUseCase
	ents     usecase.EntitlementUseCase
	stats    usecase.StatsUseCase
	auth     *Authenticator
	log      *zerolog.Logger
}

func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		l := zerolog.Nop()
		log = &l
	}
	return &Server{
		plans:    d.Plans,
		payments: d.Payments,
		subs:     d.Subscriptions,
		ents:     d.Entitlements,
		stats:    d.Stats,
		auth:     d.Auth,
		log:      log,
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, s.log, err)
}

// principal is always present behind Authenticator.Middleware.
func principal(r *http.Request) model.Holder {
	h, _ := HolderFrom(r.Context())
	return h
}

// ===== plans =====

func (s *Server) ListPlans(w http.ResponseWriter, r *http.Request, params ListPlansParams) {
	var audience model.Audience
	if params.Audience != nil {
		audience = model.Audience(*params.Audience)
	}
	// Only admins see retired plans.
	includeInactive := params.IncludeInactive != nil && *params.IncludeInactive && principal(r).IsAdmin()

	plans, err := s.plans.List(r.Context(), audience, includeInactive)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[*model.Plan]{Items: plans})
}

func (s *Server) GetPlan(w http.ResponseWriter, r *http.Request, id string) {
	plan, err := s.plans.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	plan, err := s.plans.Create(r.Context(), principal(r), usecase.CreatePlanInput{
		Name:              req.Name,
		Audience:          model.Audience(req.Audience),
		Price:             req.Price,
		Currency:          req.Currency,
		DurationDays:      req.DurationDays,
		Features:          req.Features,
		JobPostsLimit:     req.JobPostsLimit,
		ApplicationsLimit: req.ApplicationsLimit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) DeactivatePlan(w http.ResponseWriter, r *http.Request, id string) {
	plan, err := s.plans.Deactivate(r.Context(), principal(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// ===== payments =====

func (s *Server) CreatePlanPayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.payments.CreatePlanPayment(r.Context(), principal(r), req.PlanID, model.PaymentChannel(req.Channel), req.ExternalRef)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) CreateApplicationFeePayment(w http.ResponseWriter, r *http.Request) {
	var req CreateApplicationFeeRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.payments.CreateApplicationFeePayment(r.Context(), principal(r), req.JobID, model.PaymentChannel(req.Channel), req.ExternalRef)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) GetPayment(w http.ResponseWriter, r *http.Request, id string) {
	p, err := s.payments.Get(r.Context(), principal(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) ConfirmPayment(w http.ResponseWriter, r *http.Request, id string) {
	var req ConfirmPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := logging.WithPaymentID(r.Context(), id)
	p, err := s.payments.Confirm(ctx, principal(r), id, model.PaymentStatus(req.Status), req.Note)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) RefundPayment(w http.ResponseWriter, r *http.Request, id string) {
	var req RefundPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := logging.WithPaymentID(r.Context(), id)
	p, err := s.payments.Refund(ctx, principal(r), id, req.Note)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListPaymentHistory defaults to the caller's own ledger. Admins may name
// another holder with holder_kind and holder_id.
func (s *Server) ListPaymentHistory(w http.ResponseWriter, r *http.Request, params ListPaymentHistoryParams) {
	viewer := principal(r)
	payer := viewer
	switch {
	case params.HolderKind != nil && params.HolderID != nil:
		h, err := model.NewHolder(*params.HolderKind, *params.HolderID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		payer = h
	case params.HolderKind != nil || params.HolderID != nil:
		s.fail(w, r, fmt.Errorf("%w: holder_kind and holder_id go together", domain.ErrInvalidArgument))
		return
	}

	records, err := s.payments.History(r.Context(), viewer, payer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[*model.PaymentRecord]{Items: records})
}

func (s *Server) RevenueAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.stats.RevenueAnalytics(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ===== entitlements =====

func (s *Server) GetEntitlements(w http.ResponseWriter, r *http.Request) {
	ent, err := s.ents.Entitlements(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

func (s *Server) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subs.List(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[*model.Subscription]{Items: subs})
}

func (s *Server) AuthorizeJobPost(w http.ResponseWriter, r *http.Request) {
	grant, err := s.ents.AuthorizeJobPost(r.Context(), principal(r))
	if err != nil {
		s.logDenied(r, model.ResourceJobPost, err)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

func (s *Server) AuthorizeApplication(w http.ResponseWriter, r *http.Request) {
	var req AuthorizeApplicationRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	grant, err := s.ents.AuthorizeApplication(r.Context(), principal(r), req.JobID)
	if err != nil {
		s.logDenied(r, model.ResourceApplication, err)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

func (s *Server) logDenied(r *http.Request, res model.Resource, err error) {
	if errors.Is(err, domain.ErrQuotaExceeded) || errors.Is(err, domain.ErrNoActiveSubscription) {
		l := logging.With(r.Context(), s.log)
		l.Info().Str("resource", string(res)).Err(err).Msg("entitlement denied")
	}
}
