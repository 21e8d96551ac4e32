package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

const BasePath = "/api/v1"

// serverInterfaceWrapper binds path and query parameters before calling the
// typed handler.
type serverInterfaceWrapper struct {
	handler ServerInterface
}

func (siw *serverInterfaceWrapper) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, r, nil, badRequest{msg: "invalid path parameter id: " + err.Error()})
		return "", false
	}
	return id, true
}

func (siw *serverInterfaceWrapper) ListPlans(w http.ResponseWriter, r *http.Request) {
	var params ListPlansParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "audience", q, &params.Audience); err != nil {
		writeError(w, r, nil, badRequest{msg: "invalid query parameter audience: " + err.Error()})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "include_inactive", q, &params.IncludeInactive); err != nil {
		writeError(w, r, nil, badRequest{msg: "invalid query parameter include_inactive: " + err.Error()})
		return
	}
	siw.handler.ListPlans(w, r, params)
}

func (siw *serverInterfaceWrapper) ListPaymentHistory(w http.ResponseWriter, r *http.Request) {
	var params ListPaymentHistoryParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "holder_kind", q, &params.HolderKind); err != nil {
		writeError(w, r, nil, badRequest{msg: "invalid query parameter holder_kind: " + err.Error()})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "holder_id", q, &params.HolderID); err != nil {
		writeError(w, r, nil, badRequest{msg: "invalid query parameter holder_id: " + err.Error()})
		return
	}
	siw.handler.ListPaymentHistory(w, r, params)
}

// withID adapts a handler taking the {id} path parameter.
func (siw *serverInterfaceWrapper) withID(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := siw.pathID(w, r)
		if !ok {
			return
		}
		fn(w, r, id)
	}
}

// RegisterAPIV1 mounts every operation under BasePath behind bearer auth.
func RegisterAPIV1(r chi.Router, srv *Server) {
	siw := &serverInterfaceWrapper{handler: srv}

	r.Route(BasePath, func(r chi.Router) {
		r.Use(srv.auth.Middleware)

		r.Get("/plans", siw.ListPlans)
		r.Post("/plans", srv.CreatePlan)
		r.Get("/plans/{id}", siw.withID(srv.GetPlan))
		r.Post("/plans/{id}/deactivate", siw.withID(srv.DeactivatePlan))

		r.Post("/payments/plan", srv.CreatePlanPayment)
		r.Post("/payments/application-fee", srv.CreateApplicationFeePayment)
		r.Get("/payments/history", siw.ListPaymentHistory)
		r.Get("/payments/{id}", siw.withID(srv.GetPayment))
		r.Post("/payments/{id}/confirm", siw.withID(srv.ConfirmPayment))
		r.Post("/payments/{id}/refund", siw.withID(srv.RefundPayment))

		r.Get("/admin/revenue", srv.RevenueAnalytics)

		r.Get("/entitlements", srv.GetEntitlements)
		r.Post("/entitlements/job-post", srv.AuthorizeJobPost)
		r.Post("/entitlements/application", srv.AuthorizeApplication)
		r.Get("/subscriptions", srv.ListSubscriptions)
	})
}
