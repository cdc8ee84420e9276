// Package v1 wires the HTTP surface of the canteen service.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
    "net/http"

    chi "github.com/go-chi/chi/v5"
    chimw "github.com/go-chi/chi/v5/middleware"
    "log/slog"

    "github.com/gatepos/canteen/internal/service/accounting"
    "github.com/gatepos/canteen/internal/service/billing"
    "github.com/gatepos/canteen/internal/service/reporting"
    "github.com/gatepos/canteen/internal/service/reversal"
    "github.com/gatepos/canteen/internal/service/roster"
)

// Server wires handlers and middleware using Chi.
// It composes the services over a single store implementation.
type Server struct {
    store     Store
    engine    accounting.Service
    billing   billing.Service
    reversal  reversal.Service
    reporting reporting.Service
    roster    roster.Service
    log       *slog.Logger
    rt        *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// notifier may be nil when no print service is configured. The logger is
// used by request/response logging and panic recovery.
func New(store Store, notifier billing.Notifier, logger *slog.Logger) *Server {
    r := chi.NewRouter()
    r.Use(chimw.RequestID)
    r.Use(requestLogger(logger))
    r.Use(recoverer(logger))
    r.Use(metricsMiddleware)

    engine := accounting.New(store)
    s := &Server{
        store:     store,
        engine:    engine,
        billing:   billing.New(store, store, engine, notifier),
        reversal:  reversal.New(engine),
        reporting: reporting.New(store),
        roster:    roster.New(store, store),
        rt:        r,
        log:       logger,
    }
    s.routes()
    return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
    // Persons (v1)
    s.rt.Post("/v1/persons", s.postPerson)
    s.rt.Get("/v1/persons", s.listPersons)
    s.rt.Get("/v1/persons/{id}", s.getPerson)
    s.rt.Patch("/v1/persons/{id}", s.patchPerson)
    s.rt.Delete("/v1/persons/{id}", s.deletePerson)
    s.rt.With(s.validatePay()).Post("/v1/persons/{id}/pay", s.postPay)
    s.rt.Post("/v1/persons/{id}/reset", s.postReset)
    // Operators (v1)
    s.rt.Post("/v1/operators", s.postOperator)
    s.rt.Get("/v1/operators", s.listOperators)
    s.rt.Delete("/v1/operators/{id}", s.deleteOperator)
    s.rt.Post("/v1/operators/verify", s.verifyOperator)
    // Bills (v1)
    s.rt.With(s.validatePostBills()).Post("/v1/bills", s.postBills)
    s.rt.Get("/v1/bills/{no}", s.getBill)
    // Reversals (v1)
    s.rt.Delete("/v1/transactions/{id}", s.deleteTransaction)
    s.rt.Delete("/v1/meals", s.deleteMeal)
    // Reports (v1)
    s.rt.Get("/v1/reports/students/{id}", s.studentStatement)
    s.rt.Get("/v1/reports/staff/{id}", s.staffStatement)
    s.rt.Get("/v1/reports/meals", s.mealCounts)
    s.rt.Get("/v1/reports/monthly", s.monthlyReport)
    // Dictionary (v1)
    s.rt.Get("/v1/dictionary/departments", s.dictDepartments)
    s.rt.Get("/v1/dictionary/prices", s.dictPrices)
    // Ops (unversioned)
    s.rt.Get("/healthz", s.healthz)
    s.rt.Get("/readyz", s.readyz)
    s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
