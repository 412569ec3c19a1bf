package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/mothclassifier/coordinator/internal/api/middleware"
	"github.com/mothclassifier/coordinator/internal/api/response"
)

// Dependencies holds the handlers the router wires up.
type Dependencies struct {
	HealthHandler    http.HandlerFunc
	CreateJobHandler http.HandlerFunc
	GetJobHandler    http.HandlerFunc
}

// NewRouter builds the chi router with the middleware stack and all routes.
// Authentication is handled upstream by the main API; this surface only
// exposes the job intake and health endpoints.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Post("/api/v1/jobs", orNotImplemented(deps.CreateJobHandler))
	r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
