package snow

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes builds the read API router.
func (a *API) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/planifications", a.ListPlanifications)
	r.Get("/planifications/{streetSideID}", a.GetPlanification)
	r.Get("/streets", a.ListStreets)
	r.Get("/health", a.HealthHandler)

	return r
}
