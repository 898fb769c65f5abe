// internal/app/features/assignments/routes.go
package assignments

import (
	"github.com/dalemusser/dutyhub/internal/app/system/auth"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /assignments subrouter. Report routes live under
// /{id}/report and are supplied by the reports feature so each feature
// keeps its own handlers.
func Routes(h *Handler, reportRoutes chi.Router, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// Reads are open to every signed-in member of the association.
		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeGet)

		// Mutations are president-only.
		pr.Group(func(mr chi.Router) {
			mr.Use(sm.RequireRole(models.RolePresident))
			mr.Post("/", h.HandleCreate)
			mr.Patch("/{id}", h.HandleUpdate)
			mr.Delete("/{id}", h.HandleDelete)
		})

		// Report lifecycle, keyed by the owning assignment.
		pr.Mount("/{id}/report", reportRoutes)
	})

	return r
}
