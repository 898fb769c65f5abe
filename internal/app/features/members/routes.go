// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/dutyhub/internal/app/system/auth"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /members subrouter.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/me", h.ServeMe)
		pr.Get("/export.csv", h.ServeExport)

		pr.Group(func(ar chi.Router) {
			ar.Use(sm.RequireRole(models.RolePresident))
			ar.Post("/invites", h.HandleInvite)
			ar.Post("/invites/import", h.HandleImportInvites)
		})
	})

	return r
}
