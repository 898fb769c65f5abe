// internal/app/features/reports/routes.go
package reports

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the report subrouter mounted under an assignment. The
// parent router supplies the {id} URL parameter and the signed-in gate;
// authorization beyond that (assignee on create, author on update and
// delete) is data-dependent and enforced by the stores.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.HandleCreate)
	r.Get("/", h.ServeGet)
	r.Patch("/", h.HandleUpdate)
	r.Delete("/", h.HandleDelete)

	return r
}
