// internal/app/features/authn/routes.go
package authn

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the /auth subrouter. Everything here is reachable without
// a session; logout simply clears whatever cookie arrives.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)
	r.Get("/invite", h.ServeInvite)
	r.Post("/register", h.HandleRegister)

	return r
}
