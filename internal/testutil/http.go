package testutil

import (
	"context"
	"net/http"

	"github.com/dalemusser/dutyhub/internal/app/system/auth"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// WithMemberIdentity injects the member's identity into the request
// context, bypassing the session middleware.
func WithMemberIdentity(r *http.Request, m models.Member) *http.Request {
	return auth.WithTestIdentity(r, auth.Identity{
		MemberID:      m.ID,
		AssociationID: m.AssociationID,
		Roles:         m.Roles,
		DisplayName:   m.FullName,
	})
}
