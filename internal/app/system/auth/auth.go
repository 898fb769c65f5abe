// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/dutyhub/internal/domain/models"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	isAuthKey  = "is_authenticated"
	memberKey  = "member_id"
	assocKey   = "association_id"
	rolesKey   = "roles"
	displayKey = "display_name"
)

// Identity is the resolved caller: who they are, which association scopes
// every query they make, and which roles they hold. It is built once per
// request and passed by value; nothing below the HTTP layer stores it.
type Identity struct {
	MemberID      primitive.ObjectID
	AssociationID primitive.ObjectID
	Roles         []string
	DisplayName   string
}

// HasRole reports whether the identity holds the role. models.RoleMember is
// implicit for every signed-in member.
func (id Identity) HasRole(role string) bool {
	if role == models.RoleMember {
		return true
	}
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsPresident reports whether the identity holds the president role.
func (id Identity) IsPresident() bool {
	return id.HasRole(models.RolePresident)
}

type ctxKey string

const identityCtxKey ctxKey = "currentIdentity"

// CurrentIdentity returns the request's identity and a found flag.
func CurrentIdentity(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityCtxKey).(Identity)
	return id, ok
}

// SessionManager owns the cookie store and the middleware that turns a
// session cookie back into an Identity.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// NewSessionManager builds the cookie store. The session key must be at
// least 32 random characters in production; shorter keys log a warning so
// dev setups still work.
func NewSessionManager(sessionKey, sessionName, domain string, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: sessionName, log: logger}, nil
}

// SignIn writes the member's identity into the session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, m *models.Member) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[isAuthKey] = true
	sess.Values[memberKey] = m.ID.Hex()
	sess.Values[assocKey] = m.AssociationID.Hex()
	sess.Values[rolesKey] = strings.Join(m.Roles, ",")
	sess.Values[displayKey] = m.FullName
	return sess.Save(r, w)
}

// SignOut clears the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadIdentity injects the caller's Identity into the request context when
// a valid session cookie is present. Requests without one pass through
// unauthenticated; RequireSignedIn decides what that means per route.
func (sm *SessionManager) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sm.store.Get(r, sm.name)

		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			memberID, errM := primitive.ObjectIDFromHex(getString(sess, memberKey))
			assocID, errA := primitive.ObjectIDFromHex(getString(sess, assocKey))
			if errM == nil && errA == nil {
				id := Identity{
					MemberID:      memberID,
					AssociationID: assocID,
					DisplayName:   getString(sess, displayKey),
				}
				if raw := getString(sess, rolesKey); raw != "" {
					id.Roles = strings.Split(raw, ",")
				}
				r = withIdentity(r, id)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects requests without an identity with a plain 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentIdentity(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers lacking all of the allowed roles with 403,
// and unauthenticated callers with 401.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := CurrentIdentity(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			authorized := false
			for role := range set {
				if id.HasRole(role) {
					authorized = true
					break
				}
			}
			if !authorized {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithTestIdentity injects an identity directly into the request context.
// Handler tests use this to bypass the session middleware.
func WithTestIdentity(r *http.Request, id Identity) *http.Request {
	return withIdentity(r, id)
}

func withIdentity(r *http.Request, id Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityCtxKey, id))
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
