// internal/app/features/authn/handler.go
package authn

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/dutyhub/internal/app/features/shared"
	invitestore "github.com/dalemusser/dutyhub/internal/app/store/invites"
	memberstore "github.com/dalemusser/dutyhub/internal/app/store/members"
	"github.com/dalemusser/dutyhub/internal/app/system/auth"
	"github.com/dalemusser/dutyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/dutyhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

// Handler carries the stores the sign-in and registration flows need.
type Handler struct {
	Members  *memberstore.Store
	Invites  *invitestore.Store
	Sessions *auth.SessionManager
	Logins   *ratelimit.LoginLimiter
	Log      *zap.Logger
}

// NewHandler constructs an authn Handler.
func NewHandler(db *mongo.Database, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Members:  memberstore.New(db),
		Invites:  invitestore.New(db),
		Sessions: sm,
		Logins:   ratelimit.NewLoginLimiter(),
		Log:      logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// HandleLogin verifies email and password and starts a session. Unknown
// email, unregistered member and wrong password all get the same answer so
// the endpoint does not leak which accounts exist.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := shared.Decode(w, r, &req); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		shared.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if ok, reason := h.Logins.Check(r, req.Email); !ok {
		shared.Error(w, http.StatusTooManyRequests, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Members.GetByEmail(ctx, req.Email)
	if err == mongo.ErrNoDocuments {
		shared.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.Log.Error("login lookup failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !m.IsRegistered ||
		bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(req.Password)) != nil {
		shared.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.Logins.ResetEmail(req.Email)

	if err := h.Sessions.SignIn(w, r, m); err != nil {
		h.Log.Error("session write failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, m)
}

// HandleLogout clears the session.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Error("session clear failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeInvite shows who an invite token belongs to, so the registration
// form can greet the invitee. Expired and redeemed tokens still resolve
// here; redemption is where they are rejected.
func (h *Handler) ServeInvite(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		shared.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inv, err := h.Invites.GetByToken(ctx, token)
	if errors.Is(err, invitestore.ErrInviteNotFound) {
		shared.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.Log.Error("invite lookup failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, inv)
}

// HandleRegister redeems an invite token: the invitee picks a password and
// becomes a registered member, signed in immediately.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := shared.Decode(w, r, &req); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		shared.Error(w, http.StatusBadRequest, "token is required")
		return
	}
	if len(req.Password) < minPasswordLen {
		shared.Error(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Invites.Redeem(ctx, req.Token, req.Password)
	switch {
	case errors.Is(err, invitestore.ErrInviteNotFound):
		shared.Error(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, invitestore.ErrInviteExpired):
		shared.Error(w, http.StatusGone, err.Error())
		return
	case errors.Is(err, invitestore.ErrInviteRedeemed):
		shared.Error(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.Log.Error("invite redemption failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.Sessions.SignIn(w, r, m); err != nil {
		h.Log.Error("session write failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusCreated, m)
}
