// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	assignmentsfeature "github.com/dalemusser/dutyhub/internal/app/features/assignments"
	authnfeature "github.com/dalemusser/dutyhub/internal/app/features/authn"
	healthfeature "github.com/dalemusser/dutyhub/internal/app/features/health"
	membersfeature "github.com/dalemusser/dutyhub/internal/app/features/members"
	reportsfeature "github.com/dalemusser/dutyhub/internal/app/features/reports"
	"github.com/dalemusser/dutyhub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. DutyHub is a JSON API: every feature
// mounts a chi subrouter, and the session middleware resolves the caller's
// identity once per request before any handler runs.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.DutyHubMongoDatabase

	r := chi.NewRouter()

	// Global auth middleware: loads the caller's Identity into context when
	// a valid session cookie arrives.
	r.Use(sessionMgr.LoadIdentity)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.DutyHubMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Login, logout, and invite redemption.
	authnHandler := authnfeature.NewHandler(db, sessionMgr, logger)
	r.Mount("/auth", authnfeature.Routes(authnHandler))

	// Duty assignments, with the report lifecycle nested under each one.
	reportsHandler := reportsfeature.NewHandler(db, logger)
	assignmentsHandler := assignmentsfeature.NewHandler(db, logger)
	r.Mount("/assignments", assignmentsfeature.Routes(assignmentsHandler, reportsfeature.Routes(reportsHandler), sessionMgr))

	// Roster and invite administration. Invite emails link back to the
	// deployment's public URL.
	membersHandler := membersfeature.NewHandler(db, logger)
	if appCfg.PublicBaseURL != "" {
		membersHandler.BaseURL = appCfg.PublicBaseURL
	}
	r.Mount("/members", membersfeature.Routes(membersHandler, sessionMgr))

	return r, nil
}
