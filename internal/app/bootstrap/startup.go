// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"time"

	associationstore "github.com/dalemusser/dutyhub/internal/app/store/associations"
	invitestore "github.com/dalemusser/dutyhub/internal/app/store/invites"
	"github.com/dalemusser/dutyhub/internal/app/system/normalize"
	"github.com/dalemusser/dutyhub/internal/app/system/timeouts"
	"github.com/dalemusser/dutyhub/internal/app/system/workers"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// inviteCleanup runs for the lifetime of the process; Shutdown stops it.
var inviteCleanup *workers.InviteCleanup

// Startup runs one-time application initialization after DB connections
// and schema setup, before the HTTP handler is built. It clears stale
// invites and, on a fresh deployment, seeds the bootstrap association with
// an invited president so someone can sign in and invite the rest.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	db := deps.DutyHubMongoDatabase

	invites := invitestore.New(db)
	if n, err := invites.DeleteExpired(ctx); err != nil {
		logger.Warn("expired invite cleanup failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("removed expired invites", zap.Int64("count", n))
	}

	inviteCleanup = workers.NewInviteCleanup(invites, logger, time.Hour)
	inviteCleanup.Start()

	if appCfg.BootstrapAssociation == "" {
		return nil
	}
	return ensureBootstrapTenant(ctx, deps, appCfg, logger)
}

// ensureBootstrapTenant creates the configured association and invites its
// first president, once. Reruns are no-ops.
func ensureBootstrapTenant(ctx context.Context, deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	db := deps.DutyHubMongoDatabase
	assocs := associationstore.New(db)

	a, err := assocs.Create(ctx, models.Association{Name: appCfg.BootstrapAssociation})
	if err == associationstore.ErrDuplicateName {
		logger.Info("bootstrap association already exists",
			zap.String("name", appCfg.BootstrapAssociation))
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("created bootstrap association",
		zap.String("name", a.Name),
		zap.String("id", a.ID.Hex()))

	if appCfg.BootstrapPresidentMail == "" {
		return nil
	}

	email := normalize.Email(appCfg.BootstrapPresidentMail)
	n, err := db.Collection("members").CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	inv, err := invitestore.New(db).Create(ctx, a.ID, email, "President", []string{models.RolePresident})
	if err != nil {
		return err
	}
	// The token shows up in the startup log on purpose: there is no one
	// to email it to yet.
	logger.Info("invited bootstrap president",
		zap.String("email", email),
		zap.String("token", inv.Token))
	return nil
}
