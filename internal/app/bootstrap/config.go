// internal/app/bootstrap/config.go
package bootstrap

import (
	"encoding/hex"
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for DutyHub, loaded through
// WAFFLE's config system:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: DUTYHUB_MONGO_URI, DUTYHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "duty_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},
	{Name: "session_key", Default: "", Desc: "Session signing key (32+ random chars; generated in dev when empty)"},
	{Name: "session_name", Default: "dutyhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "public_base_url", Default: "http://localhost:8080", Desc: "Externally reachable base URL for links in email"},

	// First-run bootstrap
	{Name: "bootstrap_association", Default: "", Desc: "Name of the association to create on first startup"},
	{Name: "bootstrap_president_email", Default: "", Desc: "Email of the first president (invited on startup)"},
}

// LoadConfig loads WAFFLE core config and app-specific config. It runs
// early in startup so both WAFFLE and the app see configuration before any
// backends or handlers are built.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "DUTYHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		PublicBaseURL:    appValues.String("public_base_url"),

		BootstrapAssociation:   appValues.String("bootstrap_association"),
		BootstrapPresidentMail: appValues.String("bootstrap_president_email"),
	}

	// Dev convenience: an empty session key gets a throwaway random one.
	// Sessions then die on restart, which is fine outside production.
	if appCfg.SessionKey == "" && coreCfg.Env != "prod" {
		appCfg.SessionKey = hex.EncodeToString(securecookie.GenerateRandomKey(32))
		logger.Warn("session_key not set; generated a throwaway key for this run")
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation before any
// connection attempt, so configuration mistakes fail fast.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if coreCfg.Env == "prod" && appCfg.SessionKey == "" {
		return fmt.Errorf("session_key must be set in production")
	}
	if appCfg.BootstrapAssociation == "" && appCfg.BootstrapPresidentMail != "" {
		return fmt.Errorf("bootstrap_president_email requires bootstrap_association")
	}
	return nil
}
