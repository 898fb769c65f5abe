// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS, log
// level, timeouts); AppConfig is everything specific to DutyHub. Values
// come from config files, DUTYHUB_* environment variables, or flags,
// loaded in LoadConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // secret for signing session cookies
	SessionName   string // cookie name
	SessionDomain string // cookie domain (blank means current host)

	// PublicBaseURL is the externally reachable base URL, used when
	// building links in outbound email.
	PublicBaseURL string

	// Bootstrap tenant: created on first startup when set, so a fresh
	// deployment has an association and a registered president to invite
	// everyone else with.
	BootstrapAssociation   string
	BootstrapPresidentMail string
}
