package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/david8015838-create/nexus-mind/internal/cloud"
)

// Auth modes for the local API.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Store       StoreConfig       `yaml:"store"`
	Auth        AuthConfig        `yaml:"auth"`
	Cloud       CloudConfig       `yaml:"cloud"`
	Importer    ImporterConfig    `yaml:"importer"`
	CloudServer CloudServerConfig `yaml:"cloud_server"`
}

// Validate validates the configuration used by the app commands. The
// cloud_server section is validated separately by the cloud command.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Cloud.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig holds the SQLite database location.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds local API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// CloudConfig holds the connection to the cloud mirror service. An empty
// base_url runs the app fully offline: sync operations report that nobody
// is signed in.
type CloudConfig struct {
	BaseURL        string `yaml:"base_url"`
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Enabled reports whether a cloud service is configured.
func (c *CloudConfig) Enabled() bool {
	return c.BaseURL != ""
}

// Timeout returns the per-request timeout for remote calls.
func (c *CloudConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the cloud configuration.
func (c *CloudConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Email == "" || c.Password == "" {
		return fmt.Errorf("cloud: base_url is set but email or password is empty")
	}
	return nil
}

// ImporterConfig holds the drop directory for contact file imports. An
// empty dir disables the importer.
type ImporterConfig struct {
	Dir string `yaml:"dir"`
}

// CloudServerConfig configures the hosted mirror service started by the
// cloud command.
type CloudServerConfig struct {
	Port      int             `yaml:"port"`
	JWTSecret string          `yaml:"jwt_secret"`
	Accounts  []cloud.Account `yaml:"accounts"`
}

// Address returns the cloud server listen address.
func (c *CloudServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the cloud server configuration.
func (c *CloudServerConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.JWTSecret, validation.Required),
	); err != nil {
		return err
	}
	if len(c.Accounts) == 0 {
		return fmt.Errorf("cloud_server: at least one account is required")
	}
	for _, a := range c.Accounts {
		if a.UID == "" || a.Email == "" || a.Password == "" {
			return fmt.Errorf("cloud_server: account %q must have uid, email, and password", a.Email)
		}
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Path: "./nexusmind.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		CloudServer: CloudServerConfig{
			Port: 8090,
		},
	}
}
