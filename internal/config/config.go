package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var (
	ErrDatabaseHostRequired     = errors.New("database host is required")
	ErrDatabasePortRequired     = errors.New("database port is required")
	ErrDatabaseUserRequired     = errors.New("database user is required")
	ErrDatabasePasswordRequired = errors.New("database password is required")
	ErrDatabaseNameRequired     = errors.New("database name is required")
	ErrDatabasePortInvalid      = errors.New("database port must be a valid number between 1 and 65535")

	ErrJWKsCacheDurationNegative  = errors.New("JWKs cache duration must be non-negative")
	ErrJWKsRefreshPaddingNegative = errors.New("JWKs refresh padding must be non-negative")
	ErrJWKsRefreshPaddingTooLarge = errors.New("JWKs refresh padding must be less than cache duration")

	ErrAuthMethodRequired     = errors.New("at least one authentication method must be configured: JWT_SECRET, JWKS_ENDPOINT_URL, or JWT_PRIVATE_KEY_FILE")
	ErrPrivateKeyFileNotFound = errors.New("private key file does not exist")

	ErrServiceNameRequired = errors.New("service name is required")
	ErrAllowOriginEmpty    = errors.New("allowed origin is empty")

	ErrCleanerProgramPathRequired = errors.New("cleaner program path is required")
	ErrCacheBackendInvalid        = errors.New("cache backend must be \"file\" or \"postgres\"")
	ErrUnthreaderModeInvalid      = errors.New("unthreader mode must be \"off\" or \"always\"")

	ErrConfigValidation = errors.New("configuration validation failed")
)

// CacheBackend selects which store backs the engine's GetOrBuild cache:
// the default file-backed JSON store (internal/cache), or the Postgres
// store (internal/sqlcache) for deployments that already run a database
// and want the cache to survive across hosts.
type CacheBackend string

const (
	CacheBackendFile     CacheBackend = "file"
	CacheBackendPostgres CacheBackend = "postgres"
)

// DatabaseConfig holds Postgres connection configuration. It is only
// validated when EngineConfig.CacheBackend is CacheBackendPostgres.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Validate validates the database configuration
func (dc DatabaseConfig) Validate() error {
	if dc.Host == "" {
		return ErrDatabaseHostRequired
	}

	if dc.Port == "" {
		return ErrDatabasePortRequired
	}

	if dc.User == "" {
		return ErrDatabaseUserRequired
	}

	if dc.Password == "" {
		return ErrDatabasePasswordRequired
	}

	if dc.Name == "" {
		return ErrDatabaseNameRequired
	}

	if port, err := strconv.Atoi(dc.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("%w: %s", ErrDatabasePortInvalid, dc.Port)
	}

	return nil
}

// EngineConfig holds the cleaner engine's own run configuration: which
// program it runs, which profile is the default, and how the cache and
// the Unthreader serializer behave for every job the server runs
// (spec.md §5, SPEC_FULL.md's ambient stack).
type EngineConfig struct {
	CleanerProgramPath string
	DefaultProfile     string
	SubjectProfiles    map[string]string // authenticated JWT subject -> default profile override
	CacheBackend       CacheBackend
	CachePath          string
	CacheRead          bool
	CacheWrite         bool
	CacheDelay         bool
	UnthreaderMode     string // "off" or "always" — maps to unthreader.Off/SerializeAll
	NetworkingEnabled  bool
}

// Validate validates the engine configuration.
func (ec EngineConfig) Validate() error {
	if ec.CleanerProgramPath == "" {
		return ErrCleanerProgramPathRequired
	}

	switch ec.CacheBackend {
	case CacheBackendFile, CacheBackendPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrCacheBackendInvalid, ec.CacheBackend)
	}

	switch ec.UnthreaderMode {
	case "off", "always":
	default:
		return fmt.Errorf("%w: %q", ErrUnthreaderModeInvalid, ec.UnthreaderMode)
	}

	return nil
}

// JWKsConfig holds JSON Web Key Set configuration for JWT validation.
type JWKsConfig struct {
	EndpointURL    string
	CacheDuration  int // seconds
	RefreshPadding int // seconds
}

// Validate validates the JWKs configuration
func (jc JWKsConfig) Validate() error {
	if jc.CacheDuration < 0 {
		return ErrJWKsCacheDurationNegative
	}

	if jc.RefreshPadding < 0 {
		return ErrJWKsRefreshPaddingNegative
	}

	if jc.RefreshPadding >= jc.CacheDuration && jc.CacheDuration > 0 {
		return ErrJWKsRefreshPaddingTooLarge
	}

	return nil
}

// AuthConfig holds authentication and JWT configuration.
type AuthConfig struct {
	JWTSecret          string
	JWKs               JWKsConfig
	PrivateKeyFilePath string
}

// Validate validates the auth configuration
func (ac AuthConfig) Validate() error {
	// Validate JWKs configuration
	if err := ac.JWKs.Validate(); err != nil {
		return err
	}

	// At least one authentication method must be configured
	hasJWTSecret := ac.JWTSecret != ""
	hasJWKs := ac.JWKs.EndpointURL != ""
	hasPrivateKey := ac.PrivateKeyFilePath != ""

	if !hasJWTSecret && !hasJWKs && !hasPrivateKey {
		return ErrAuthMethodRequired
	}

	if hasPrivateKey {
		if _, err := os.Stat(ac.PrivateKeyFilePath); os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrPrivateKeyFileNotFound, ac.PrivateKeyFilePath)
		}
	}

	return nil
}

// Config represents the application configuration loaded from environment variables.
type Config struct {
	Engine       EngineConfig
	Database     DatabaseConfig
	Auth         AuthConfig
	AllowOrigins []string
	ServiceName  string
}

// Validate validates the entire configuration
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}

	// The database is only in play when the engine's cache is backed by
	// Postgres rather than the default file store.
	if c.Engine.CacheBackend == CacheBackendPostgres {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}

	// Validate auth configuration
	if err := c.Auth.Validate(); err != nil {
		return err
	}

	if c.ServiceName == "" {
		return ErrServiceNameRequired
	}

	for i, origin := range c.AllowOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("%w at index %d", ErrAllowOriginEmpty, i)
		}
	}

	return nil
}

// Load creates and returns a new Config instance with values loaded from environment variables.
func Load() (*Config, error) {
	config := &Config{
		Engine: EngineConfig{
			CleanerProgramPath: getEnv("CLEANER_PROGRAM_PATH", "internal/cleaner/testdata/tutorial_cleaner.json"),
			DefaultProfile:     getEnv("CLEANER_DEFAULT_PROFILE", ""),
			SubjectProfiles:    getSubjectProfilesEnv("CLEANER_SUBJECT_PROFILES"),
			CacheBackend:       CacheBackend(getEnv("CACHE_BACKEND", string(CacheBackendFile))),
			CachePath:          getEnv("CACHE_PATH", "urlcleaner-cache.json"),
			CacheRead:          getBoolEnv("CACHE_READ", true),
			CacheWrite:         getBoolEnv("CACHE_WRITE", true),
			CacheDelay:         getBoolEnv("CACHE_DELAY", false),
			UnthreaderMode:     getEnv("UNTHREADER_MODE", "off"),
			NetworkingEnabled:  getBoolEnv("NETWORKING_ENABLED", true),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "urlcleaner"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWKs: JWKsConfig{
				EndpointURL:    getEnv("JWKS_ENDPOINT_URL", ""),
				CacheDuration:  getIntEnv("JWKS_CACHE_DURATION", 3600), // 1 hour
				RefreshPadding: getIntEnv("JWKS_REFRESH_PADDING", 300), // 5 minutes
			},
			PrivateKeyFilePath: getEnv("JWT_PRIVATE_KEY_FILE", ""),
		},
		AllowOrigins: strings.Split(getEnv("ALLOW_ORIGINS", "http://localhost:5173,http://localhost:3000"), ","),
		ServiceName:  getEnv("SERVICE_NAME", "urlcleaner-server"),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}

	return defaultValue
}

// getSubjectProfilesEnv parses "subject=profile,subject2=profile2" into a
// lookup table so a deployment can give specific JWT subjects (callers)
// a different default profile than CLEANER_DEFAULT_PROFILE without the
// caller needing to name one on every request.
func getSubjectProfilesEnv(key string) map[string]string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		sub, profile, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(sub)] = strings.TrimSpace(profile)
	}
	return out
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}

	return defaultValue
}
