package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the gateway process.
// Values come from env (optionally seeded from a .env file).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Session  SessionConfig
	Upload   UploadConfig
	Liveness LivenessConfig
	DB       DBConfig
	Redis    RedisConfig
}

type AppConfig struct {
	Env  string
	Port int

	// FrontendDir is an optional directory of prebuilt pages served behind the role gate.
	FrontendDir string
}

// BackendConfig describes the external hackathon REST API.
// BaseURL is checked lazily by the backend client, not here.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig controls the signed session cookie.
// Secret is checked lazily by the session manager, not here.
type SessionConfig struct {
	Secret       string
	Issuer       string
	TTL          time.Duration
	RefreshTTL   time.Duration
	CookieSecure bool
}

type UploadConfig struct {
	MaxProjectBytes int64
	MaxAvatarBytes  int64
	MaxConcurrent   int
	// MaxBodyBytes caps how much of one multipart body is read at all.
	MaxBodyBytes int64
}

type LivenessConfig struct {
	Interval    time.Duration
	Concurrency int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

// Load reads configuration from the environment.
// A .env file in the working directory is applied first when present; real env vars win.
func Load() (Config, error) {
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.FrontendDir = strings.TrimSpace(os.Getenv("FRONTEND_DIR"))

	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_BASE_URL")), "/")
	c.Backend.Timeout = optionalDuration("BACKEND_TIMEOUT", &parseErrs)

	c.Session.Secret = os.Getenv("SESSION_SECRET")
	c.Session.Issuer = strings.TrimSpace(os.Getenv("SESSION_ISSUER"))
	c.Session.TTL = optionalDuration("SESSION_TTL", &parseErrs)
	c.Session.RefreshTTL = optionalDuration("SESSION_REFRESH_TTL", &parseErrs)
	c.Session.CookieSecure = optionalBool("SESSION_COOKIE_SECURE", &parseErrs)

	c.Upload.MaxProjectBytes = int64(optionalInt("UPLOAD_MAX_PROJECT_BYTES", &parseErrs))
	c.Upload.MaxAvatarBytes = int64(optionalInt("UPLOAD_MAX_AVATAR_BYTES", &parseErrs))
	c.Upload.MaxConcurrent = optionalInt("UPLOAD_MAX_CONCURRENT", &parseErrs)
	c.Upload.MaxBodyBytes = int64(optionalInt("UPLOAD_MAX_BODY_BYTES", &parseErrs))

	c.Liveness.Interval = optionalDuration("LIVENESS_INTERVAL", &parseErrs)
	c.Liveness.Concurrency = optionalInt("LIVENESS_CONCURRENCY", &parseErrs)

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port = optionalInt("DB_PORT", &parseErrs)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port = optionalInt("REDIS_PORT", &parseErrs)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration and fills in defaults.
// BACKEND_BASE_URL and SESSION_SECRET are intentionally absent from this list;
// their components report them on first use.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 15 * time.Second
	}

	if c.Session.TTL <= 0 {
		c.Session.TTL = time.Hour
	}
	if c.Session.RefreshTTL <= 0 {
		c.Session.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.Session.RefreshTTL <= c.Session.TTL {
		errs = append(errs, errors.New("SESSION_REFRESH_TTL must be greater than SESSION_TTL"))
	}
	if c.IsProduction() {
		c.Session.CookieSecure = true
	}

	if c.Upload.MaxProjectBytes <= 0 {
		c.Upload.MaxProjectBytes = 10 << 20
	}
	if c.Upload.MaxAvatarBytes <= 0 {
		c.Upload.MaxAvatarBytes = 2 << 20
	}
	if c.Upload.MaxConcurrent <= 0 {
		c.Upload.MaxConcurrent = 2
	}
	if c.Upload.MaxBodyBytes <= 0 {
		c.Upload.MaxBodyBytes = 256 << 20
	}

	if c.Liveness.Interval <= 0 {
		c.Liveness.Interval = 60 * time.Second
	}
	if c.Liveness.Concurrency <= 0 {
		c.Liveness.Concurrency = 8
	}

	if c.HasDB() {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("DB_HOST is required in production"))
	}

	if c.HasRedis() {
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
		if c.Redis.Port < 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("REDIS_HOST is required in production"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HasDB() bool { return c.DB.Host != "" }

func (c Config) HasRedis() bool { return c.Redis.Host != "" }

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer, got %q", key, v))
		return 0
	}
	return n
}

func optionalDuration(key string, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a duration, got %q", key, v))
		return 0
	}
	return d
}

func optionalBool(key string, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
		return false
	}
	return b
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
