package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	TokenFormatJWT    = "jwt"
	TokenFormatPaseto = "paseto"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Env            string
	Port           string
	DBURL          string
	RedisAddress   string
	TokenSecret    string
	TokenFormat    string
	SymmetricKey   string
	MediaRoot      string
	MediaURL       string
	MaxExtracted   int64
	ProcessDelay   time.Duration
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	Session        SessionConfig
}

// SessionConfig is the cookie and token policy of the session boundary.
type SessionConfig struct {
	AccessCookie    string
	RefreshCookie   string
	CSRFCookie      string
	CSRFHeader      string
	RoleCookie      string
	CookiePath      string
	CookieDomain    string
	Secure          bool
	HTTPOnly        bool
	SameSite        http.SameSite
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration
	LogoutPath      string
}

// DefaultSessionConfig mirrors the defaults applied by Load.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		AccessCookie:    "access_token",
		RefreshCookie:   "refresh_token",
		CSRFCookie:      "csrftoken",
		CSRFHeader:      "X-CSRFToken",
		RoleCookie:      "user_role",
		CookiePath:      "/",
		HTTPOnly:        true,
		SameSite:        http.SameSiteLaxMode,
		AccessLifetime:  15 * time.Minute,
		RefreshLifetime: 7 * 24 * time.Hour,
		LogoutPath:      "/api/logout/",
	}
}

// IsDev reports whether the server runs in development mode.
func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}

// Load reads the configuration from the environment and an optional .env file.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "production")
	v.SetDefault("PORT", "8930")
	v.SetDefault("TOKEN_FORMAT", TokenFormatJWT)
	v.SetDefault("MEDIA_ROOT", "./media")
	v.SetDefault("MEDIA_URL", "/media/")
	v.SetDefault("MAX_EXTRACTED_SIZE", int64(4<<30))
	v.SetDefault("PROCESS_DELAY", "2s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 15)
	v.SetDefault("RATE_LIMIT_BURST", 30)

	defaults := DefaultSessionConfig()
	v.SetDefault("AUTH_COOKIE", defaults.AccessCookie)
	v.SetDefault("AUTH_COOKIE_REFRESH", defaults.RefreshCookie)
	v.SetDefault("CSRF_COOKIE_NAME", defaults.CSRFCookie)
	v.SetDefault("CSRF_HEADER_NAME", defaults.CSRFHeader)
	v.SetDefault("ROLE_COOKIE_NAME", defaults.RoleCookie)
	v.SetDefault("AUTH_COOKIE_PATH", defaults.CookiePath)
	v.SetDefault("AUTH_COOKIE_SECURE", false)
	v.SetDefault("AUTH_COOKIE_HTTP_ONLY", defaults.HTTPOnly)
	v.SetDefault("AUTH_COOKIE_SAMESITE", "Lax")
	v.SetDefault("ACCESS_TOKEN_LIFETIME", defaults.AccessLifetime.String())
	v.SetDefault("REFRESH_TOKEN_LIFETIME", defaults.RefreshLifetime.String())

	// A missing .env file is fine, the environment is enough.
	_ = v.ReadInConfig()

	sameSite, err := ParseSameSite(v.GetString("AUTH_COOKIE_SAMESITE"))
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		Env:            v.GetString("ENV"),
		Port:           v.GetString("PORT"),
		DBURL:          v.GetString("DB_URL"),
		RedisAddress:   v.GetString("REDIS_URL"),
		TokenSecret:    v.GetString("TOKEN_SECRET"),
		TokenFormat:    strings.ToLower(v.GetString("TOKEN_FORMAT")),
		SymmetricKey:   v.GetString("SYMMETRIC_KEY"),
		MediaRoot:      v.GetString("MEDIA_ROOT"),
		MediaURL:       v.GetString("MEDIA_URL"),
		MaxExtracted:   v.GetInt64("MAX_EXTRACTED_SIZE"),
		ProcessDelay:   v.GetDuration("PROCESS_DELAY"),
		CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),
		RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		Session: SessionConfig{
			AccessCookie:    v.GetString("AUTH_COOKIE"),
			RefreshCookie:   v.GetString("AUTH_COOKIE_REFRESH"),
			CSRFCookie:      v.GetString("CSRF_COOKIE_NAME"),
			CSRFHeader:      v.GetString("CSRF_HEADER_NAME"),
			RoleCookie:      v.GetString("ROLE_COOKIE_NAME"),
			CookiePath:      v.GetString("AUTH_COOKIE_PATH"),
			CookieDomain:    v.GetString("AUTH_COOKIE_DOMAIN"),
			Secure:          v.GetBool("AUTH_COOKIE_SECURE"),
			HTTPOnly:        v.GetBool("AUTH_COOKIE_HTTP_ONLY"),
			SameSite:        sameSite,
			AccessLifetime:  v.GetDuration("ACCESS_TOKEN_LIFETIME"),
			RefreshLifetime: v.GetDuration("REFRESH_TOKEN_LIFETIME"),
			LogoutPath:      defaults.LogoutPath,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *AppConfig) Validate() error {
	if c.DBURL == "" {
		return errors.New("missing DB_URL environment variable")
	}
	if c.RedisAddress == "" {
		return errors.New("missing REDIS_URL environment variable")
	}
	switch c.TokenFormat {
	case TokenFormatJWT:
		if c.TokenSecret == "" {
			return errors.New("missing TOKEN_SECRET environment variable")
		}
	case TokenFormatPaseto:
		if len(c.SymmetricKey) != 32 {
			return fmt.Errorf("SYMMETRIC_KEY must be 32 bytes long, got %d", len(c.SymmetricKey))
		}
	default:
		return fmt.Errorf("unknown TOKEN_FORMAT %q", c.TokenFormat)
	}
	if c.Session.AccessLifetime <= 0 || c.Session.RefreshLifetime <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.MaxExtracted <= 0 {
		return errors.New("MAX_EXTRACTED_SIZE must be positive")
	}
	if c.ProcessDelay < 0 {
		return errors.New("PROCESS_DELAY must not be negative")
	}
	if !strings.HasPrefix(c.MediaURL, "/") || !strings.HasSuffix(c.MediaURL, "/") {
		return fmt.Errorf("MEDIA_URL must start and end with a slash, got %q", c.MediaURL)
	}
	return nil
}

// ParseSameSite maps the textual SameSite setting to its http value.
func ParseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(value) {
	case "lax", "":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("unknown AUTH_COOKIE_SAMESITE value %q", value)
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
