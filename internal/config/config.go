package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sitegate/internal/constants"
	"github.com/sitegate/internal/domain"
)

// Config holds the application configuration
type Config struct {
	Environment   string
	LogJSON       bool
	ServerAddress string
	StaticRoot    string
	SiteConfig    string // path to the jekyll _config.yml carrying the jekyll_auth section
	EnforceSSL    bool
	Whitelist     []string // regexes of paths served without a session
	Auth          AuthConfig
	Session       SessionConfig
	Metrics       MetricsConfig
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	GitHub       GitHubOAuthConfig
	BaseURL      string // External base URL for OAuth callbacks (e.g., http://localhost:4000)
	SecureCookie bool
	CookieDomain string
}

// GitHubOAuthConfig holds GitHub OAuth configuration
type GitHubOAuthConfig struct {
	ClientID        string
	ClientSecret    string
	Organization    string
	TeamIDs         []int64
	AllowedUsers    []string
	WebURL          string // https://github.com or a GitHub Enterprise host
	APIURL          string
	ExchangeTimeout time.Duration
}

// SessionConfig holds session store configuration
type SessionConfig struct {
	Store           string
	Secret          string
	TTL             time.Duration
	DatabasePath    string
	CleanupSchedule string
}

// MetricsConfig holds prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// CallbackURL is the redirect_uri registered with the GitHub OAuth app
func (c *Config) CallbackURL() string {
	return strings.TrimSuffix(c.Auth.BaseURL, "/") + constants.CallbackPath
}

// RequiresMembership reports whether an organization or team check is configured
func (g GitHubOAuthConfig) RequiresMembership() bool {
	return g.Organization != "" || len(g.TeamIDs) > 0
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	environment := getEnv("APP_ENV", "production")

	timeout, err := parseDuration("OAUTH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	ttl, err := parseDuration("SESSION_TTL", "24h")
	if err != nil {
		return nil, err
	}

	teamIDs, err := parseTeamIDs(getEnv("GITHUB_TEAM_IDS", os.Getenv("GITHUB_TEAM_ID")))
	if err != nil {
		return nil, err
	}

	return &Config{
		Environment:   environment,
		LogJSON:       getEnv("LOG_JSON", strconv.FormatBool(environment != "development")) == "true",
		ServerAddress: getEnv("SERVER_ADDRESS", ":4000"),
		StaticRoot:    getEnv("STATIC_ROOT", "_site"),
		SiteConfig:    getEnv("SITE_CONFIG", "_config.yml"),
		EnforceSSL:    getEnv("ENFORCE_SSL", "false") == "true",
		Auth: AuthConfig{
			BaseURL:      getEnv("AUTH_BASE_URL", "http://localhost:4000"),
			SecureCookie: getEnv("AUTH_SECURE_COOKIE", "false") == "true",
			CookieDomain: os.Getenv("AUTH_COOKIE_DOMAIN"),
			GitHub: GitHubOAuthConfig{
				ClientID:        os.Getenv("GITHUB_CLIENT_ID"),
				ClientSecret:    os.Getenv("GITHUB_CLIENT_SECRET"),
				Organization:    getEnv("GITHUB_ORGANIZATION", os.Getenv("GITHUB_ORG_NAME")),
				TeamIDs:         teamIDs,
				AllowedUsers:    parseCommaSeparatedList(os.Getenv("GITHUB_ALLOWED_USERS")),
				WebURL:          strings.TrimSuffix(getEnv("GITHUB_WEB_URL", "https://github.com"), "/"),
				APIURL:          strings.TrimSuffix(getEnv("GITHUB_API_URL", "https://api.github.com"), "/"),
				ExchangeTimeout: timeout,
			},
		},
		Session: SessionConfig{
			Store:           getEnv("SESSION_STORE", constants.SessionStoreCookie),
			Secret:          os.Getenv("SESSION_SECRET"),
			TTL:             ttl,
			DatabasePath:    getEnv("SESSION_DATABASE_PATH", "./data/sessions.db"),
			CleanupSchedule: getEnv("SESSION_CLEANUP_SCHEDULE", "@every 10m"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnv("METRICS_ENABLED", "false") == "true",
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}, nil
}

// parseCommaSeparatedList splits a comma-separated string into a slice
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return []string{}
	}

	items := strings.Split(s, ",")
	result := make([]string, 0, len(items))

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}

	return result
}

func parseTeamIDs(s string) ([]int64, error) {
	items := parseCommaSeparatedList(s)
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, domain.WrapConfigError("GITHUB_TEAM_IDS", fmt.Errorf("invalid team id %q", item))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, domain.WrapConfigError(key, err)
	}
	if d <= 0 {
		return 0, domain.WrapConfigError(key, errors.New("must be positive"))
	}
	return d, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
