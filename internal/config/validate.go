package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"

	"github.com/robfig/cron/v3"
	"github.com/sitegate/internal/constants"
	"github.com/sitegate/internal/domain"
	"gopkg.in/yaml.v3"
)

// siteFile mirrors the part of a jekyll _config.yml the gate cares about
type siteFile struct {
	JekyllAuth struct {
		Whitelist []string `yaml:"whitelist"`
		SSL       bool     `yaml:"ssl"`
	} `yaml:"jekyll_auth"`
}

// ApplySiteConfig merges the jekyll_auth section of the site config into c.
// A missing file is not an error; most sites have no jekyll_auth section.
func (c *Config) ApplySiteConfig() error {
	if c.SiteConfig == "" {
		return nil
	}
	data, err := os.ReadFile(c.SiteConfig)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return domain.WrapConfigError("SITE_CONFIG", err)
	}

	var site siteFile
	if err := yaml.Unmarshal(data, &site); err != nil {
		return domain.WrapConfigError("SITE_CONFIG", err)
	}

	c.Whitelist = append(c.Whitelist, site.JekyllAuth.Whitelist...)
	if site.JekyllAuth.SSL {
		c.EnforceSSL = true
	}
	return nil
}

// Validate checks everything the server needs before it can accept a request.
// All returned errors are ConfigErrors.
func (c *Config) Validate() error {
	if c.Auth.GitHub.ClientID == "" {
		return domain.WrapConfigError("GITHUB_CLIENT_ID", errors.New("is required"))
	}
	if c.Auth.GitHub.ClientSecret == "" {
		return domain.WrapConfigError("GITHUB_CLIENT_SECRET", errors.New("is required"))
	}

	for _, raw := range []struct{ key, value string }{
		{"AUTH_BASE_URL", c.Auth.BaseURL},
		{"GITHUB_WEB_URL", c.Auth.GitHub.WebURL},
		{"GITHUB_API_URL", c.Auth.GitHub.APIURL},
	} {
		u, err := url.Parse(raw.value)
		if err != nil {
			return domain.WrapConfigError(raw.key, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return domain.WrapConfigError(raw.key, fmt.Errorf("%q is not an absolute http(s) URL", raw.value))
		}
	}

	switch c.Session.Store {
	case constants.SessionStoreCookie, constants.SessionStoreMemory, constants.SessionStoreSQLite:
	default:
		return domain.WrapConfigError("SESSION_STORE", fmt.Errorf("unknown store %q", c.Session.Store))
	}

	if c.Session.Store != constants.SessionStoreCookie {
		if _, err := cron.ParseStandard(c.Session.CleanupSchedule); err != nil {
			return domain.WrapConfigError("SESSION_CLEANUP_SCHEDULE", err)
		}
	}

	if _, err := c.CompileWhitelist(); err != nil {
		return err
	}

	return ValidateStaticRoot(c.StaticRoot)
}

// CompileWhitelist compiles the whitelist patterns. Patterns are unanchored,
// so "^/public" and "drafts" both behave as written.
func (c *Config) CompileWhitelist() ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(c.Whitelist))
	for _, p := range c.Whitelist {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, domain.WrapConfigError("jekyll_auth.whitelist", err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// ValidateStaticRoot fails unless root exists and is a directory
func ValidateStaticRoot(root string) error {
	if root == "" {
		return domain.WrapConfigError("STATIC_ROOT", errors.New("is required"))
	}
	info, err := os.Stat(root)
	if err != nil {
		return domain.WrapConfigError("STATIC_ROOT", err)
	}
	if !info.IsDir() {
		return domain.WrapConfigError("STATIC_ROOT", fmt.Errorf("%s is not a directory", root))
	}
	return nil
}
