package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/sitegate/internal/config"
	"github.com/sitegate/internal/constants"
	"github.com/sitegate/internal/db"
)

// Open builds the store selected by cfg.Session.Store. The returned close
// function releases the store's resources and is never nil.
func Open(cfg *config.Config, logger *slog.Logger) (Store, func() error, error) {
	noop := func() error { return nil }
	cookie := CookieOptions{
		Domain: cfg.Auth.CookieDomain,
		Secure: cfg.Auth.SecureCookie,
	}

	switch cfg.Session.Store {
	case constants.SessionStoreCookie:
		secret := cfg.Session.Secret
		if secret == "" {
			var err error
			if secret, err = RandomSecret(); err != nil {
				return nil, noop, err
			}
			logger.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
		}
		return NewCookieStore(secret, cfg.Session.TTL, cookie), noop, nil

	case constants.SessionStoreMemory:
		return NewMemoryStore(cookie), noop, nil

	case constants.SessionStoreSQLite:
		database, err := db.Init(cfg.Session.DatabasePath)
		if err != nil {
			return nil, noop, fmt.Errorf("open session database %s: %w", cfg.Session.DatabasePath, err)
		}
		return NewSQLStore(database, cookie), database.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

// RandomSecret returns 32 random bytes, hex encoded
func RandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
