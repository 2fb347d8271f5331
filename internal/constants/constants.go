package constants

import "time"

// Route paths handled outside the gate
const (
	LoginPath    = "/auth/github/login"
	CallbackPath = "/auth/github/callback"
	LogoutPath   = "/auth/logout"
	HealthPath   = "/healthz"
)

// Session store kinds
const (
	SessionStoreCookie = "cookie"
	SessionStoreMemory = "memory"
	SessionStoreSQLite = "sqlite"
)

// Cookie names
const (
	// SessionCookieName matches the cookie name go-pkgz/auth uses for its JWT
	SessionCookieName   = "JWT"
	HandshakeCookieName = "sitegate_handshake"
)

// Timeout and interval constants
const (
	// HandshakeTTL bounds how long a user may take on GitHub's consent screen
	HandshakeTTL = 10 * time.Minute

	// ServerReadTimeout is the HTTP server read timeout
	ServerReadTimeout = 30 * time.Second

	// ServerWriteTimeout is the HTTP server write timeout
	ServerWriteTimeout = 120 * time.Second

	// ServerIdleTimeout is the HTTP server idle timeout
	ServerIdleTimeout = 120 * time.Second

	// ShutdownTimeout is how long in-flight requests get on SIGINT/SIGTERM
	ShutdownTimeout = 30 * time.Second
)

// Issuer is written into every token the gate signs
const Issuer = "sitegate"
