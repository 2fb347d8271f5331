// Package session holds the proof of a completed GitHub login and the stores
// that keep it between requests.
//
// Three stores share the Store interface:
//
//   - CookieStore keeps the whole session in a signed JWT cookie (stateless)
//   - MemoryStore keeps sessions in process memory behind an opaque id cookie
//   - SQLStore keeps sessions in SQLite behind an opaque id cookie
//
// MemoryStore and SQLStore also implement Purger so expired rows can be swept.
package session

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"
)

// SessionIDCookieName carries the opaque id used by the server-side stores
const SessionIDCookieName = "sitegate_session"

// ErrNoSession is returned by Store.Load when the request carries no usable session
var ErrNoSession = errors.New("no session")

// Session is a server-tracked proof of prior successful authentication
type Session struct {
	ID            string
	Authenticated bool
	UserID        int64
	Login         string
	Name          string
	AvatarURL     string
	AccessToken   string   // not persisted by CookieStore
	Organizations []string // organizations the user was verified against
	Teams         []int64  // teams the user was verified against
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Valid reports whether the session proves an authenticated, unexpired login
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.Authenticated && !s.Expired(now)
}

// MemberOf reports whether org membership was verified at login.
// GitHub organization logins are case-insensitive.
func (s *Session) MemberOf(org string) bool {
	for _, o := range s.Organizations {
		if strings.EqualFold(o, org) {
			return true
		}
	}
	return false
}

// InTeam reports whether team membership was verified at login
func (s *Session) InTeam(id int64) bool {
	return slices.Contains(s.Teams, id)
}

func (s *Session) clone() *Session {
	c := *s
	c.Organizations = slices.Clone(s.Organizations)
	c.Teams = slices.Clone(s.Teams)
	return &c
}

// Store loads, saves and destroys sessions for a request
type Store interface {
	// Load returns ErrNoSession (possibly wrapped) when there is no valid session
	Load(r *http.Request) (*Session, error)
	Save(w http.ResponseWriter, r *http.Request, s *Session) error
	Destroy(w http.ResponseWriter, r *http.Request) error
}

// Purger is implemented by stores that keep server-side state
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// CookieOptions controls the cookie every store writes
type CookieOptions struct {
	Name   string
	Domain string
	Secure bool
}

func (o CookieOptions) write(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    value,
		Path:     "/",
		Domain:   o.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (o CookieOptions) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     "/",
		Domain:   o.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (o CookieOptions) read(r *http.Request) string {
	if cookie, err := r.Cookie(o.Name); err == nil {
		return cookie.Value
	}
	return ""
}
