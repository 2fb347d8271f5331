package session

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/auth/token"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/sitegate/internal/constants"
)

const (
	attrUserID = "uid"
	attrName   = "name"
	attrOrgs   = "orgs"
	attrTeams  = "teams"
)

// CookieStore keeps the session in a signed JWT. Nothing is stored server side,
// so the access token is dropped: the cookie is signed, not encrypted.
type CookieStore struct {
	tokens *token.Service
	cookie CookieOptions
	now    func() time.Time
}

// NewCookieStore creates a stateless store signing tokens with secret
func NewCookieStore(secret string, ttl time.Duration, cookie CookieOptions) *CookieStore {
	if cookie.Name == "" {
		cookie.Name = constants.SessionCookieName
	}
	return &CookieStore{
		tokens: token.NewService(token.Opts{
			SecretReader: token.SecretFunc(func(string) (string, error) {
				return secret, nil
			}),
			TokenDuration: ttl,
			Issuer:        constants.Issuer,
		}),
		cookie: cookie,
		now:    time.Now,
	}
}

// Load reads the token from the session cookie or an Authorization bearer header
func (cs *CookieStore) Load(r *http.Request) (*Session, error) {
	raw := cs.extractToken(r)
	if raw == "" {
		return nil, ErrNoSession
	}

	claims, err := cs.tokens.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if claims.User == nil || claims.Handshake != nil {
		return nil, fmt.Errorf("%w: token carries no user", ErrNoSession)
	}

	s := sessionFromClaims(claims)
	if s.Expired(cs.now()) {
		return nil, fmt.Errorf("%w: expired", ErrNoSession)
	}
	return s, nil
}

// Save signs s into the session cookie
func (cs *CookieStore) Save(w http.ResponseWriter, _ *http.Request, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	raw, err := cs.tokens.Token(claimsFromSession(s))
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}
	cs.cookie.write(w, raw, s.ExpiresAt)
	return nil
}

// Destroy clears the session cookie
func (cs *CookieStore) Destroy(w http.ResponseWriter, _ *http.Request) error {
	cs.cookie.clear(w)
	return nil
}

func (cs *CookieStore) extractToken(r *http.Request) string {
	if v := cs.cookie.read(r); v != "" {
		return v
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func claimsFromSession(s *Session) token.Claims {
	teams := make([]interface{}, 0, len(s.Teams))
	for _, id := range s.Teams {
		teams = append(teams, id)
	}
	orgs := make([]interface{}, 0, len(s.Organizations))
	for _, org := range s.Organizations {
		orgs = append(orgs, org)
	}

	return token.Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        s.ID,
			Issuer:    constants.Issuer,
			Subject:   s.Login,
			IssuedAt:  s.CreatedAt.Unix(),
			ExpiresAt: s.ExpiresAt.Unix(),
		},
		User: &token.User{
			ID:      "github_" + strconv.FormatInt(s.UserID, 10),
			Name:    s.Login,
			Picture: s.AvatarURL,
			Attributes: map[string]interface{}{
				attrUserID: s.UserID,
				attrName:   s.Name,
				attrOrgs:   orgs,
				attrTeams:  teams,
			},
		},
	}
}

// sessionFromClaims reverses claimsFromSession. Attribute values have been
// through JSON, so numbers arrive as float64 and slices as []interface{}.
func sessionFromClaims(claims token.Claims) *Session {
	attrs := claims.User.Attributes
	s := &Session{
		ID:            claims.Id,
		Authenticated: true,
		Login:         claims.User.Name,
		AvatarURL:     claims.User.Picture,
		CreatedAt:     time.Unix(claims.IssuedAt, 0),
		ExpiresAt:     time.Unix(claims.ExpiresAt, 0),
	}

	if v, ok := attrs[attrUserID].(float64); ok {
		s.UserID = int64(v)
	}
	if v, ok := attrs[attrName].(string); ok {
		s.Name = v
	}
	if list, ok := attrs[attrOrgs].([]interface{}); ok {
		for _, item := range list {
			if org, ok := item.(string); ok {
				s.Organizations = append(s.Organizations, org)
			}
		}
	}
	if list, ok := attrs[attrTeams].([]interface{}); ok {
		for _, item := range list {
			if id, ok := item.(float64); ok {
				s.Teams = append(s.Teams, int64(id))
			}
		}
	}
	return s
}
