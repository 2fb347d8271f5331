// Package gate enforces GitHub authentication in front of the static site.
//
// Unauthenticated requests are sent through the OAuth web flow. The state
// token and the originally requested path travel in a short-lived signed
// handshake cookie; on callback the code is exchanged, the user is checked
// against the configured allowed users, teams and organization, and a session
// is saved before redirecting back.
package gate

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pkgz/auth/token"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sitegate/internal/config"
	"github.com/sitegate/internal/constants"
	"github.com/sitegate/internal/domain"
	"github.com/sitegate/internal/github"
	"github.com/sitegate/internal/httputil"
	"github.com/sitegate/internal/metrics"
	"github.com/sitegate/internal/session"
	"github.com/sitegate/internal/validation"
)

// SessionContextKey is the gin context key holding the *session.Session of an
// authenticated request
const SessionContextKey = "session"

// Provider is the identity provider the gate authenticates against
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	User(ctx context.Context, tok *oauth2.Token) (*github.User, error)
	IsOrgMember(ctx context.Context, tok *oauth2.Token, org string) (bool, error)
	IsTeamMember(ctx context.Context, tok *oauth2.Token, teamID int64, login string) (bool, error)
}

// Options configures a Gate
type Options struct {
	Provider  Provider
	Store     session.Store
	GitHub    config.GitHubOAuthConfig
	Whitelist []*regexp.Regexp

	SessionTTL time.Duration

	// HandshakeSecret signs the handshake cookie; a random one is used when empty
	HandshakeSecret string
	SecureCookie    bool
	CookieDomain    string

	Logger  *slog.Logger
	Metrics *metrics.Metrics // may be nil
}

// Gate holds the auth middleware and the /auth handlers
type Gate struct {
	provider   Provider
	store      session.Store
	github     config.GitHubOAuthConfig
	whitelist  []*regexp.Regexp
	ttl        time.Duration
	handshakes *token.Service
	secure     bool
	domain     string
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New creates a Gate
func New(opts Options) (*Gate, error) {
	if opts.Provider == nil || opts.Store == nil {
		return nil, errors.New("gate: provider and store are required")
	}

	secret := opts.HandshakeSecret
	if secret == "" {
		var err error
		if secret, err = session.RandomSecret(); err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Gate{
		provider:  opts.Provider,
		store:     opts.Store,
		github:    opts.GitHub,
		whitelist: opts.Whitelist,
		ttl:       ttl,
		handshakes: token.NewService(token.Opts{
			SecretReader: token.SecretFunc(func(string) (string, error) {
				return secret, nil
			}),
			TokenDuration: constants.HandshakeTTL,
			Issuer:        constants.Issuer,
		}),
		secure:  opts.SecureCookie,
		domain:  opts.CookieDomain,
		logger:  logger,
		metrics: opts.Metrics,
		now:     time.Now,
	}, nil
}

// Require lets whitelisted paths and requests with a valid session through and
// sends everything else to GitHub
func (g *Gate) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.whitelisted(c.Request.URL.Path) {
			c.Next()
			return
		}

		s, err := g.store.Load(c.Request)
		if err == nil && s.Valid(g.now()) {
			c.Set(SessionContextKey, s)
			c.Next()
			return
		}
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			g.logger.WarnContext(c.Request.Context(), "failed to load session", "error", err)
		}

		g.startLogin(c, c.Request.URL.RequestURI())
	}
}

// Login starts the OAuth flow explicitly. ?from= names the page to return to.
func (g *Gate) Login(c *gin.Context) {
	from := validation.SafeRedirectTarget(c.Query("from"))

	if s, err := g.store.Load(c.Request); err == nil && s.Valid(g.now()) {
		c.Redirect(http.StatusFound, from)
		return
	}
	g.startLogin(c, from)
}

// Callback completes the OAuth flow
func (g *Gate) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	// single use: the handshake is cleared whatever the outcome
	handshake, hsErr := g.readHandshake(c.Request)
	g.clearHandshake(c.Writer)

	if reason := c.Query("error"); reason != "" {
		g.fail(c, domain.WrapAuthDenied("GitHub authorization was not granted", errors.New(reason)))
		return
	}
	if hsErr != nil {
		g.fail(c, domain.WrapAuthDenied("login attempt is invalid or has expired, please try again", hsErr))
		return
	}

	state := c.Query("state")
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(handshake.State)) != 1 {
		g.fail(c, domain.WrapAuthDenied("state mismatch, please try again", nil))
		return
	}

	code := c.Query("code")
	if code == "" {
		g.fail(c, domain.WrapAuthFailed("missing authorization code", nil))
		return
	}

	timeout := g.github.ExchangeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	tok, err := g.provider.Exchange(ctx, code)
	g.metrics.ObserveExchange(time.Since(start))
	if err != nil {
		g.fail(c, err)
		return
	}

	user, err := g.provider.User(ctx, tok)
	if err != nil {
		g.fail(c, err)
		return
	}

	s, err := g.authorize(ctx, tok, user)
	if err != nil {
		g.fail(c, err)
		return
	}

	if err := g.store.Save(c.Writer, c.Request, s); err != nil {
		g.metrics.AuthEvent(metrics.EventError)
		httputil.AbortWithError(c, fmt.Errorf("save session: %w", err))
		return
	}

	g.metrics.AuthEvent(metrics.EventLogin)
	g.logger.InfoContext(ctx, "user signed in", "login", s.Login, "orgs", s.Organizations, "teams", s.Teams)

	c.Redirect(http.StatusFound, validation.SafeRedirectTarget(handshake.From))
}

// Logout destroys the session and renders a confirmation page
func (g *Gate) Logout(c *gin.Context) {
	if err := g.store.Destroy(c.Writer, c.Request); err != nil {
		g.logger.WarnContext(c.Request.Context(), "failed to destroy session", "error", err)
	}
	g.metrics.AuthEvent(metrics.EventLogout)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(signedOutPage))
}

// SessionFrom returns the session Require stored on c
func SessionFrom(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(SessionContextKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*session.Session)
	return s, ok
}

func (g *Gate) whitelisted(p string) bool {
	if p == constants.LogoutPath {
		return true
	}
	for _, re := range g.whitelist {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

// startLogin writes a fresh handshake and redirects to GitHub's authorize endpoint
func (g *Gate) startLogin(c *gin.Context, from string) {
	state := uuid.NewString()
	now := g.now()

	raw, err := g.handshakes.Token(token.Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        state,
			Issuer:    constants.Issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(constants.HandshakeTTL).Unix(),
		},
		Handshake: &token.Handshake{State: state, From: from},
	})
	if err != nil {
		g.metrics.AuthEvent(metrics.EventError)
		httputil.AbortWithError(c, fmt.Errorf("sign handshake: %w", err))
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     constants.HandshakeCookieName,
		Value:    raw,
		Path:     "/",
		Domain:   g.domain,
		MaxAge:   int(constants.HandshakeTTL.Seconds()),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})

	g.metrics.AuthEvent(metrics.EventRedirect)
	c.Redirect(http.StatusFound, g.provider.AuthCodeURL(state))
	c.Abort()
}

func (g *Gate) readHandshake(r *http.Request) (*token.Handshake, error) {
	cookie, err := r.Cookie(constants.HandshakeCookieName)
	if err != nil {
		return nil, errors.New("no handshake cookie")
	}

	claims, err := g.handshakes.Parse(cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("parse handshake: %w", err)
	}
	if claims.Handshake == nil || claims.Handshake.State == "" {
		return nil, errors.New("token carries no handshake")
	}
	if claims.ExpiresAt <= g.now().Unix() {
		return nil, errors.New("handshake expired")
	}
	return claims.Handshake, nil
}

func (g *Gate) clearHandshake(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.HandshakeCookieName,
		Value:    "",
		Path:     "/",
		Domain:   g.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// authorize decides whether user may see the site and builds the session.
// An allowed user passes outright. Otherwise membership of any configured team
// or of the organization is required; with no checks configured and no allowed
// users list, every GitHub account passes.
func (g *Gate) authorize(ctx context.Context, tok *oauth2.Token, user *github.User) (*session.Session, error) {
	now := g.now()
	s := &session.Session{
		Authenticated: true,
		UserID:        user.ID,
		Login:         user.Login,
		Name:          user.Name,
		AvatarURL:     user.AvatarURL,
		AccessToken:   tok.AccessToken,
		CreatedAt:     now,
		ExpiresAt:     now.Add(g.ttl),
	}

	if g.allowedUser(user.Login) {
		return s, nil
	}

	if !g.github.RequiresMembership() {
		if len(g.github.AllowedUsers) > 0 {
			return nil, domain.WrapAuthDenied(fmt.Sprintf("%s is not allowed to access this site", user.Login), nil)
		}
		return s, nil
	}

	var checkErr error
	for _, id := range g.github.TeamIDs {
		ok, err := g.provider.IsTeamMember(ctx, tok, id, user.Login)
		if err != nil {
			g.logger.WarnContext(ctx, "team membership check failed", "team", id, "login", user.Login, "error", err)
			checkErr = err
			continue
		}
		if ok {
			s.Teams = append(s.Teams, id)
			return s, nil
		}
	}

	if org := g.github.Organization; org != "" {
		ok, err := g.provider.IsOrgMember(ctx, tok, org)
		switch {
		case err != nil:
			g.logger.WarnContext(ctx, "organization membership check failed", "org", org, "login", user.Login, "error", err)
			checkErr = err
		case ok:
			s.Organizations = append(s.Organizations, org)
			return s, nil
		}
	}

	if checkErr != nil {
		return nil, domain.WrapAuthDenied("could not verify membership with GitHub", checkErr)
	}
	return nil, domain.WrapAuthDenied(fmt.Sprintf("%s is not a member of the required organization or team", user.Login), nil)
}

func (g *Gate) allowedUser(login string) bool {
	for _, allowed := range g.github.AllowedUsers {
		if strings.EqualFold(allowed, login) {
			return true
		}
	}
	return false
}

func (g *Gate) fail(c *gin.Context, err error) {
	if domain.HTTPStatus(err) == http.StatusForbidden {
		g.metrics.AuthEvent(metrics.EventDenied)
	} else {
		g.metrics.AuthEvent(metrics.EventError)
	}
	httputil.AbortWithError(c, err)
}

const signedOutPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Signed out</title></head>
<body>
<p>You have been signed out.</p>
<p><a href="/">Sign in again</a></p>
</body>
</html>
`
