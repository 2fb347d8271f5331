// Package github talks to GitHub on behalf of the gate: the OAuth web flow
// and the membership checks that decide whether a login may see the site.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sitegate/internal/config"
	"github.com/sitegate/internal/domain"
	"golang.org/x/oauth2"
)

// User is the subset of GET /user the gate keeps
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Client wraps the OAuth app configuration and the REST API base URL
type Client struct {
	oauth      *oauth2.Config
	apiURL     string
	httpClient *http.Client
}

// NewClient creates a client for the OAuth app in cfg. httpClient may be nil.
func NewClient(cfg config.GitHubOAuthConfig, redirectURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.ExchangeTimeout}
	}

	var scopes []string
	if cfg.RequiresMembership() {
		scopes = []string{"read:org"}
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.WebURL + "/login/oauth/authorize",
				TokenURL:  cfg.WebURL + "/login/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL:     cfg.APIURL,
		httpClient: httpClient,
	}
}

// AuthCodeURL returns GitHub's authorize URL carrying state
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token. A code GitHub
// rejects yields an auth failure, anything else a network error.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			return nil, domain.WrapAuthFailed("invalid or expired authorization code", err)
		}
		return nil, domain.WrapNetworkOperation("token exchange", err)
	}
	return tok, nil
}

// User fetches the authenticated user
func (c *Client) User(ctx context.Context, tok *oauth2.Token) (*User, error) {
	var u User
	status, err := c.getJSON(ctx, tok, "/user", &u)
	if err != nil {
		return nil, domain.WrapNetworkOperation("fetch user", err)
	}
	if status != http.StatusOK {
		return nil, domain.WrapNetworkOperation("fetch user", fmt.Errorf("unexpected status %d", status))
	}
	if u.Login == "" {
		return nil, domain.WrapNetworkOperation("fetch user", errors.New("response has no login"))
	}
	return &u, nil
}

type membership struct {
	State string `json:"state"`
}

// IsOrgMember reports whether the token's user is an active member of org
func (c *Client) IsOrgMember(ctx context.Context, tok *oauth2.Token, org string) (bool, error) {
	return c.activeMembership(ctx, tok, "/user/memberships/orgs/"+url.PathEscape(org))
}

// IsTeamMember reports whether login is an active member of the team with id
func (c *Client) IsTeamMember(ctx context.Context, tok *oauth2.Token, teamID int64, login string) (bool, error) {
	return c.activeMembership(ctx, tok, "/teams/"+strconv.FormatInt(teamID, 10)+"/memberships/"+url.PathEscape(login))
}

func (c *Client) activeMembership(ctx context.Context, tok *oauth2.Token, path string) (bool, error) {
	var m membership
	status, err := c.getJSON(ctx, tok, path, &m)
	if err != nil {
		return false, domain.WrapNetworkOperation("membership check", err)
	}

	switch status {
	case http.StatusOK:
		return m.State == "active", nil
	case http.StatusNotFound, http.StatusForbidden:
		// GitHub answers 404 for non-members and for resources the token cannot see
		return false, nil
	default:
		return false, domain.WrapNetworkOperation("membership check", fmt.Errorf("%s: unexpected status %d", path, status))
	}
}

// getJSON decodes a 200 response into out and returns the status code
func (c *Client) getJSON(ctx context.Context, tok *oauth2.Token, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	tok.SetAuthHeader(req)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<16))
		return res.StatusCode, nil
	}
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(out); err != nil {
		return res.StatusCode, fmt.Errorf("decode %s: %w", path, err)
	}
	return res.StatusCode, nil
}
