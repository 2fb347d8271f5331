package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sitegate/internal/db"
)

// SQLStore keeps sessions in SQLite so they survive restarts
type SQLStore struct {
	db     *db.DB
	cookie CookieOptions
	now    func() time.Time
}

// NewSQLStore creates a store on an initialised database
func NewSQLStore(database *db.DB, cookie CookieOptions) *SQLStore {
	if cookie.Name == "" {
		cookie.Name = SessionIDCookieName
	}
	return &SQLStore{db: database, cookie: cookie, now: time.Now}
}

func (ss *SQLStore) Load(r *http.Request) (*Session, error) {
	id := ss.cookie.read(r)
	if id == "" {
		return nil, ErrNoSession
	}

	row, err := ss.db.GetSession(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	s, err := sessionFromRow(row)
	if err != nil {
		return nil, err
	}
	if s.Expired(ss.now()) {
		return nil, fmt.Errorf("%w: expired", ErrNoSession)
	}
	return s, nil
}

func (ss *SQLStore) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	row, err := rowFromSession(s)
	if err != nil {
		return err
	}
	if err := ss.db.SaveSession(r.Context(), row); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	ss.cookie.write(w, s.ID, s.ExpiresAt)
	return nil
}

func (ss *SQLStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	ss.cookie.clear(w)
	if id := ss.cookie.read(r); id != "" {
		if err := ss.db.DeleteSession(r.Context(), id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return nil
}

func (ss *SQLStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := ss.db.DeleteExpiredSessions(ctx, now)
	return int(n), err
}

func rowFromSession(s *Session) (*db.SessionRow, error) {
	orgs, err := json.Marshal(nonNil(s.Organizations))
	if err != nil {
		return nil, fmt.Errorf("encode organizations: %w", err)
	}
	teams, err := json.Marshal(nonNil(s.Teams))
	if err != nil {
		return nil, fmt.Errorf("encode teams: %w", err)
	}

	return &db.SessionRow{
		ID:            s.ID,
		UserID:        s.UserID,
		Login:         s.Login,
		Name:          s.Name,
		AvatarURL:     s.AvatarURL,
		AccessToken:   s.AccessToken,
		Organizations: string(orgs),
		Teams:         string(teams),
		CreatedAt:     s.CreatedAt.Unix(),
		ExpiresAt:     s.ExpiresAt.Unix(),
	}, nil
}

func sessionFromRow(row *db.SessionRow) (*Session, error) {
	s := &Session{
		ID:            row.ID,
		Authenticated: true,
		UserID:        row.UserID,
		Login:         row.Login,
		Name:          row.Name,
		AvatarURL:     row.AvatarURL,
		AccessToken:   row.AccessToken,
		CreatedAt:     time.Unix(row.CreatedAt, 0),
		ExpiresAt:     time.Unix(row.ExpiresAt, 0),
	}
	if err := json.Unmarshal([]byte(row.Organizations), &s.Organizations); err != nil {
		return nil, fmt.Errorf("decode organizations of session %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Teams), &s.Teams); err != nil {
		return nil, fmt.Errorf("decode teams of session %s: %w", row.ID, err)
	}
	return s, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
