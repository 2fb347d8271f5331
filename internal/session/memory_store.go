package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on restart
// and are not shared between replicas.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cookie   CookieOptions
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(cookie CookieOptions) *MemoryStore {
	if cookie.Name == "" {
		cookie.Name = SessionIDCookieName
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		cookie:   cookie,
		now:      time.Now,
	}
}

func (ms *MemoryStore) Load(r *http.Request) (*Session, error) {
	id := ms.cookie.read(r)
	if id == "" {
		return nil, ErrNoSession
	}

	ms.mu.RLock()
	s, ok := ms.sessions[id]
	ms.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}

	if s.Expired(ms.now()) {
		ms.mu.Lock()
		delete(ms.sessions, id)
		ms.mu.Unlock()
		return nil, ErrNoSession
	}
	return s.clone(), nil
}

func (ms *MemoryStore) Save(w http.ResponseWriter, _ *http.Request, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	ms.mu.Lock()
	ms.sessions[s.ID] = s.clone()
	ms.mu.Unlock()

	ms.cookie.write(w, s.ID, s.ExpiresAt)
	return nil
}

func (ms *MemoryStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	if id := ms.cookie.read(r); id != "" {
		ms.mu.Lock()
		delete(ms.sessions, id)
		ms.mu.Unlock()
	}
	ms.cookie.clear(w)
	return nil
}

// PurgeExpired drops every session expired at now
func (ms *MemoryStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	purged := 0
	for id, s := range ms.sessions {
		if s.Expired(now) {
			delete(ms.sessions, id)
			purged++
		}
	}
	return purged, nil
}

// Len returns the number of stored sessions, expired ones included
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.sessions)
}
