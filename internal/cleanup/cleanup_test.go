package cleanup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitegate/internal/logger"
	"github.com/sitegate/internal/session"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeExpired(context.Context, time.Time) (int, error) {
	p.calls.Add(1)
	return 3, p.err
}

func TestJanitor_SweepPurgesMemoryStore(t *testing.T) {
	store := session.NewMemoryStore(session.CookieOptions{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	now := time.Now()

	require.NoError(t, store.Save(httptest.NewRecorder(), req, &session.Session{
		Authenticated: true, Login: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, store.Save(httptest.NewRecorder(), req, &session.Session{
		Authenticated: true, Login: "stale", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	j := NewJanitor(store, "@every 1h", logger.Discard())
	result := j.Sweep(context.Background())

	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Purged)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, result, j.LastSweep())
}

func TestJanitor_SweepRecordsError(t *testing.T) {
	p := &countingPurger{err: errors.New("database is locked")}
	j := NewJanitor(p, "@every 1h", logger.Discard())

	result := j.Sweep(context.Background())
	assert.EqualError(t, result.Err, "database is locked")
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestJanitor_StartRejectsBadSchedule(t *testing.T) {
	j := NewJanitor(&countingPurger{}, "every now and then", logger.Discard())
	assert.Error(t, j.Start())
}

func TestJanitor_RunsOnSchedule(t *testing.T) {
	p := &countingPurger{}
	j := NewJanitor(p, "@every 1s", logger.Discard())
	require.NoError(t, j.Start())
	defer j.Stop()

	assert.Eventually(t, func() bool { return p.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
}
