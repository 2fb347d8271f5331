package static

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitegate/internal/domain"
	"github.com/sitegate/internal/logger"
	"github.com/sitegate/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newSite builds the fixture site used by the original test helper
func newSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write := func(name, body string) {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	write("index.html", "My awesome site")
	write("some_dir/index.html", "My awesome directory")
	write("about.html", "About us")
	write("css/site.css", "body{}")
	return root
}

func newResponder(t *testing.T, root string) (*Responder, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	sr, err := New(root, logger.Discard(), m)
	require.NoError(t, err)
	return sr, m
}

func serve(sr *Responder, method, target string) *httptest.ResponseRecorder {
	engine := gin.New()
	engine.NoRoute(sr.Serve)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNew(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), logger.Discard(), nil)
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file, logger.Discard(), nil)
	assert.True(t, domain.IsConfigError(err))

	sr, err := New(newSite(t), logger.Discard(), nil)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(sr.Root()))
}

func TestResolve(t *testing.T) {
	root := newSite(t)
	sr, _ := newResponder(t, root)

	tests := []struct {
		path string
		want string
	}{
		{"/", "index.html"},
		{"/index.html", "index.html"},
		{"/some_dir/", "some_dir/index.html"},
		{"/some_dir", "some_dir/index.html"},
		{"/about", "about.html"},
		{"/css/site.css", "css/site.css"},
		{"/some_dir//index.html", "some_dir/index.html"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := sr.Resolve(tt.path)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(sr.Root(), filepath.FromSlash(tt.want)), got)
		})
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	sr, _ := newResponder(t, newSite(t))

	for _, p := range []string{
		"/../../etc/passwd",
		"../etc/passwd",
		"/some_dir/../../secret",
		"/..",
		"/index.html\x00.png",
		"/..\\..\\windows",
	} {
		t.Run(p, func(t *testing.T) {
			_, err := sr.Resolve(p)
			require.Error(t, err)
			assert.True(t, domain.IsForbidden(err), "got %v", err)
		})
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	root := newSite(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644))
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	sr, _ := newResponder(t, root)

	_, err := sr.Resolve("/escape/secret.txt")
	assert.True(t, domain.IsForbidden(err), "got %v", err)
}

func TestResolveNotFound(t *testing.T) {
	sr, _ := newResponder(t, newSite(t))

	for _, p := range []string{"/nope.html", "/some_dir/missing", "/css"} {
		_, err := sr.Resolve(p)
		assert.True(t, domain.IsNotFound(err), "%s: got %v", p, err)
	}
}

func TestServe(t *testing.T) {
	sr, m := newResponder(t, newSite(t))

	rec := serve(sr, http.MethodGet, "/index.html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "My awesome site", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = serve(sr, http.MethodGet, "/some_dir/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "My awesome directory", rec.Body.String())

	rec = serve(sr, http.MethodGet, "/css/site.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	rec = serve(sr, http.MethodHead, "/index.html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	assert.Equal(t, 4.0, testutil.ToFloat64(m.StaticResponses.WithLabelValues("200")))
}

func TestServeErrors(t *testing.T) {
	sr, m := newResponder(t, newSite(t))

	rec := serve(sr, http.MethodGet, "/missing.html")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(sr, http.MethodGet, "/%2e%2e/%2e%2e/etc/passwd")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "root:")

	rec = serve(sr, http.MethodPost, "/index.html")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaticResponses.WithLabelValues("404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaticResponses.WithLabelValues("403")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaticResponses.WithLabelValues("405")))
}

func TestServeCustomNotFoundPage(t *testing.T) {
	root := newSite(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, NotFoundPage), []byte("Lost?"), 0o644))
	sr, _ := newResponder(t, root)

	rec := serve(sr, http.MethodGet, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Lost?", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}
