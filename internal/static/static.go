// Package static serves files from the site directory once the gate has let a
// request through.
package static

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sitegate/internal/config"
	"github.com/sitegate/internal/domain"
	"github.com/sitegate/internal/httputil"
	"github.com/sitegate/internal/metrics"
	"github.com/sitegate/internal/validation"
)

// NotFoundPage is served with status 404 when present in the root
const NotFoundPage = "404.html"

// Responder maps request paths onto files below a fixed root
type Responder struct {
	root    string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New validates root and resolves it to an absolute, symlink-free path.
// m may be nil.
func New(root string, logger *slog.Logger, m *metrics.Metrics) (*Responder, error) {
	if err := config.ValidateStaticRoot(root); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, domain.WrapConfigError("STATIC_ROOT", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, domain.WrapConfigError("STATIC_ROOT", err)
	}

	return &Responder{root: resolved, logger: logger, metrics: m}, nil
}

// Root returns the resolved root directory
func (sr *Responder) Root() string {
	return sr.root
}

// Resolve maps a decoded request path to a regular file below the root.
// Candidates are tried in order: the path itself, path + ".html" and
// path/index.html. Traversal attempts yield a Forbidden error, a path with no
// matching file a NotFound error.
func (sr *Responder) Resolve(requestPath string) (string, error) {
	if err := validation.ValidateRequestPath(requestPath); err != nil {
		return "", domain.WrapForbidden(requestPath, err)
	}

	clean := path.Clean("/" + requestPath)
	full := filepath.Join(sr.root, filepath.FromSlash(clean))

	candidates := []string{full}
	if clean != "/" {
		candidates = append(candidates, full+".html")
	}
	candidates = append(candidates, filepath.Join(full, "index.html"))

	for _, candidate := range candidates {
		resolved, err := filepath.EvalSymlinks(candidate)
		if err != nil {
			continue
		}
		if !sr.contains(resolved) {
			return "", domain.WrapForbidden(requestPath, errors.New("resolves outside the static root"))
		}
		info, err := os.Stat(resolved)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return resolved, nil
	}

	return "", domain.WrapNotFound(requestPath, nil)
}

func (sr *Responder) contains(p string) bool {
	if p == sr.root {
		return true
	}
	return strings.HasPrefix(p, sr.root+string(filepath.Separator))
}

// Serve is the terminal gin handler writing the resolved file
func (sr *Responder) Serve(c *gin.Context) {
	defer func() { sr.metrics.StaticResponse(c.Writer.Status()) }()

	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Header("Allow", "GET, HEAD")
		httputil.AbortWithError(c, domain.ErrMethodNotAllowed)
		return
	}

	file, err := sr.Resolve(c.Request.URL.Path)
	if err != nil {
		if domain.IsNotFound(err) && sr.serveNotFoundPage(c) {
			return
		}
		httputil.AbortWithError(c, err)
		return
	}

	if err := sr.serveFile(c, file); err != nil {
		sr.logger.ErrorContext(c.Request.Context(), "failed to serve file", "path", c.Request.URL.Path, "error", err)
		httputil.AbortWithError(c, err)
	}
}

func (sr *Responder) serveFile(c *gin.Context, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
	return nil
}

// serveNotFoundPage writes the site's 404 page, reporting whether one exists
func (sr *Responder) serveNotFoundPage(c *gin.Context) bool {
	f, err := os.Open(filepath.Join(sr.root, NotFoundPage))
	if err != nil {
		return false
	}
	defer f.Close()

	ctype := mime.TypeByExtension(".html")
	c.Header("Content-Type", ctype)
	c.Status(http.StatusNotFound)
	if c.Request.Method == http.MethodHead {
		c.Writer.WriteHeaderNow()
		return true
	}
	if _, err := io.Copy(c.Writer, f); err != nil {
		sr.logger.WarnContext(c.Request.Context(), "failed to write 404 page", "error", err)
	}
	return true
}
