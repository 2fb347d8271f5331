package validation

import (
	"errors"
	"net/url"
	"strings"
)

// ValidateRequestPath rejects request paths that could escape the static root.
// The path is expected to be already percent-decoded (url.URL.Path).
func ValidateRequestPath(p string) error {
	if strings.ContainsRune(p, 0) {
		return errors.New("path contains a NUL byte")
	}

	// Backslashes are plain characters on unix but separators on windows
	if strings.Contains(p, "\\") {
		return errors.New("path contains a backslash")
	}

	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return errors.New("path contains '..'")
		}
	}

	return nil
}

// SafeRedirectTarget returns target if it is a local absolute path and "/" otherwise.
// It keeps the post-login redirect from being turned into an open redirect.
func SafeRedirectTarget(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return "/"
	}

	// "//evil.example" and "/\evil.example" are treated as host-relative by browsers
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}

	if ValidateRequestPath(u.Path) != nil {
		return "/"
	}

	return target
}
