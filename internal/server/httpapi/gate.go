package httpapi

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/dmitrijs2005/xrayportal/internal/common"
)

var (
	gateBypassPrefixes = []string{"/api", "/healthz", "/_next", "/images", "/favicon.ico"}
	gatePublicPrefixes = []string{"/login", "/register"}
	gateAssetExts      = map[string]bool{".jpg": true, ".jpeg": true, ".gif": true, ".png": true, ".svg": true, ".ico": true, ".webp": true}
)

// hasAnyPrefix matches whole path segments: "/login" covers "/login" and
// "/login/x" but not "/login-help".
func hasAnyPrefix(p string, prefixes []string) bool {
	for _, pre := range prefixes {
		if p == pre || strings.HasPrefix(p, pre+"/") {
			return true
		}
	}
	return false
}

// sessionRejected reports whether err means the token itself is bad, as
// opposed to the check failing.
func sessionRejected(err error) bool {
	return errors.Is(err, common.ErrInvalidToken) ||
		errors.Is(err, common.ErrTokenExpired) ||
		errors.Is(err, common.ErrInvalidSession)
}

func gateBypassed(p string) bool {
	return hasAnyPrefix(p, gateBypassPrefixes) || gateAssetExts[strings.ToLower(path.Ext(p))]
}

// pageGate protects pages. Anonymous visitors go to /login; signed-in users
// visiting /login or /register go to /. A cookie that no longer verifies is
// cleared; when verification itself fails the cookie is kept.
func (s *HTTPServer) pageGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if gateBypassed(p) {
			next.ServeHTTP(w, r)
			return
		}

		public := hasAnyPrefix(p, gatePublicPrefixes)
		token := sessionToken(r)

		if token == "" {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		claims, err := s.users.Authenticate(r.Context(), token)
		if err != nil {
			if sessionRejected(err) {
				s.clearSessionCookie(w)
			} else {
				s.logger.Warn(r.Context(), "session check failed", "error", err.Error())
			}
			if public {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		if public {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}
