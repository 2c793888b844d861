package auth

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	sessionCookieName = "audiolox-session"
	apiKeyQueryParam  = "api-key"
)

// credentialFromRequest extracts the caller's access key from either the
// session cookie or the api-key query parameter, preferring the cookie.
func credentialFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get(apiKeyQueryParam)
}

// Middleware returns an http.Handler middleware that enforces authentication.
// In open mode (no passwords configured), all requests pass through.
// Otherwise, checks the session cookie and api-key query param.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}

		if key := credentialFromRequest(r); key != "" && s.VerifyKey(key) {
			next.ServeHTTP(w, r)
			return
		}

		// Not authenticated — redirect to login
		loginURL := "/auth/login?next=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, loginURL, http.StatusFound)
	})
}

// RequireZone wraps a zone-scoped route (one with a chi "zid" URL
// parameter) and additionally checks the authenticated key's zone scope.
// Middleware must run first so open mode and malformed credentials are
// already handled; RequireZone only narrows further. An unparseable "zid"
// is left for the handler itself to reject.
func (s *Service) RequireZone(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}

		zid, err := strconv.Atoi(chi.URLParam(r, "zid"))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if key := credentialFromRequest(r); key != "" && s.ZoneAccess(key, zid) {
			next.ServeHTTP(w, r)
			return
		}

		http.Error(w, "zone access denied", http.StatusForbidden)
	})
}
