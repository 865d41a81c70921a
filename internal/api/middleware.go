// Package api implements the read-only collection query API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// streamTokenParam carries the token for the event stream, since browser
// EventSource clients cannot set headers.
const streamTokenParam = "access_token"

// AuthMiddleware requires "Authorization: Bearer <token>" on every request
// when enabled. The event stream also accepts ?access_token=<token>.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := requestToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="quire"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestToken(r *http.Request) (string, bool) {
	if tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return tok, true
	}
	if strings.HasSuffix(r.URL.Path, "/events") {
		if tok := r.URL.Query().Get(streamTokenParam); tok != "" {
			return tok, true
		}
	}
	return "", false
}
