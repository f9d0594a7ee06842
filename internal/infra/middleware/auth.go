package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth requires "Authorization: Bearer <token>" matching one of
// tokens. An empty token list disables the check.
func BearerAuth(tokens []string) func(http.Handler) http.Handler {
	var valid [][]byte
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			valid = append(valid, []byte(t))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || !tokenMatches(valid, []byte(strings.TrimSpace(token))) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="multiagent-mcp"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// tokenMatches compares against every token so timing does not reveal
// which one matched.
func tokenMatches(valid [][]byte, got []byte) bool {
	match := 0
	for _, v := range valid {
		match |= subtle.ConstantTimeCompare(v, got)
	}
	return match == 1
}
