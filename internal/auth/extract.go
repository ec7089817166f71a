package auth

import (
	"net/http"
	"strings"
)

// ExtractToken reads the bearer token from the Authorization header and
// falls back to the named cookie. Empty means no credentials were sent.
func ExtractToken(r *http.Request, cookieName string) string {
	if r == nil {
		return ""
	}
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return strings.TrimSpace(c.Value)
		}
	}
	return ""
}
