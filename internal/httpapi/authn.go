package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"invizible.art/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withRequestContext builds the per-request auth.RequestContext. A missing
// or rejected bearer token leaves the request anonymous; requireAuth decides
// whether that is acceptable.
func (a *API) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := &auth.RequestContext{
			UserAgent: r.UserAgent(),
			RequestID: middleware.GetReqID(r.Context()),
		}
		if token, err := extractBearerToken(r.Header.Get(authHeader)); err == nil {
			rc.Token = token
			if p, ok := a.auth.Identify(r.Context(), token); ok {
				rc.Principal = p
			}
		}
		next.ServeHTTP(w, r.WithContext(auth.WithRequestContext(r.Context(), rc)))
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).Authenticated() {
			w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
			writeError(w, r, http.StatusUnauthorized, auth.ErrUnauthenticated.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
