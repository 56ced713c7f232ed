package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/stefvanhouten/loginauth"
)

// Authenticator resolves a session token. *loginauth.Engine satisfies it.
type Authenticator interface {
	CurrentUser(ctx context.Context, token string) (loginauth.Identity, error)
}

type identityContextKey struct{}

// IdentityFromContext returns the identity attached by a guard.
func IdentityFromContext(ctx context.Context) (loginauth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(loginauth.Identity)
	return id, ok
}

// Guard rejects requests without a valid session cookie with 401.
func Guard(auth Authenticator, cookieName string) func(http.Handler) http.Handler {
	return guard(auth, cookieName, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

// GuardRedirect sends requests without a valid session cookie to location with
// 303 See Other.
func GuardRedirect(auth Authenticator, cookieName, location string) func(http.Handler) http.Handler {
	return guard(auth, cookieName, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, location, http.StatusSeeOther)
	})
}

func guard(auth Authenticator, cookieName string, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				reject(w, r)
				return
			}

			token := SessionToken(r, cookieName)
			if token == "" {
				reject(w, r)
				return
			}

			id, err := auth.CurrentUser(r.Context(), token)
			if err != nil {
				reject(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP attaches the request's remote address to the context for login
// throttling and audit events. Proxy headers are not trusted; put a trusted
// proxy's real-IP middleware in front when needed.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(loginauth.WithClientIP(r.Context(), ip)))
	})
}
