package mw

import (
	"context"
	"net/http"

	"github.com/naeap/journal/internal/auth"
	"github.com/naeap/journal/internal/logger"
)

type sessionKey struct{}

// LoginPath is where unauthenticated console requests are sent.
const LoginPath = "/admin/login"

// RequireAdmin lets through only requests carrying a valid session cookie
// and stores the session in the request context. Others are redirected to
// the login page.
func RequireAdmin(a *auth.Authenticator, secure bool, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := a.FromRequest(r)
			if err != nil {
				if _, cerr := r.Cookie(auth.CookieName); cerr == nil {
					log.Debug("RequireAdmin: invalid session cookie", logger.String("path", r.URL.Path))
					http.SetCookie(w, auth.ClearCookie(secure))
				}
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
		})
	}
}

// SessionFrom returns the admin session stored by RequireAdmin.
func SessionFrom(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(auth.Session)
	return s, ok
}
