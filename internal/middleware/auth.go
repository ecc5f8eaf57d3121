package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/sirupsen/logrus"
)

// Cookie names
const (
	SessionCookie = "sessionId"
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Authenticator resolves request credentials to a user
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken, sessionID string) (*models.User, error)
}

// Auth rejects requests without a valid access token or session. The token
// is read from the Authorization header, then the access token cookie.
func Auth(a Authenticator, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.Authenticate(r.Context(), accessToken(r), cookieValue(r, SessionCookie))
			if err != nil {
				log.WithFields(logrus.Fields{
					"path":       r.URL.Path,
					"request_id": RequestIDFromContext(r.Context()),
				}).Debugf("Authentication failed: %v", err)
				WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func accessToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return cookieValue(r, AccessCookie)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by Auth
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}
