package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/respond"
)

// Authenticator resolves an access token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.PublicUser, error)
}

// RequireAuth rejects requests without a valid access token. The token is read from
// the access cookie, falling back to an Authorization bearer header. The resolved
// user is stored on the request context and its id is added to the request logger.
func RequireAuth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user, err := authenticator.Authenticate(ctx, AccessToken(r))
			if err != nil {
				respond.Error(ctx, w, err)
				return
			}

			ctx = logging.WithUserID(auth.WithUser(ctx, user), user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessToken extracts the bearer credential from r, or "" when none is present.
func AccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(auth.AccessCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
