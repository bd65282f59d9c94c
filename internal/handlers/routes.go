package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	auth := AuthHandler{Sessions: deps.Sessions, Uploads: deps.Uploads, CookieSecure: deps.CookieSecure}
	profiles := ProfileHandler{Profiles: deps.Profiles, Uploads: deps.Uploads}
	videos := VideoHandler{Videos: deps.Videos, Uploads: deps.Uploads}

	protected := middleware.RequireAuth(deps.Sessions)
	limited := func(scope string, h http.HandlerFunc) http.Handler {
		return middleware.Limit(deps.AuthLimiter, scope)(h)
	}

	mux.HandleFunc("/healthz", health.Handle)

	mux.Handle("/api/v1/users/register", limited("register", auth.Register))
	mux.Handle("/api/v1/users/login", limited("login", auth.Login))
	mux.Handle("/api/v1/users/refresh-token", limited("refresh", auth.Refresh))
	mux.Handle("/api/v1/users/logout", protected(http.HandlerFunc(auth.Logout)))
	mux.Handle("/api/v1/users/change-password", protected(http.HandlerFunc(auth.ChangePassword)))

	mux.Handle("/api/v1/users/current-user", protected(http.HandlerFunc(profiles.CurrentUser)))
	mux.Handle("/api/v1/users/update-account", protected(http.HandlerFunc(profiles.UpdateAccount)))
	mux.Handle("/api/v1/users/avatar", protected(http.HandlerFunc(profiles.UpdateAvatar)))
	mux.Handle("/api/v1/users/cover-image", protected(http.HandlerFunc(profiles.UpdateCoverImage)))
	mux.Handle("/api/v1/users/c/{username}", protected(http.HandlerFunc(profiles.Channel)))
	mux.Handle("/api/v1/users/history", protected(http.HandlerFunc(profiles.History)))
	mux.Handle("/api/v1/subscriptions/c/{channelId}", protected(http.HandlerFunc(profiles.ToggleSubscription)))

	mux.Handle("/api/v1/videos", protected(http.HandlerFunc(videos.Publish)))
	mux.Handle("/api/v1/videos/{videoId}", protected(http.HandlerFunc(videos.Watch)))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Sessions     SessionService
	Profiles     ProfileService
	Videos       VideoService
	DB           Pinger
	AuthLimiter  middleware.RateLimiter
	Uploads      Uploads
	CookieSecure bool
}
