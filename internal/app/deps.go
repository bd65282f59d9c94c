package app

import (
	"context"
	"time"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/config"
	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/handlers"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/profiles"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/storage"
	"github.com/videotube/backend/internal/videos"
)

// rateLimitTTL is how long an idle client's limiter is retained.
const rateLimitTTL = 10 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	issuer, err := auth.NewIssuer(auth.TokenConfig{
		AccessSecret:  []byte(cfg.Tokens.AccessSecret),
		RefreshSecret: []byte(cfg.Tokens.RefreshSecret),
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
		Issuer:        cfg.Tokens.Issuer,
	})
	if err != nil {
		return handlers.Dependencies{}, err
	}

	store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, err
	}
	media := storage.NewMediaUploader(store)

	users := repositories.NewPostgresUserRepository(pool)
	channels := repositories.NewPostgresChannelRepository(pool)

	return handlers.Dependencies{
		Sessions:     auth.NewManager(users, issuer, media),
		Profiles:     profiles.NewService(users, channels, media),
		Videos:       videos.NewService(repositories.NewPostgresVideoRepository(pool), media),
		DB:           pool,
		AuthLimiter:  middleware.NewIPRateLimiter(cfg.AuthLimit, rateLimitTTL),
		Uploads:      handlers.Uploads{Dir: cfg.UploadDir, MaxBytes: cfg.MaxUploadBytes},
		CookieSecure: cfg.CookieSecure,
	}, nil
}
