package handlers

import (
	"context"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/videos"
)

// SessionService drives registration, login and token rotation.
type SessionService interface {
	Register(ctx context.Context, in auth.RegisterInput) (models.PublicUser, error)
	Login(ctx context.Context, in auth.LoginInput) (auth.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Authenticate(ctx context.Context, accessToken string) (models.PublicUser, error)
}

// ProfileService captures account maintenance and channel queries.
type ProfileService interface {
	CurrentUser(ctx context.Context, userID string) (models.PublicUser, error)
	UpdateAccountDetails(ctx context.Context, userID, fullname, email string) (models.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID, localPath string) (models.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID, localPath string) (models.PublicUser, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// VideoService publishes and serves videos.
type VideoService interface {
	Publish(ctx context.Context, in videos.PublishInput) (models.Video, error)
	Watch(ctx context.Context, videoID, viewerID string) (models.Video, error)
}
