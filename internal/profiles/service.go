// Package profiles serves account maintenance and the channel-centric read
// queries: channel pages, watch history and subscriptions.
package profiles

import (
	"context"
	"errors"
	"strings"

	"github.com/videotube/backend/internal/apperrors"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/validation"
)

// MediaUploader moves a local temp file to the media host.
type MediaUploader interface {
	UploadAsset(ctx context.Context, localPath string) (models.Asset, error)
}

type accountDetails struct {
	Fullname string `json:"fullname" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

// Service implements the profile operations.
type Service struct {
	users    repositories.UserRepository
	channels repositories.ChannelRepository
	media    MediaUploader
}

// NewService constructs a Service.
func NewService(users repositories.UserRepository, channels repositories.ChannelRepository, media MediaUploader) *Service {
	return &Service{users: users, channels: channels, media: media}
}

// CurrentUser returns the public view of userID.
func (s *Service) CurrentUser(ctx context.Context, userID string) (models.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.PublicUser{}, translate(err, "User not found")
	}
	return user.Public(), nil
}

// UpdateAccountDetails replaces fullname and email.
func (s *Service) UpdateAccountDetails(ctx context.Context, userID, fullname, email string) (user models.PublicUser, err error) {
	ctx, span := logging.StartSpan(ctx, "profiles.update_account")
	defer func() { span.End(err) }()

	in := accountDetails{
		Fullname: strings.TrimSpace(fullname),
		Email:    strings.ToLower(strings.TrimSpace(email)),
	}
	if err := validation.Struct(in, "All fields are required"); err != nil {
		return models.PublicUser{}, err
	}

	updated, err := s.users.UpdateAccountDetails(ctx, userID, in.Fullname, in.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.PublicUser{}, apperrors.New(apperrors.KindDuplicateUser, "Email is already in use")
		}
		return models.PublicUser{}, translate(err, "User not found")
	}
	return updated.Public(), nil
}

// UpdateAvatar uploads a new avatar and stores its URL.
func (s *Service) UpdateAvatar(ctx context.Context, userID, localPath string) (models.PublicUser, error) {
	return s.replaceImage(ctx, userID, localPath, "Avatar", s.users.UpdateAvatar)
}

// UpdateCoverImage uploads a new cover image and stores its URL.
func (s *Service) UpdateCoverImage(ctx context.Context, userID, localPath string) (models.PublicUser, error) {
	return s.replaceImage(ctx, userID, localPath, "Cover image", s.users.UpdateCoverImage)
}

func (s *Service) replaceImage(
	ctx context.Context,
	userID, localPath, label string,
	update func(ctx context.Context, id, url string) (models.User, error),
) (user models.PublicUser, err error) {
	ctx, span := logging.StartSpan(ctx, "profiles.update_image")
	defer func() { span.End(err) }()

	if strings.TrimSpace(localPath) == "" {
		return models.PublicUser{}, apperrors.New(apperrors.KindValidation, label+" file is missing")
	}

	asset, err := s.media.UploadAsset(ctx, localPath)
	if err != nil {
		return models.PublicUser{}, apperrors.Wrap(apperrors.KindUploadFailed, "Error while uploading "+strings.ToLower(label), err)
	}

	updated, err := update(ctx, userID, asset.URL)
	if err != nil {
		return models.PublicUser{}, translate(err, "User not found")
	}
	return updated.Public(), nil
}

// ChannelProfile returns the channel page for username as seen by viewerID.
func (s *Service) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return models.ChannelProfile{}, apperrors.New(apperrors.KindValidation, "username is missing")
	}

	profile, err := s.channels.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		return models.ChannelProfile{}, translate(err, "channel does not exist")
	}
	return profile, nil
}

// WatchHistory returns the videos userID has watched, oldest first.
func (s *Service) WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	history, err := s.channels.WatchHistory(ctx, userID)
	if err != nil {
		return nil, translate(err, "User not found")
	}
	return history, nil
}

// ToggleSubscription subscribes subscriberID to channelID or cancels an existing
// subscription. It reports whether the subscriber is subscribed afterwards.
func (s *Service) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (subscribed bool, err error) {
	ctx, span := logging.StartSpan(ctx, "profiles.toggle_subscription")
	defer func() { span.End(err) }()

	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return false, apperrors.New(apperrors.KindValidation, "channel id is missing")
	}
	if channelID == subscriberID {
		return false, apperrors.New(apperrors.KindValidation, "You cannot subscribe to your own channel")
	}

	subscribed, err = s.channels.ToggleSubscription(ctx, subscriberID, channelID)
	if err != nil {
		return false, translate(err, "channel does not exist")
	}
	return subscribed, nil
}

func translate(err error, notFound string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.New(apperrors.KindNotFound, notFound)
	}
	return apperrors.Internal(err)
}
