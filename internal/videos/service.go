// Package videos publishes uploads and records views in the viewer's watch history.
package videos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

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

// PublishInput describes a new upload. The paths point at temp files.
type PublishInput struct {
	OwnerID       string `json:"owner" validate:"required"`
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"required"`
	VideoPath     string `json:"videoFile" validate:"required"`
	ThumbnailPath string `json:"thumbnail" validate:"required"`
}

// Service implements the video catalog.
type Service struct {
	videos repositories.VideoRepository
	media  MediaUploader
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(videos repositories.VideoRepository, media MediaUploader) *Service {
	return &Service{videos: videos, media: media, now: func() time.Time { return time.Now().UTC() }}
}

// Publish uploads the video file and thumbnail and stores the video.
func (s *Service) Publish(ctx context.Context, in PublishInput) (video models.Video, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.publish")
	defer func() { span.End(err) }()

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in, "All fields are required"); err != nil {
		return models.Video{}, err
	}

	file, err := s.media.UploadAsset(ctx, in.VideoPath)
	if err != nil {
		return models.Video{}, apperrors.Wrap(apperrors.KindUploadFailed, "Failed to upload video file", err)
	}
	thumbnail, err := s.media.UploadAsset(ctx, in.ThumbnailPath)
	if err != nil {
		return models.Video{}, apperrors.Wrap(apperrors.KindUploadFailed, "Failed to upload thumbnail", err)
	}

	now := s.now()
	video = models.Video{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		VideoFile:   file.URL,
		Thumbnail:   thumbnail.URL,
		Title:       in.Title,
		Description: in.Description,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.videos.Create(ctx, video); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperrors.New(apperrors.KindUnauthorized, "unauthorized request")
		}
		return models.Video{}, apperrors.Internal(err)
	}

	logging.FromContext(ctx).Info("video published", "video_id", video.ID, "owner_id", video.OwnerID)
	return video, nil
}

// Watch returns the video and appends it to the viewer's watch history.
func (s *Service) Watch(ctx context.Context, videoID, viewerID string) (models.Video, error) {
	if err := s.videos.RecordView(ctx, videoID, viewerID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperrors.New(apperrors.KindNotFound, "Video not found")
		}
		return models.Video{}, apperrors.Internal(err)
	}

	video, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperrors.New(apperrors.KindNotFound, "Video not found")
		}
		return models.Video{}, apperrors.Internal(err)
	}
	return video, nil
}
