package videos

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videotube/backend/internal/apperrors"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

type stubMedia struct {
	failOn string
}

func (s stubMedia) UploadAsset(_ context.Context, localPath string) (models.Asset, error) {
	if localPath == s.failOn {
		return models.Asset{}, errors.New("upload failed")
	}
	return models.Asset{URL: "https://cdn.example.com/" + localPath, Key: localPath}, nil
}

func seedOwner(t *testing.T, store *repositories.MemoryStore, username string) string {
	t.Helper()
	id, err := store.Users().Create(context.Background(), models.NewUser{
		Username: username,
		Email:    username + "@x.com",
		Password: "pw",
	})
	require.NoError(t, err)
	return id
}

func validInput(owner string) PublishInput {
	return PublishInput{
		OwnerID:       owner,
		Title:         " Intro ",
		Description:   "First upload",
		VideoPath:     "intro.mp4",
		ThumbnailPath: "intro.png",
	}
}

func TestPublish(t *testing.T) {
	store := repositories.NewMemoryStore()
	owner := seedOwner(t, store, "alice")
	svc := NewService(store.Videos(), stubMedia{})

	video, err := svc.Publish(context.Background(), validInput(owner))
	require.NoError(t, err)
	assert.Equal(t, "Intro", video.Title)
	assert.Equal(t, "https://cdn.example.com/intro.mp4", video.VideoFile)
	assert.Equal(t, "https://cdn.example.com/intro.png", video.Thumbnail)
	assert.True(t, video.IsPublished)

	stored, err := store.Videos().FindByID(context.Background(), video.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, stored.OwnerID)
}

func TestPublishFailures(t *testing.T) {
	store := repositories.NewMemoryStore()
	owner := seedOwner(t, store, "alice")
	ctx := context.Background()

	missing := validInput(owner)
	missing.ThumbnailPath = ""
	_, err := NewService(store.Videos(), stubMedia{}).Publish(ctx, missing)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = NewService(store.Videos(), stubMedia{failOn: "intro.mp4"}).Publish(ctx, validInput(owner))
	assert.ErrorIs(t, err, apperrors.ErrUploadFailed)

	_, err = NewService(store.Videos(), stubMedia{}).Publish(ctx, validInput(uuid.NewString()))
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestWatchRecordsHistory(t *testing.T) {
	store := repositories.NewMemoryStore()
	owner := seedOwner(t, store, "alice")
	viewer := seedOwner(t, store, "bob")
	svc := NewService(store.Videos(), stubMedia{})
	ctx := context.Background()

	video, err := svc.Publish(ctx, validInput(owner))
	require.NoError(t, err)

	watched, err := svc.Watch(ctx, video.ID, viewer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, watched.Views)

	history, err := store.Channels().WatchHistory(ctx, viewer)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, video.ID, history[0].ID)

	_, err = svc.Watch(ctx, uuid.NewString(), viewer)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
