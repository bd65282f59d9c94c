package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
)

// ErrEmptyPath is returned when UploadAsset is called without a file.
var ErrEmptyPath = errors.New("storage: local path is required")

// MediaUploader moves temp files received from clients onto the object store.
type MediaUploader struct {
	store  ObjectStore
	prefix string
}

// NewMediaUploader returns an uploader that stores files under "media/".
func NewMediaUploader(store ObjectStore) *MediaUploader {
	return &MediaUploader{store: store, prefix: "media"}
}

// UploadAsset stores the file at localPath under a fresh key and returns its hosted
// location. The local file is removed whether or not the upload succeeds.
func (u *MediaUploader) UploadAsset(ctx context.Context, localPath string) (asset models.Asset, err error) {
	if strings.TrimSpace(localPath) == "" {
		return models.Asset{}, ErrEmptyPath
	}
	defer func() {
		if rmErr := os.Remove(localPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.FromContext(ctx).Warn("remove uploaded temp file", "path", localPath, "error", rmErr)
		}
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return models.Asset{}, fmt.Errorf("open upload %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return models.Asset{}, fmt.Errorf("stat upload %s: %w", localPath, err)
	}

	key := fmt.Sprintf("%s/%s%s", u.prefix, uuid.NewString(), strings.ToLower(filepath.Ext(localPath)))
	url, err := u.store.Save(ctx, key, f)
	if err != nil {
		return models.Asset{}, err
	}

	return models.Asset{URL: url, Key: key, Size: info.Size()}, nil
}
