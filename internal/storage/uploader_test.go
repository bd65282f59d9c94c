package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingStore struct {
	key  string
	body []byte
	err  error
}

func (s *recordingStore) Save(_ context.Context, key string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.key = key
	s.body, _ = io.ReadAll(r)
	return "https://cdn.example.com/" + key, nil
}

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestUploadAssetStoresAndRemovesFile(t *testing.T) {
	store := &recordingStore{}
	uploader := NewMediaUploader(store)
	path := writeTemp(t, "Avatar.PNG", "image-bytes")

	asset, err := uploader.UploadAsset(context.Background(), path)
	if err != nil {
		t.Fatalf("upload asset: %v", err)
	}

	if !strings.HasPrefix(asset.Key, "media/") || !strings.HasSuffix(asset.Key, ".png") {
		t.Fatalf("unexpected key %q", asset.Key)
	}
	if asset.URL != "https://cdn.example.com/"+asset.Key {
		t.Fatalf("unexpected url %q", asset.URL)
	}
	if asset.Size != int64(len("image-bytes")) || !bytes.Equal(store.body, []byte("image-bytes")) {
		t.Fatalf("unexpected upload contents: size=%d body=%q", asset.Size, store.body)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected temp file to be removed, stat err=%v", err)
	}
}

func TestUploadAssetRemovesFileOnFailure(t *testing.T) {
	uploader := NewMediaUploader(&recordingStore{err: errors.New("bucket unavailable")})
	path := writeTemp(t, "cover.jpg", "bytes")

	if _, err := uploader.UploadAsset(context.Background(), path); err == nil {
		t.Fatal("expected upload error")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected temp file to be removed after failure, stat err=%v", err)
	}
}

func TestUploadAssetRequiresPath(t *testing.T) {
	uploader := NewMediaUploader(&recordingStore{})
	if _, err := uploader.UploadAsset(context.Background(), " "); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
}

func TestPublicURLWithBucketPath(t *testing.T) {
	if got := publicURL("", "media/a.png"); got != "media/a.png" {
		t.Fatalf("expected bare key, got %q", got)
	}
	if got := publicURL("http://localhost:9000/bucket", "media/a.png"); got != "http://localhost:9000/bucket/media/a.png" {
		t.Fatalf("unexpected url %q", got)
	}
}
