package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/videotube/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Ping(context.Context) error { return nil }

func (fakePool) Close() {}

func testConfig() config.Config {
	return config.Config{
		UploadDir:      "/tmp",
		MaxUploadBytes: 1 << 20,
		Tokens: config.TokenConfig{
			AccessSecret:  "access",
			AccessTTL:     time.Minute,
			RefreshSecret: "refresh",
			RefreshTTL:    time.Hour,
			Issuer:        "videotube",
		},
		ObjectStore: config.ObjectStoreConfig{Bucket: "test-bucket", Endpoint: "http://localhost:9000", Region: "us-east-1"},
		AuthLimit:   config.RateLimitConfig{Requests: 10, Window: time.Minute, Burst: 5},
	}
}

func TestBuildDependencies(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, err := buildDependencies(context.Background(), fakePool{}, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps.Sessions == nil {
		t.Fatal("expected session manager to be configured")
	}
	if deps.Profiles == nil {
		t.Fatal("expected profile service to be configured")
	}
	if deps.Videos == nil {
		t.Fatal("expected video service to be configured")
	}
	if deps.DB == nil {
		t.Fatal("expected database pinger to be configured")
	}
	if deps.AuthLimiter == nil {
		t.Fatal("expected auth rate limiter to be configured")
	}
	if deps.Uploads.Dir != "/tmp" || deps.Uploads.MaxBytes != 1<<20 {
		t.Fatalf("unexpected upload settings: %+v", deps.Uploads)
	}
}

func TestBuildDependenciesRequiresBucket(t *testing.T) {
	cfg := testConfig()
	cfg.ObjectStore.Bucket = ""

	if _, err := buildDependencies(context.Background(), fakePool{}, cfg); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestResolveSeed(t *testing.T) {
	name, path, err := resolveSeed("/srv/seeds", "dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "dev_seed.sql" || path != filepath.Join("/srv/seeds", "dev_seed.sql") {
		t.Fatalf("unexpected seed resolution %q %q", name, path)
	}

	if _, _, err := resolveSeed("/srv/seeds", "../etc/passwd.sql"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}

func TestRetryBackoffIsCapped(t *testing.T) {
	if got := retryBackoff(1); got != seedBaseBackoff {
		t.Fatalf("expected base backoff got %v", got)
	}
	if got := retryBackoff(20); got != seedMaxBackoff {
		t.Fatalf("expected capped backoff got %v", got)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without command")
	}
	if err := Run(context.Background(), []string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
