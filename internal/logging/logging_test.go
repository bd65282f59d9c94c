package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/videotube/backend/internal/apperrors"
)

func TestStartSpanTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithLogger(context.Background(), base)
	ctx = WithRequestID(ctx, "req-1")

	ctx, span := StartSpan(ctx, "auth.refresh")
	parent := OperationIDFromContext(ctx)
	if parent == "" {
		t.Fatal("expected operation id on context")
	}
	if RequestIDFromContext(ctx) != "req-1" {
		t.Fatal("expected request id to survive span start")
	}

	child, childSpan := StartSpan(ctx, "auth.rotate")
	FromContext(child).Info("inside")
	childSpan.End(nil)
	span.End(apperrors.New(apperrors.KindTokenReuse, "Refresh token is expired or used"))

	out := buf.String()
	for _, want := range []string{
		`"op":"auth.rotate"`,
		`"parent_op_id":"` + parent + `"`,
		`"operation completed"`,
		`"operation failed"`,
		`"error_kind":"token reuse detected"`,
		`"level":"INFO","msg":"operation failed"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %s, got %s", want, out)
		}
	}
}

func TestSpanEndLogsInternalFailuresAtError(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	_, span := StartSpan(ctx, "videos.publish")
	span.End(errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, `"level":"ERROR"`) || !strings.Contains(out, `"error":"boom"`) {
		t.Fatalf("expected error level entry, got %s", out)
	}
}

func TestWithUserIDTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx = WithUserID(ctx, "user-42")
	FromContext(ctx).Info("hello")

	if UserIDFromContext(ctx) != "user-42" {
		t.Fatalf("expected user id on context got %q", UserIDFromContext(ctx))
	}
	if !strings.Contains(buf.String(), `"user_id":"user-42"`) {
		t.Fatalf("expected user_id attribute, got %s", buf.String())
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("expected default logger")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v want %v", in, got, want)
		}
	}
}
