package logging

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/apperrors"
)

// Span times one service operation, such as auth.login, and logs its outcome.
type Span struct {
	logger *slog.Logger
	start  time.Time
}

// StartSpan begins operation name. The returned context carries a logger tagged
// with op and op_id (plus parent_op_id when nested), so logs from inside the
// operation can be correlated.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	s := scopeFrom(ctx)
	opID := uuid.NewString()

	attrs := []any{slog.String("op", name), slog.String("op_id", opID)}
	if s.opID != "" {
		attrs = append(attrs, slog.String("parent_op_id", s.opID))
	}
	s.logger = FromContext(ctx).With(attrs...)
	s.opID = opID

	return withScope(ctx, s), &Span{logger: s.logger, start: time.Now()}
}

// End logs the duration. Expected client failures (bad input, wrong password,
// reused token) log at info with their kind. Server faults log at error. Pass the
// operation's named error result.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(s.start))
	if err == nil {
		s.logger.Debug("operation completed", elapsed)
		return
	}

	kind := apperrors.KindOf(err)
	level := slog.LevelInfo
	if kind.HTTPStatus() >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "operation failed",
		elapsed,
		slog.String("error_kind", kind.String()),
		slog.String("error", err.Error()),
	)
}
