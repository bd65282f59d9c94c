// Package respond writes the JSON envelopes shared by every endpoint.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/videotube/backend/internal/apperrors"
	"github.com/videotube/backend/internal/logging"
)

// Envelope wraps successful responses.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope wraps failed responses.
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// JSON writes data in a success envelope. Statuses of 400 and above are treated as
// failures by the envelope.
func JSON(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	if data == nil {
		data = struct{}{}
	}
	write(ctx, w, status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Error converts err into an error envelope. Unclassified errors become a 500 with a
// generic message; their text is logged but never sent to the client.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	status := kind.HTTPStatus()

	message := "something went wrong"
	details := []string{}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) && kind != apperrors.KindInternal {
		message = appErr.Message
		if message == "" {
			message = kind.String()
		}
		if len(appErr.Details) > 0 {
			details = appErr.Details
		}
	}

	logger := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "kind", kind.String(), "error", err)
	} else {
		logger.Warn("request returned client error", "status", status, "kind", kind.String(), "message", message)
	}

	write(ctx, w, status, ErrorEnvelope{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     details,
	})
}

func write(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}
