package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/videotube/backend/internal/apperrors"
	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/respond"
)

const (
	maxJSONBodyBytes  = 16 << 10
	maxFormValueBytes = 64 << 10
)

// Uploads configures where multipart files are spooled before they reach the
// media host.
type Uploads struct {
	Dir      string
	MaxBytes int64
}

// form holds the parsed fields of a multipart request. Files maps form names to
// temp file paths.
type form struct {
	values map[string]string
	files  map[string]string
}

func (f *form) value(name string) string { return f.values[name] }

func (f *form) file(name string) string { return f.files[name] }

// cleanup removes temp files that were not consumed by an upload.
func (f *form) cleanup() {
	for _, path := range f.files {
		_ = os.Remove(path)
	}
}

// parseForm streams a multipart body, writing the parts named in fileFields to
// temp files under u.Dir. Other file parts are discarded.
func (u Uploads) parseForm(w http.ResponseWriter, r *http.Request, fileFields ...string) (*form, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return nil, apperrors.New(apperrors.KindValidation, "expected multipart/form-data body")
	}

	if u.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, u.MaxBytes)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid multipart body", err)
	}

	wanted := make(map[string]bool, len(fileFields))
	for _, name := range fileFields {
		wanted[name] = true
	}

	f := &form{values: map[string]string{}, files: map[string]string{}}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		if err != nil {
			f.cleanup()
			return nil, bodyError(err)
		}

		name := part.FormName()
		switch {
		case part.FileName() == "":
			value, err := io.ReadAll(io.LimitReader(part, maxFormValueBytes))
			if err != nil {
				f.cleanup()
				return nil, bodyError(err)
			}
			f.values[name] = string(value)
		case wanted[name] && f.files[name] == "":
			path, err := u.spool(part)
			if err != nil {
				f.cleanup()
				return nil, err
			}
			f.files[name] = path
		default:
			if _, err := io.Copy(io.Discard, part); err != nil {
				f.cleanup()
				return nil, bodyError(err)
			}
		}
		_ = part.Close()
	}
}

func (u Uploads) spool(part *multipart.Part) (string, error) {
	ext := strings.ToLower(filepath.Ext(part.FileName()))

	tmp, err := os.CreateTemp(u.Dir, "upload-*"+ext)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, part); err != nil {
		_ = os.Remove(tmp.Name())
		return "", bodyError(err)
	}
	return tmp.Name(), nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.Wrap(apperrors.KindValidation, "request body too large", err)
	}
	return apperrors.Wrap(apperrors.KindValidation, "invalid request body", err)
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		logging.FromContext(r.Context()).Warn("invalid request payload", "error", err)
		return bodyError(err)
	}
	return nil
}

// requireUser returns the authenticated user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (models.PublicUser, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Error(r.Context(), w, apperrors.New(apperrors.KindUnauthorized, "unauthorized request"))
		return models.PublicUser{}, false
	}
	return user, true
}

func methodAllowed(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}
