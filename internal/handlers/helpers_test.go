package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/profiles"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/videos"
)

// removingMedia behaves like the real uploader: it consumes the temp file.
type removingMedia struct {
	uploads int
}

func (m *removingMedia) UploadAsset(_ context.Context, localPath string) (models.Asset, error) {
	if _, err := os.Stat(localPath); err != nil {
		return models.Asset{}, err
	}
	_ = os.Remove(localPath)
	m.uploads++
	return models.Asset{URL: "https://cdn.example.com/media/" + filepath.Base(localPath), Key: filepath.Base(localPath)}, nil
}

type testEnv struct {
	handler http.Handler
	store   *repositories.MemoryStore
	media   *removingMedia
	dir     string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	issuer, err := auth.NewIssuer(auth.TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "videotube-test",
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	store := repositories.NewMemoryStore()
	media := &removingMedia{}
	dir := t.TempDir()

	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Sessions:     auth.NewManager(store.Users(), issuer, media),
		Profiles:     profiles.NewService(store.Users(), store.Channels(), media),
		Videos:       videos.NewService(store.Videos(), media),
		Uploads:      Uploads{Dir: dir, MaxBytes: 1 << 20},
		CookieSecure: true,
	})

	return testEnv{handler: mux, store: store, media: media, dir: dir}
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

type multipartFile struct {
	field    string
	filename string
	contents string
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...multipartFile) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(f.contents)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.StatusCode != rec.Code {
		t.Fatalf("envelope status %d does not match response status %d", env.StatusCode, rec.Code)
	}
	return env
}

func registerAlice(t *testing.T, env testEnv) {
	t.Helper()
	rec := env.do(multipartRequest(t, http.MethodPost, "/api/v1/users/register", map[string]string{
		"username": "alice",
		"email":    "alice@x.com",
		"fullname": "Alice A",
		"password": "secret123",
	}, multipartFile{field: "avatar", filename: "alice.png", contents: "png"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
}

func loginAlice(t *testing.T, env testEnv) (string, string) {
	t.Helper()
	rec := env.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{"username": "alice", "password": "secret123"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var access, refresh string
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case auth.AccessCookie:
			access = c.Value
		case auth.RefreshCookie:
			refresh = c.Value
		}
	}
	return access, refresh
}

func withAccess(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: auth.AccessCookie, Value: token})
	return req
}
