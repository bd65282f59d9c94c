package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/videotube/backend/internal/apperrors"
	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/config"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
)

type stubAuthenticator struct {
	token string
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (models.PublicUser, error) {
	switch {
	case token == "":
		return models.PublicUser{}, apperrors.New(apperrors.KindUnauthorized, "unauthorized request")
	case token != s.token:
		return models.PublicUser{}, apperrors.New(apperrors.KindInvalidToken, "Invalid access token")
	}
	return models.PublicUser{ID: "user-1", Username: "alice"}, nil
}

func TestRequireAuth(t *testing.T) {
	var (
		seen       models.PublicUser
		seenUserID string
	)
	handler := RequireAuth(stubAuthenticator{token: "good"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserFromContext(r.Context())
		seenUserID = logging.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusNoContent},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: auth.AccessCookie, Value: "good"}) }, http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = models.PublicUser{}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, rec.Code)
			}
			if tc.status == http.StatusNoContent && (seen.ID != "user-1" || seenUserID != "user-1") {
				t.Fatalf("expected user on context, got %+v (log user %q)", seen, seenUserID)
			}
		})
	}
}

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	limiter := NewIPRateLimiter(config.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 2}, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.(*keyedLimiter).now = func() time.Time { return now }

	allowed := func(key string) bool {
		ok, _ := limiter.Allow(key)
		return ok
	}

	if !allowed("a") || !allowed("a") {
		t.Fatal("expected burst of two to be allowed")
	}
	ok, retryAfter := limiter.Allow("a")
	if ok {
		t.Fatal("expected third request to be limited")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("expected retry within a minute got %v", retryAfter)
	}
	if !allowed("b") {
		t.Fatal("expected a different key to be tracked independently")
	}

	now = now.Add(time.Minute)
	if !allowed("a") {
		t.Fatal("expected bucket to refill after the window")
	}
}

func TestRateLimiterSweepsIdleKeys(t *testing.T) {
	limiter := NewIPRateLimiter(config.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1}, time.Minute).(*keyedLimiter)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("idle")
	now = now.Add(2 * time.Minute)
	limiter.Allow("fresh")

	if _, ok := limiter.buckets["idle"]; ok {
		t.Fatal("expected idle bucket to be swept")
	}
	if _, ok := limiter.buckets["fresh"]; !ok {
		t.Fatal("expected active bucket to be kept")
	}
}

func TestLimitRespondsTooManyRequests(t *testing.T) {
	limiter := NewIPRateLimiter(config.RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 1}, time.Hour)
	handler := Limit(limiter, "login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var rec *httptest.ResponseRecorder
	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected %d got %d", i, want, rec.Code)
		}
	}
	if got := rec.Header().Get("Retry-After"); got == "" || got == "0" {
		t.Fatalf("expected positive Retry-After header got %q", got)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "1",
		300 * time.Millisecond:  "1",
		1500 * time.Millisecond: "2",
		time.Minute:             "60",
	}
	for in, want := range cases {
		if got := retryAfterSeconds(in); got != want {
			t.Errorf("retryAfterSeconds(%v) = %s want %s", in, got, want)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4321"
	req.Header.Set("X-Forwarded-For", "198.51.100.2")
	if got := ClientIP(req); got != "192.0.2.1" {
		t.Fatalf("expected remote host got %s", got)
	}
}

func TestLimitIgnoresForwardedForWithoutTrustedProxy(t *testing.T) {
	limiter := NewIPRateLimiter(config.RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 1}, time.Hour)
	handler := TrustProxy(false)(Limit(limiter, "login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	for i, spoofed := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("X-Forwarded-For", spoofed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		want := http.StatusTooManyRequests
		if i == 0 {
			want = http.StatusOK
		}
		if rec.Code != want {
			t.Fatalf("request %d with X-Forwarded-For %s: expected %d got %d", i, spoofed, want, rec.Code)
		}
	}
}

func TestTrustProxyUsesLastForwardedHop(t *testing.T) {
	cases := []struct {
		name      string
		trusted   bool
		forwarded []string
		want      string
	}{
		{"untrusted", false, []string{"198.51.100.2"}, "10.0.0.1"},
		{"single hop", true, []string{"198.51.100.2"}, "198.51.100.2"},
		{"client supplied prefix", true, []string{"1.2.3.4, 198.51.100.2"}, "198.51.100.2"},
		{"repeated headers", true, []string{"1.2.3.4", "198.51.100.9"}, "198.51.100.9"},
		{"garbage hop", true, []string{"not-an-ip"}, "10.0.0.1"},
		{"no header", true, nil, "10.0.0.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			handler := TrustProxy(tc.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:443"
			for _, v := range tc.forwarded {
				req.Header.Add("X-Forwarded-For", v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got != tc.want {
				t.Fatalf("expected client ip %s got %s", tc.want, got)
			}
		})
	}
}

func TestRateLimiterShortWindowStillLimits(t *testing.T) {
	limiter := NewIPRateLimiter(config.RateLimitConfig{Requests: 3, Window: 2 * time.Nanosecond, Burst: 1}, time.Minute).(*keyedLimiter)

	if limiter.limit == rate.Inf {
		t.Fatal("expected a finite refill rate")
	}
	if got := float64(limiter.limit); got < 1.49e9 || got > 1.51e9 {
		t.Fatalf("expected about 1.5e9 tokens per second got %v", got)
	}
}

func TestRequestLoggerSetsRequestIDAndRecovers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var requestID string
	ok := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if requestID == "" || rec.Header().Get(RequestIDHeader) != requestID {
		t.Fatalf("expected request id header %q to match context %q", rec.Header().Get(RequestIDHeader), requestID)
	}

	incoming := "6f1c1d7e-4d5b-4a8e-9a4f-5b1f8f0e2c11"
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec = httptest.NewRecorder()
	ok.ServeHTTP(rec, req)
	if requestID != incoming {
		t.Fatalf("expected incoming request id to be reused, got %q", requestID)
	}

	panicking := RequestLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))
	rec = httptest.NewRecorder()
	panicking.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode panic response: %v", err)
	}
	if body["message"] != "something went wrong" {
		t.Fatalf("unexpected panic body: %v", body)
	}
}

func TestAccessLevel(t *testing.T) {
	cases := map[int]slog.Level{
		http.StatusOK:                  slog.LevelInfo,
		http.StatusCreated:             slog.LevelInfo,
		http.StatusUnauthorized:        slog.LevelWarn,
		http.StatusTooManyRequests:     slog.LevelWarn,
		http.StatusInternalServerError: slog.LevelError,
	}
	for status, want := range cases {
		if got := accessLevel(status); got != want {
			t.Errorf("accessLevel(%d) = %v want %v", status, got, want)
		}
	}
}
