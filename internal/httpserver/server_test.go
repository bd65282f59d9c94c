package httpserver

import (
	"net/http"
	"testing"
	"time"
)

func TestNewAppliesDefaults(t *testing.T) {
	srv := New(8000, http.NotFoundHandler(), Options{})

	if srv.Addr() != ":8000" {
		t.Fatalf("expected :8000 got %s", srv.Addr())
	}
	if srv.inner.WriteTimeout != DefaultWriteTimeout {
		t.Fatalf("expected default write timeout got %v", srv.inner.WriteTimeout)
	}
	if srv.inner.ReadHeaderTimeout == 0 {
		t.Fatal("expected read header timeout to be set")
	}
}

func TestNewHonoursWriteTimeout(t *testing.T) {
	srv := New(0, http.NotFoundHandler(), Options{WriteTimeout: 2 * time.Minute})

	if srv.inner.WriteTimeout != 2*time.Minute {
		t.Fatalf("expected 2m write timeout got %v", srv.inner.WriteTimeout)
	}
}
