package influxdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func testConfig(url string) Config {
	host, port, _ := strings.Cut(strings.TrimPrefix(url, "http://"), ":")
	_ = host
	return Config{
		Host:          host,
		Port:          mustAtoi(port),
		Org:           "myorg",
		WriteEndpoint: "/api/v3/write_lp",
	}
}

func mustAtoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

func TestWriteSuccessResetsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("db"); got != "telemetry" {
			t.Fatalf("db query param = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWriter(testConfig(srv.URL), zap.NewNop())
	if err := w.Write(context.Background(), "telemetry", []byte("m,t=1 f=1 1"), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.inBackoff {
		t.Fatal("writer should not be in backoff after a 2xx response")
	}
}

func TestWrite5xxArmsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWriter(testConfig(srv.URL), zap.NewNop())
	if err := w.Write(context.Background(), "telemetry", []byte("m f=1 1"), false); err == nil {
		t.Fatal("expected error on 500 response")
	}
	if !w.inBackoff {
		t.Fatal("expected writer to be in backoff after a 500 response")
	}

	// A second write attempted immediately is dropped without hitting the
	// network, since the writer is still within its backoff window.
	calls := 0
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv2.Close()
	w.cfg.Host, w.cfg.Port = testConfig(srv2.URL).Host, testConfig(srv2.URL).Port
	if err := w.Write(context.Background(), "telemetry", []byte("m f=1 1"), false); err == nil {
		t.Fatal("expected backoff error")
	}
	if calls != 0 {
		t.Fatalf("expected no network call while in backoff, got %d", calls)
	}
}

func TestWrite429ArmsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	w := NewWriter(testConfig(srv.URL), zap.NewNop())
	if err := w.Write(context.Background(), "telemetry", []byte("m f=1 1"), false); err == nil {
		t.Fatal("expected error on 429 response")
	}
	if !w.inBackoff {
		t.Fatal("expected writer to be in backoff after a 429 response")
	}
}

func TestWrite4xxDoesNotArmBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	w := NewWriter(testConfig(srv.URL), zap.NewNop())
	if err := w.Write(context.Background(), "telemetry", []byte("m f=1 1"), false); err == nil {
		t.Fatal("expected error on 400 response")
	}
	if w.inBackoff {
		t.Fatal("a plain 400 should not arm the retry backoff")
	}
}
