package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lachiem1/payplan/internal/config"
)

func TestRemoteStatusPingsDocumentAPI(t *testing.T) {
	t.Setenv("PAYPLAN_REMOTE_URL", "")
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ping" || !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Remote.Kind = config.RemoteHTTP
	cfg.Remote.URL = server.URL

	if got := remoteStatus(context.Background(), cfg, "token"); got != "http reachable" {
		t.Fatalf("remoteStatus() = %q, want %q", got, "http reachable")
	}
	healthy.Store(false)
	if got := remoteStatus(context.Background(), cfg, "token"); !strings.Contains(got, "unreachable") {
		t.Fatalf("remoteStatus() = %q, want unreachable", got)
	}
}

func TestRemoteStatusLocalOnly(t *testing.T) {
	if got := remoteStatus(context.Background(), config.DefaultConfig(), ""); !strings.Contains(got, "local only") {
		t.Fatalf("remoteStatus() = %q, want local only", got)
	}
}
