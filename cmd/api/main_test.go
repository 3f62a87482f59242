package main

import (
	"net/http"
	"testing"
	"time"

	appconfig "github.com/wolfman30/clinic-calendar/internal/config"
)

func TestNewServerOutlivesBackendTimeout(t *testing.T) {
	cfg := &appconfig.Config{Port: "9090", BackendTimeout: 20 * time.Second}
	srv := newServer(cfg, http.NotFoundHandler())

	if srv.Addr != ":9090" {
		t.Fatalf("expected addr :9090, got %s", srv.Addr)
	}
	if srv.WriteTimeout <= cfg.BackendTimeout {
		t.Fatalf("write timeout %s must exceed backend timeout %s", srv.WriteTimeout, cfg.BackendTimeout)
	}
}
