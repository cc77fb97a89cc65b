package main

import (
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HTTP_ADDR", "CORS_ALLOWED_ORIGINS", "DATABASE_URL", "PG_DSN",
		"DB_MAX_CONNS", "DB_MIN_CONNS", "DB_ACQUIRE_TIMEOUT", "DB_MAX_CONN_LIFETIME", "DB_AUTO_MIGRATE",
		"BILLING_MONTHLY_POLICY", "BILLING_MAX_DEPTH", "BILLING_BATCH_SIZE", "BILLING_PARALLELISM",
		"BILLING_CONFIG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PG_DSN", "postgres://localhost/billing")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/billing" {
		t.Fatalf("unexpected url: %s", cfg.Database.URL)
	}
	if cfg.Database.MaxConns != 10 || cfg.Database.AcquireTimeout != 2*time.Second {
		t.Fatalf("unexpected pool defaults: %+v", cfg.Database)
	}
	if cfg.Billing.MonthlyPolicy != "derived" || cfg.Billing.BatchSize != 500 || cfg.Billing.Parallelism != 4 {
		t.Fatalf("unexpected billing defaults: %+v", cfg.Billing)
	}
	if cfg.AllowedOrigins != nil {
		t.Fatalf("expected no origins, got %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigRequiresDatabase(t *testing.T) {
	clearConfigEnv(t)
	if _, err := loadConfig(); err == nil {
		t.Fatalf("expected error without database url")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATABASE_URL", "postgres://db/billing")
	t.Setenv("DB_MAX_CONNS", "3")
	t.Setenv("DB_ACQUIRE_TIMEOUT", "500ms")
	t.Setenv("BILLING_MONTHLY_POLICY", "stored")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Database.MaxConns != 3 || cfg.Database.AcquireTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected pool config: %+v", cfg.Database)
	}
	if cfg.Billing.MonthlyPolicy != "stored" {
		t.Fatalf("unexpected policy: %s", cfg.Billing.MonthlyPolicy)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env/billing")
	path := filepath.Join(t.TempDir(), "billing.yaml")
	content := `
database:
  max_conns: 20
  acquire_timeout: 5s
billing:
  monthly_policy: stored
  batch_size: 100
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BILLING_CONFIG", path)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Database.URL != "postgres://env/billing" {
		t.Fatalf("env url should survive overlay, got %s", cfg.Database.URL)
	}
	if cfg.Database.MaxConns != 20 || cfg.Database.AcquireTimeout != 5*time.Second {
		t.Fatalf("unexpected pool config: %+v", cfg.Database)
	}
	if cfg.Billing.MonthlyPolicy != "stored" || cfg.Billing.BatchSize != 100 || cfg.Billing.Parallelism != 4 {
		t.Fatalf("unexpected billing config: %+v", cfg.Billing)
	}
}

func TestLoadConfigRejectsUnknownPolicy(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATABASE_URL", "postgres://db/billing")
	t.Setenv("BILLING_MONTHLY_POLICY", "weekly")
	if _, err := loadConfig(); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	var buf testWriter
	logger := newTestLogger(&buf)
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shop/all", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !buf.contains("GET /shop/all 418") {
		t.Fatalf("unexpected log line: %q", buf.String())
	}
}

type testWriter struct {
	strings.Builder
}

func (w *testWriter) contains(s string) bool {
	return strings.Contains(w.String(), s)
}

func newTestLogger(w *testWriter) *log.Logger {
	return log.New(w, "", 0)
}
