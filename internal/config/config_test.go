package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_ADDR", "DOCUMENT_LIST_LIMIT", "MINIO_ENDPOINT", "MINIO_USE_SSL", "MEDIA_URL_TTL_SECONDS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Fatalf("unexpected addr %q", cfg.Addr)
	}
	if cfg.DocumentListLimit != 0 {
		t.Fatalf("expected unbounded lists by default, got %d", cfg.DocumentListLimit)
	}
	if cfg.MediaEnabled() {
		t.Fatal("media must be disabled without an endpoint")
	}
	if cfg.MediaURLTTL != 15*time.Minute {
		t.Fatalf("unexpected media ttl %s", cfg.MediaURLTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DOCUMENT_LIST_LIMIT", "200")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MAX_UPLOAD_MB", "not-a-number")

	cfg := Load()
	if cfg.DocumentListLimit != 200 {
		t.Fatalf("expected limit 200, got %d", cfg.DocumentListLimit)
	}
	if !cfg.MediaEnabled() || !cfg.MinioUseSSL {
		t.Fatalf("expected media over ssl, got %+v", cfg)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Fatalf("invalid int must fall back to default, got %d", cfg.MaxUploadBytes)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
