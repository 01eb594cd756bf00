package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/relay")
	t.Setenv("ACCESS_CODES", "abc123,test456, demo789")
	t.Setenv("WHISPER_URL", "http://worker:8000")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.RemoteTimeout != 600*time.Second {
		t.Fatalf("timeout = %s, want 600s", cfg.RemoteTimeout)
	}
	if cfg.ForwardMode != ForwardInline {
		t.Fatalf("forward mode = %q", cfg.ForwardMode)
	}
	if cfg.Workers != 4 {
		t.Fatalf("workers = %d", cfg.Workers)
	}

	want := []string{"abc123", "test456", "demo789"}
	if len(cfg.AccessCodes) != len(want) {
		t.Fatalf("codes = %v", cfg.AccessCodes)
	}
	for i, code := range want {
		if cfg.AccessCodes[i] != code {
			t.Fatalf("codes[%d] = %q, want %q", i, cfg.AccessCodes[i], code)
		}
	}
}

func TestLoadRejectsMissingRequired(t *testing.T) {
	cases := []string{"DATABASE_URL", "ACCESS_CODES", "WHISPER_URL"}

	for _, missing := range cases {
		t.Run(missing, func(t *testing.T) {
			setRequired(t)
			t.Setenv(missing, "")

			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted empty %s", missing)
			}
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "30")
	t.Setenv("WORKERS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.RemoteTimeout != 30*time.Second {
		t.Fatalf("timeout = %s", cfg.RemoteTimeout)
	}
	if cfg.Workers != 2 {
		t.Fatalf("workers = %d", cfg.Workers)
	}
}

func TestLoadURLModeRequiresBucket(t *testing.T) {
	setRequired(t)
	t.Setenv("FORWARD_MODE", "url")

	if _, err := Load(); err == nil {
		t.Fatal("url mode accepted without S3_BUCKET")
	}

	t.Setenv("S3_BUCKET", "relay-audio")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ForwardMode != ForwardURL || cfg.S3.Bucket != "relay-audio" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsUnknownForwardMode(t *testing.T) {
	setRequired(t)
	t.Setenv("FORWARD_MODE", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatal("unknown forward mode accepted")
	}
}
