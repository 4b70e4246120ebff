package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONTENT_PATH", "")
	t.Setenv("DEV_MODE", "")
	t.Setenv("LOCALBROWSER_HTTP_ADDR", "")
	t.Setenv("LOCALBROWSER_LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":5000" {
		t.Errorf("addr = %q, want :5000", cfg.Addr)
	}
	if cfg.DiscoveryPort != 41234 {
		t.Errorf("discovery port = %d, want 41234", cfg.DiscoveryPort)
	}
	if cfg.DiscoveryTimeout != 2*time.Second {
		t.Errorf("discovery timeout = %s, want 2s", cfg.DiscoveryTimeout)
	}
	if !cfg.ManageFirewall {
		t.Error("expected firewall management enabled by default")
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("log = %s/%s, want info/json", cfg.LogLevel, cfg.LogFormat)
	}
	port, err := cfg.HTTPPort()
	if err != nil || port != 5000 {
		t.Errorf("http port = %d (%v), want 5000", port, err)
	}
}

func TestLoadDevMode(t *testing.T) {
	t.Setenv("DEV_MODE", "true")
	t.Setenv("LOCALBROWSER_LOG_LEVEL", "")
	t.Setenv("LOCALBROWSER_LOG_FORMAT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "console" {
		t.Errorf("log = %s/%s, want debug/console", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"discovery port", "LOCALBROWSER_DISCOVERY_PORT", "70000"},
		{"http addr", "LOCALBROWSER_HTTP_ADDR", "no-port"},
		{"search cap", "LOCALBROWSER_SEARCH_MAX_RESULTS", "-1"},
		{"text cap", "LOCALBROWSER_MAX_TEXT_BYTES", "-5"},
		{"timeout", "LOCALBROWSER_DISCOVERY_TIMEOUT", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("LOCALBROWSER_DISCOVERY_PORT", "abc")
	t.Setenv("LOCALBROWSER_DISCOVERY_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DiscoveryPort != 41234 {
		t.Errorf("discovery port = %d, want fallback 41234", cfg.DiscoveryPort)
	}
	if cfg.DiscoveryTimeout != 2*time.Second {
		t.Errorf("timeout = %s, want fallback 2s", cfg.DiscoveryTimeout)
	}
}
