package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Hotspot.SSID != "JetsonSetup" {
		t.Errorf("Hotspot.SSID = %q, want JetsonSetup", cfg.Hotspot.SSID)
	}
	if cfg.Wait.Timeout != 15*time.Second {
		t.Errorf("Wait.Timeout = %v, want 15s", cfg.Wait.Timeout)
	}
	if got := cfg.ListenAddr(); got != "10.42.0.1:80" {
		t.Errorf("ListenAddr() = %q, want 10.42.0.1:80", got)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `interface: wlan0
hotspot:
  ssid: FrameSetup
  passphrase: supersecret
wait:
  timeout: 30s
portal:
  listen: 0.0.0.0
  port: 8080
restart:
  max_attempts: 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Interface != "wlan0" {
		t.Errorf("Interface = %q, want wlan0", cfg.Interface)
	}
	if cfg.Hotspot.SSID != "FrameSetup" {
		t.Errorf("Hotspot.SSID = %q, want FrameSetup", cfg.Hotspot.SSID)
	}
	// Untouched fields keep their defaults
	if cfg.Hotspot.Address != "10.42.0.1" {
		t.Errorf("Hotspot.Address = %q, want 10.42.0.1", cfg.Hotspot.Address)
	}
	if cfg.Wait.Timeout != 30*time.Second {
		t.Errorf("Wait.Timeout = %v, want 30s", cfg.Wait.Timeout)
	}
	if cfg.Wait.PollInterval != 2*time.Second {
		t.Errorf("Wait.PollInterval = %v, want 2s", cfg.Wait.PollInterval)
	}
	if cfg.Restart.MaxAttempts != 5 {
		t.Errorf("Restart.MaxAttempts = %d, want 5", cfg.Restart.MaxAttempts)
	}
	if got := cfg.ListenAddr(); got != "0.0.0.0:8080" {
		t.Errorf("ListenAddr() = %q, want 0.0.0.0:8080", got)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() should fail for a missing explicit path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("hotspot: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail for malformed YAML")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("hotspot:\n  passphrase: short\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Load() error = %v, want *ValidationError", err)
	}
	if verr.Field != "hotspot.passphrase" {
		t.Errorf("Field = %q, want hotspot.passphrase", verr.Field)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty interface", func(c *Config) { c.Interface = "" }, "interface"},
		{"empty ssid", func(c *Config) { c.Hotspot.SSID = "" }, "hotspot.ssid"},
		{"ssid too long", func(c *Config) { c.Hotspot.SSID = "abcdefghijklmnopqrstuvwxyz0123456" }, "hotspot.ssid"},
		{"passphrase too long", func(c *Config) {
			b := make([]byte, 64)
			for i := range b {
				b[i] = 'a'
			}
			c.Hotspot.Passphrase = string(b)
		}, "hotspot.passphrase"},
		{"ipv6 address", func(c *Config) { c.Hotspot.Address = "fe80::1" }, "hotspot.address"},
		{"bad prefix", func(c *Config) { c.Hotspot.Prefix = 33 }, "hotspot.prefix"},
		{"empty connection name", func(c *Config) { c.Hotspot.ConnectionName = "" }, "hotspot.connection_name"},
		{"zero wait", func(c *Config) { c.Wait.Timeout = 0 }, "wait.timeout"},
		{"zero poll", func(c *Config) { c.Wait.PollInterval = 0 }, "wait.poll_interval"},
		{"bad port", func(c *Config) { c.Portal.Port = 0 }, "portal.port"},
		{"zero join timeout", func(c *Config) { c.Timing.JoinTimeout = 0 }, "timing.join_timeout"},
		{"no restart attempts", func(c *Config) { c.Restart.MaxAttempts = 0 }, "restart.max_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Interface = "wlan1"

	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Interface != "wlan1" || loaded.Timing.JoinTimeout != cfg.Timing.JoinTimeout {
		t.Errorf("round trip mismatch: got interface %q join %v", loaded.Interface, loaded.Timing.JoinTimeout)
	}
}
