package config

import (
	"fmt"
	"net"
)

// WPA2-PSK passphrase bounds.
const (
	MinPassphraseLen = 8
	MaxPassphraseLen = 63
)

// ValidationError reports a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Interface == "" {
		return &ValidationError{Field: "interface", Message: "must not be empty"}
	}
	if c.NMCLIPath == "" {
		return &ValidationError{Field: "nmcli_path", Message: "must not be empty"}
	}
	if c.StatusFlag == "" {
		return &ValidationError{Field: "status_flag", Message: "must not be empty"}
	}

	if c.Hotspot.SSID == "" {
		return &ValidationError{Field: "hotspot.ssid", Message: "must not be empty"}
	}
	if len(c.Hotspot.SSID) > 32 {
		return &ValidationError{Field: "hotspot.ssid", Message: "must be at most 32 bytes"}
	}
	if n := len(c.Hotspot.Passphrase); n < MinPassphraseLen || n > MaxPassphraseLen {
		return &ValidationError{
			Field:   "hotspot.passphrase",
			Message: fmt.Sprintf("must be %d to %d characters, got %d", MinPassphraseLen, MaxPassphraseLen, n),
		}
	}
	if ip := net.ParseIP(c.Hotspot.Address); ip == nil || ip.To4() == nil {
		return &ValidationError{Field: "hotspot.address", Message: fmt.Sprintf("%q is not an IPv4 address", c.Hotspot.Address)}
	}
	if c.Hotspot.Prefix < 1 || c.Hotspot.Prefix > 32 {
		return &ValidationError{Field: "hotspot.prefix", Message: "must be between 1 and 32"}
	}
	if c.Hotspot.ConnectionName == "" {
		return &ValidationError{Field: "hotspot.connection_name", Message: "must not be empty"}
	}

	if c.Wait.Timeout <= 0 {
		return &ValidationError{Field: "wait.timeout", Message: "must be positive"}
	}
	if c.Wait.PollInterval <= 0 {
		return &ValidationError{Field: "wait.poll_interval", Message: "must be positive"}
	}

	if c.Portal.Port < 1 || c.Portal.Port > 65535 {
		return &ValidationError{Field: "portal.port", Message: "must be between 1 and 65535"}
	}

	if c.Timing.JoinTimeout <= 0 {
		return &ValidationError{Field: "timing.join_timeout", Message: "must be positive"}
	}
	if c.Timing.CommandTimeout <= 0 {
		return &ValidationError{Field: "timing.command_timeout", Message: "must be positive"}
	}

	if c.Restart.MaxAttempts < 1 {
		return &ValidationError{Field: "restart.max_attempts", Message: "must be at least 1"}
	}
	if c.Restart.Backoff < 0 || c.Restart.MaxBackoff < 0 {
		return &ValidationError{Field: "restart", Message: "backoff must not be negative"}
	}

	return nil
}
