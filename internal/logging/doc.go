// Package logging provides structured logging for wifisetup.
//
// This package wraps a package-global zap logger with convenience functions
// used throughout the provisioning controller. The controller runs headless
// under an init system, so output is plain console format on stdout.
//
// # Log Levels
//
//   - Debug: external command lines (redacted), scan tables, settle waits
//   - Info: state transitions, hotspot up/down, portal requests
//   - Warn: best-effort failures (rescan refused, mDNS advertisement)
//   - Error: failures that end the provisioning attempt
//
// # Configuration
//
//	if err := logging.Initialize("info"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// An empty level falls back to WIFISETUP_LOG_LEVEL; when that is also unset
// the logger is a no-op, which keeps one-shot commands quiet.
//
// # Secrets
//
// Callers must never pass Wi-Fi passwords or the hotspot passphrase as
// field values. LogCommand expects arguments that were already redacted.
package logging
