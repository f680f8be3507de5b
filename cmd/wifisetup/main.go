// Wifisetup brings a headless device onto a Wi-Fi network.
//
// If the wireless interface does not connect on its own within a short
// window, wifisetup starts a setup hotspot, serves a captive page on it,
// and joins whichever network the operator picks there.
//
// Usage:
//
//	wifisetup [command] [flags]
//
// Running without arguments runs the provisioning controller.
// See 'wifisetup --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifisetup/internal/logging"
	"github.com/muurk/wifisetup/internal/version"
)

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err == nil {
		return
	}

	code := 1
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		code = exitErr.code
		err = exitErr.err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

// Global flags
var (
	configPath string
	ifaceName  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "wifisetup",
	Short: "Headless Wi-Fi provisioning controller",
	Long: `Brings a headless device onto a Wi-Fi network.

Waits for the wireless interface to connect. If it does not, scans for
networks, starts a setup hotspot and serves a captive page where an
operator picks a network and enters its password.

If no command is specified, the provisioning controller runs.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runProvision,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+configDefaultHint+")")
	rootCmd.PersistentFlags().StringVar(&ifaceName, "interface", "", "Wireless interface (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (env "+logging.LogLevelEnvVar+")")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wifisetup %s\n", version.Full())
	},
}
