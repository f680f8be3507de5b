package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/wifisetup/internal/config"
	"github.com/muurk/wifisetup/internal/discovery"
	"github.com/muurk/wifisetup/internal/hotspot"
	"github.com/muurk/wifisetup/internal/logging"
	"github.com/muurk/wifisetup/internal/nm"
	"github.com/muurk/wifisetup/internal/portal"
	"github.com/muurk/wifisetup/internal/provision"
	"github.com/muurk/wifisetup/internal/ui"
	"github.com/muurk/wifisetup/internal/version"
	"github.com/muurk/wifisetup/internal/wifi"
)

const configDefaultHint = config.DefaultPath

// Command flags
var (
	watchStatus     bool
	discoverTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(teardownCmd)
	rootCmd.AddCommand(configCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Keep refreshing every second")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for announcements")
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if ifaceName != "" {
		cfg.Interface = ifaceName
	}
	return cfg, nil
}

// initLogging starts the logger. Long-running commands log at fallback
// when neither the flag nor the environment picks a level.
func initLogging(fallback string) error {
	level := logLevel
	if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		level = fallback
	}
	return logging.Initialize(level)
}

func newNMCLI(cfg *config.Config) *nm.NMCLI {
	return nm.New(cfg.NMCLIPath, nm.ExecRunner{}, cfg.Timing.CommandTimeout)
}

func newController(cfg *config.Config, client hotspot.Manager, session string) *hotspot.Controller {
	var opts []hotspot.Option
	if cfg.Portal.Advertise {
		opts = append(opts, hotspot.WithAnnouncer(discovery.NewAdvertiser(), cfg.Portal.Port, session))
	}
	return hotspot.NewController(client, hotspot.NewFlag(cfg.StatusFlag), opts...)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the provisioning controller (default)",
	Long: `Run the provisioning controller.

Exit status is 0 when the interface was already connected, when a network
was joined, or when interrupted; it is 1 when the setup hotspot could not
be created or restarted.`,
	RunE: runProvision,
}

func runProvision(cmd *cobra.Command, args []string) error {
	if err := initLogging("info"); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newNMCLI(cfg)
	if err := client.Available(ctx); err != nil {
		return err
	}

	session := uuid.NewString()
	logging.Info("Starting provisioning",
		zap.String("session", session),
		zap.String("interface", cfg.Interface),
		zap.String("version", version.Full()),
	)

	orch := provision.New(cfg, provision.Components{
		Probe:   wifi.NewProbe(client, cfg.Hotspot.ConnectionName, cfg.Timing.ProbeTimeout),
		Scanner: wifi.NewScanner(client, cfg.Hotspot.SSID, cfg.Timing.ScanSettle),
		Hotspot: newController(cfg, client, session),
		Joiner:  client,
	}, session)
	srv := portal.New(portal.Config{
		Addr:        cfg.ListenAddr(),
		HotspotSSID: cfg.Hotspot.SSID,
	}, orch)

	outcome, err := orch.Run(ctx, srv)
	logging.Info("Provisioning finished", zap.Stringer("outcome", outcome))
	if code := outcome.ExitCode(); code != 0 {
		return &exitError{code: code, err: err}
	}
	return nil
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Wi-Fi networks",
	Long: `Scan for visible Wi-Fi networks and print them strongest first.

Scanning needs the radio, so this refuses to run while the setup hotspot
is active.`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := initLogging(""); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if ip, active, err := hotspot.NewFlag(cfg.StatusFlag).Read(); err != nil {
		return err
	} else if active {
		return fmt.Errorf("setup hotspot is active at %s; scan from the captive page instead", ip)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Scanning on %s...\n\n", cfg.Interface)
	nets, err := wifi.NewScanner(newNMCLI(cfg), cfg.Hotspot.SSID, cfg.Timing.ScanSettle).Scan(ctx, cfg.Interface)
	if err != nil {
		return fmt.Errorf("scan failed: %s", nm.Diagnostic(err))
	}
	fmt.Println(ui.RenderNetworks(nets))
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the setup hotspot status",
	Long: `Show what the device display shows: the hotspot name, passphrase and
captive page address while the hotspot is up.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := initLogging(""); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flag := hotspot.NewFlag(cfg.StatusFlag)
	read := func() (ui.Status, error) {
		ip, active, err := flag.Read()
		if err != nil {
			return ui.Status{}, err
		}
		return ui.Status{
			Active:     active,
			SSID:       cfg.Hotspot.SSID,
			Passphrase: cfg.Hotspot.Passphrase,
			IP:         ip,
		}, nil
	}

	if watchStatus {
		return ui.Watch(read)
	}
	st, err := read()
	if err != nil {
		return err
	}
	fmt.Println(ui.RenderStatus(st, ui.GetTerminalWidth()))
	return nil
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find setup portals over mDNS",
	Long: `Listen for setup portals announced over mDNS.

Run this from a machine joined to a device's setup hotspot to find the
captive page address.`,
	Example: `  # Listen for 5 seconds (default)
  wifisetup discover

  # Longer listen on busy networks
  wifisetup discover --timeout 15s`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if err := initLogging(""); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Listening for setup portals (timeout: %s)...\n\n", discoverTimeout)
	portals, err := discovery.Scan(ctx, discoverTimeout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("discovery failed: %w", err)
	}
	fmt.Println(ui.RenderPortals(portals))
	return nil
}

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Remove the setup hotspot and status flag",
	Long: `Bring down and delete the setup hotspot profile and remove the status
flag. Safe to run when nothing is there. Use it to recover after a crash.`,
	RunE: runTeardown,
}

func runTeardown(cmd *cobra.Command, args []string) error {
	if err := initLogging("warn"); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timing.CommandTimeout)
	defer cancel()

	ctrl := hotspot.NewController(newNMCLI(cfg), hotspot.NewFlag(cfg.StatusFlag))
	ctrl.Stop(ctx, cfg.Hotspot.ConnectionName)

	fmt.Println(ui.NewSuccessResult("Setup hotspot removed",
		ui.Detail{Key: "Profile", Value: cfg.Hotspot.ConnectionName},
		ui.Detail{Key: "Flag", Value: cfg.StatusFlag},
	).Render())
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := cfg.Marshal()
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}
