package config

import "time"

// Config is the complete runtime configuration of the provisioning
// controller. Every field has a default; a config file only needs to name
// what differs on a given device.
type Config struct {
	// Interface is the wireless interface used for scanning, joining and
	// hosting the access point.
	Interface string `yaml:"interface"`

	// NMCLIPath is the nmcli binary (searched in PATH when not absolute).
	NMCLIPath string `yaml:"nmcli_path"`

	// StatusFlag is the file announcing an active hotspot to the display.
	StatusFlag string `yaml:"status_flag"`

	Hotspot Hotspot `yaml:"hotspot"`
	Wait    Wait    `yaml:"wait"`
	Portal  Portal  `yaml:"portal"`
	Timing  Timing  `yaml:"timing"`
	Restart Restart `yaml:"restart"`
}

// Hotspot is the fixed identity of the setup access point.
type Hotspot struct {
	SSID           string `yaml:"ssid"`
	Passphrase     string `yaml:"passphrase"`
	Address        string `yaml:"address"`
	Prefix         int    `yaml:"prefix"`
	ConnectionName string `yaml:"connection_name"`
}

// Wait bounds the initial "does the device already have Wi-Fi" phase.
type Wait struct {
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Portal configures the captive web page.
type Portal struct {
	// Listen is the bind host; empty means the hotspot address.
	Listen    string `yaml:"listen"`
	Port      int    `yaml:"port"`
	Advertise bool   `yaml:"advertise"` // mDNS announcement while the hotspot is up
}

// Timing holds settle delays and upper bounds for radio operations.
type Timing struct {
	ScanSettle      time.Duration `yaml:"scan_settle"`       // after requesting a rescan
	RadioSwitch     time.Duration `yaml:"radio_switch"`      // after tearing the hotspot down
	AddressDelay    time.Duration `yaml:"address_delay"`     // after a join, before reading the IP
	HotspotSettle   time.Duration `yaml:"hotspot_settle"`    // after the hotspot comes up
	JoinTimeout     time.Duration `yaml:"join_timeout"`      // hard bound on one join attempt
	CommandTimeout  time.Duration `yaml:"command_timeout"`   // hard bound on any other nmcli call
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`  // portal graceful shutdown
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`     // single connectivity query
}

// Restart is the ceiling for bringing the hotspot back after a rescan or a
// failed join. Exhausting it ends the provisioning attempt.
type Restart struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Interface:  "wlP1p1s0",
		NMCLIPath:  "nmcli",
		StatusFlag: "/tmp/wifi_setup_active",
		Hotspot: Hotspot{
			SSID:           "JetsonSetup",
			Passphrase:     "jetson1234",
			Address:        "10.42.0.1",
			Prefix:         24,
			ConnectionName: "JetsonSetup-Hotspot",
		},
		Wait: Wait{
			Timeout:      15 * time.Second,
			PollInterval: 2 * time.Second,
		},
		Portal: Portal{
			Port:      80,
			Advertise: true,
		},
		Timing: Timing{
			ScanSettle:      2 * time.Second,
			RadioSwitch:     2 * time.Second,
			AddressDelay:    3 * time.Second,
			HotspotSettle:   2 * time.Second,
			JoinTimeout:     45 * time.Second,
			CommandTimeout:  30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			ProbeTimeout:    5 * time.Second,
		},
		Restart: Restart{
			MaxAttempts: 3,
			Backoff:     2 * time.Second,
			MaxBackoff:  10 * time.Second,
		},
	}
}

// ListenAddr returns host:port for the portal listener.
func (c *Config) ListenAddr() string {
	host := c.Portal.Listen
	if host == "" {
		host = c.Hotspot.Address
	}
	return joinHostPort(host, c.Portal.Port)
}
