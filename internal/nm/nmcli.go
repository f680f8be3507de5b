package nm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds every nmcli call that is not a join.
const DefaultCommandTimeout = 30 * time.Second

// defaultWaitSeconds is passed to `nmcli --wait` when the join context has
// no deadline.
const defaultWaitSeconds = 30

// Device states reported by `nmcli device`.
const (
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
	StateUnavailable  = "unavailable"
)

// DeviceStatus is one row of `nmcli device`.
type DeviceStatus struct {
	Device     string
	State      string
	Connection string
}

// Connected reports whether NetworkManager considers the device fully up.
// "connecting (...)" states do not count.
func (d DeviceStatus) Connected() bool {
	return d.State == StateConnected || strings.HasPrefix(d.State, StateConnected+" ")
}

// AccessPoint is one row of `nmcli device wifi list`. Several rows may share
// an SSID (one per BSSID).
type AccessPoint struct {
	SSID     string
	Signal   int
	Security string
}

// HotspotProfile describes the access-point connection profile.
type HotspotProfile struct {
	Name       string
	Interface  string
	SSID       string
	Passphrase string
	Address    string
	Prefix     int
}

// NMCLI talks to NetworkManager through the nmcli command-line client in
// terse mode.
type NMCLI struct {
	path    string
	runner  Runner
	timeout time.Duration
}

// New creates an nmcli client. A nil runner means ExecRunner; a zero
// timeout means DefaultCommandTimeout.
func New(path string, runner Runner, timeout time.Duration) *NMCLI {
	if path == "" {
		path = "nmcli"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &NMCLI{path: path, runner: runner, timeout: timeout}
}

func (n *NMCLI) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.runner.Run(ctx, n.path, args...)
}

// Available checks that nmcli can be executed at all.
func (n *NMCLI) Available(ctx context.Context) error {
	if _, err := n.run(ctx, "--version"); err != nil {
		return fmt.Errorf("nmcli is not usable at %q: %w", n.path, err)
	}
	return nil
}

// DeviceStatus returns the state of iface.
func (n *NMCLI) DeviceStatus(ctx context.Context, iface string) (DeviceStatus, error) {
	out, err := n.run(ctx, "-t", "-f", "DEVICE,STATE,CONNECTION", "device")
	if err != nil {
		return DeviceStatus{}, err
	}
	for _, line := range strings.Split(out, "\n") {
		fields := SplitTerse(line)
		if len(fields) < 3 || fields[0] != iface {
			continue
		}
		conn := fields[2]
		if conn == "--" {
			conn = ""
		}
		return DeviceStatus{Device: fields[0], State: fields[1], Connection: conn}, nil
	}
	return DeviceStatus{}, fmt.Errorf("device %s: %w", iface, ErrNotFound)
}

// Rescan asks the radio for a fresh scan. NetworkManager refuses rescans
// issued too close together; callers treat an error as advisory.
func (n *NMCLI) Rescan(ctx context.Context, iface string) error {
	_, err := n.run(ctx, "device", "wifi", "rescan", "ifname", iface)
	return err
}

// ListNetworks returns the raw visible access points seen by iface.
// Rows with an unparseable signal are skipped.
func (n *NMCLI) ListNetworks(ctx context.Context, iface string) ([]AccessPoint, error) {
	out, err := n.run(ctx, "-t", "-f", "SSID,SIGNAL,SECURITY", "device", "wifi", "list", "ifname", iface)
	if err != nil {
		return nil, err
	}
	return parseWifiList(out), nil
}

func parseWifiList(out string) []AccessPoint {
	var aps []AccessPoint
	for _, line := range strings.Split(out, "\n") {
		fields := SplitTerse(line)
		if len(fields) < 3 {
			continue
		}
		signal, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			continue
		}
		aps = append(aps, AccessPoint{
			SSID:     strings.TrimSpace(fields[0]),
			Signal:   clampSignal(signal),
			Security: strings.TrimSpace(fields[2]),
		})
	}
	return aps
}

func clampSignal(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// CreateHotspot adds and activates an access-point profile. If activation
// fails the freshly added profile is deleted again.
func (n *NMCLI) CreateHotspot(ctx context.Context, p HotspotProfile) error {
	_, err := n.run(ctx,
		"connection", "add",
		"type", "wifi",
		"ifname", p.Interface,
		"con-name", p.Name,
		"autoconnect", "no",
		"ssid", p.SSID,
		"802-11-wireless.mode", "ap",
		"802-11-wireless.band", "bg",
		"ipv4.method", "shared",
		"ipv4.addresses", fmt.Sprintf("%s/%d", p.Address, p.Prefix),
		"ipv6.method", "disabled",
		"wifi-sec.key-mgmt", "wpa-psk",
		"wifi-sec.psk", p.Passphrase,
	)
	if err != nil {
		return err
	}

	if _, err := n.run(ctx, "connection", "up", p.Name); err != nil {
		_ = n.ConnectionDelete(ctx, p.Name)
		return err
	}
	return nil
}

// ConnectionDown deactivates a connection profile.
func (n *NMCLI) ConnectionDown(ctx context.Context, name string) error {
	_, err := n.run(ctx, "connection", "down", name)
	return err
}

// ConnectionDelete removes a connection profile.
func (n *NMCLI) ConnectionDelete(ctx context.Context, name string) error {
	_, err := n.run(ctx, "connection", "delete", name)
	return err
}

// Connect joins ssid on iface. The join is bounded by ctx; nmcli's own
// --wait is derived from the context deadline.
func (n *NMCLI) Connect(ctx context.Context, iface, ssid, password string) error {
	wait := defaultWaitSeconds
	if deadline, ok := ctx.Deadline(); ok {
		wait = int(time.Until(deadline).Seconds())
		if wait < 1 {
			wait = 1
		}
	}

	args := []string{"--wait", strconv.Itoa(wait), "device", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	args = append(args, "ifname", iface)

	// ctx carries the join deadline, not the generic command timeout
	_, err := n.runner.Run(ctx, n.path, args...)
	return err
}

// IPv4Address returns the first IPv4 address on iface without its prefix
// length.
func (n *NMCLI) IPv4Address(ctx context.Context, iface string) (string, error) {
	out, err := n.run(ctx, "-t", "-f", "IP4.ADDRESS", "device", "show", iface)
	if err != nil {
		return "", err
	}
	return parseIPv4(out)
}

func parseIPv4(out string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := SplitTerse(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "IP4.ADDRESS") {
			continue
		}
		addr, _, _ := strings.Cut(fields[1], "/")
		if addr != "" {
			return addr, nil
		}
	}
	return "", fmt.Errorf("no IPv4 address assigned: %w", ErrNotFound)
}

// SplitTerse splits one line of `nmcli -t` output. In terse mode nmcli
// escapes ':' as "\:" and '\' as "\\" inside values.
func SplitTerse(line string) []string {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return nil
	}

	var (
		fields []string
		cur    strings.Builder
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case c == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}
