package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Portal is a setup portal found on the local network.
type Portal struct {
	// Instance is the mDNS instance name (the hotspot SSID)
	Instance string

	// Hostname is the mDNS hostname of the device
	Hostname string

	// IP is the advertised address (IPv4 preferred)
	IP string

	// Port is the portal HTTP port
	Port int

	// Session identifies the provisioning attempt that is advertising
	Session string

	// Metadata contains all TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the portal was seen
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the portal
func (p *Portal) String() string {
	return fmt.Sprintf("Setup portal %q (%s) at %s", p.Instance, p.Hostname, p.URL())
}

// URL returns the captive page URL
func (p *Portal) URL() string {
	path := p.Metadata["path"]
	if path == "" {
		path = "/"
	}
	return "http://" + net.JoinHostPort(p.IP, strconv.Itoa(p.Port)) + path
}
