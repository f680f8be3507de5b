package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
)

// Announcement describes the captive page being advertised.
type Announcement struct {
	Instance  string // shown by browsers, normally the hotspot SSID
	Interface string // empty means all interfaces
	Port      int
	Session   string
}

// Advertiser registers the captive page as an mDNS service. At most one
// registration is live at a time.
type Advertiser struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an idle advertiser.
func NewAdvertiser() *Advertiser {
	return &Advertiser{}
}

// Advertise starts announcing a, replacing any previous announcement.
func (a *Advertiser) Advertise(ann Announcement) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var ifaces []net.Interface
	if ann.Interface != "" {
		iface, err := net.InterfaceByName(ann.Interface)
		if err != nil {
			return fmt.Errorf("failed to look up interface %s: %w", ann.Interface, err)
		}
		ifaces = []net.Interface{*iface}
	}

	port := ann.Port
	if port == 0 {
		port = DefaultPort
	}

	server, err := zeroconf.Register(
		ann.Instance,
		ServiceType,
		ServiceDomain,
		port,
		TXTRecords(ann),
		ifaces,
	)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	a.server = server
	return nil
}

// Stop withdraws the announcement. Safe to call when nothing is advertised.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// TXTRecords returns the TXT strings published for ann.
func TXTRecords(ann Announcement) []string {
	txt := []string{"path=/", "svc=" + ServiceTag}
	if ann.Session != "" {
		txt = append(txt, "session="+ann.Session)
	}
	return txt
}
