package wifi

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifisetup/internal/logging"
	"github.com/muurk/wifisetup/internal/nm"
)

// StatusQuerier reports the state of a network device.
type StatusQuerier interface {
	DeviceStatus(ctx context.Context, iface string) (nm.DeviceStatus, error)
}

// Probe answers "does the interface currently hold a real connection".
type Probe struct {
	client StatusQuerier
	// hotspotConnection is never counted as connectivity; a hotspot left
	// behind by a crashed run would otherwise look like a joined network.
	hotspotConnection string
	timeout           time.Duration
}

// NewProbe creates a Probe. timeout bounds each query; zero means 5s.
func NewProbe(client StatusQuerier, hotspotConnection string, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Probe{client: client, hotspotConnection: hotspotConnection, timeout: timeout}
}

// IsConnected reports whether iface is connected. Query failures degrade to
// false.
func (p *Probe) IsConnected(ctx context.Context, iface string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	st, err := p.client.DeviceStatus(ctx, iface)
	if err != nil {
		logging.Debug("Connectivity query failed, assuming disconnected",
			zap.String("interface", iface),
			zap.Error(err),
		)
		return false
	}
	if p.hotspotConnection != "" && st.Connection == p.hotspotConnection {
		return false
	}
	return st.Connected()
}
