package wifi

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifisetup/internal/logging"
	"github.com/muurk/wifisetup/internal/nm"
)

// Lister triggers scans and lists visible access points.
type Lister interface {
	Rescan(ctx context.Context, iface string) error
	ListNetworks(ctx context.Context, iface string) ([]nm.AccessPoint, error)
}

// Scanner produces the deduplicated, signal-ranked network list.
//
// The radio cannot scan while it hosts an access point, so callers must tear
// the hotspot down first; otherwise the result is empty or stale.
type Scanner struct {
	client      Lister
	hotspotSSID string
	settle      time.Duration
}

// NewScanner creates a Scanner that hides hotspotSSID from its results and
// waits settle between requesting a scan and reading the list.
func NewScanner(client Lister, hotspotSSID string, settle time.Duration) *Scanner {
	return &Scanner{client: client, hotspotSSID: hotspotSSID, settle: settle}
}

// Scan requests a fresh scan on iface and returns visible networks.
// A refused rescan is not fatal; the list NetworkManager already holds is
// used instead.
func (s *Scanner) Scan(ctx context.Context, iface string) ([]Network, error) {
	if err := s.client.Rescan(ctx, iface); err != nil {
		logging.Warn("Rescan request refused, listing cached results",
			zap.String("interface", iface),
			zap.String("diagnostic", nm.Diagnostic(err)),
		)
	}

	if s.settle > 0 {
		timer := time.NewTimer(s.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	aps, err := s.client.ListNetworks(ctx, iface)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks on %s: %w", iface, err)
	}

	networks := Dedupe(aps, s.hotspotSSID)
	logging.Debug("Scan complete",
		zap.String("interface", iface),
		zap.Int("rows", len(aps)),
		zap.Int("networks", len(networks)),
	)
	return networks, nil
}
