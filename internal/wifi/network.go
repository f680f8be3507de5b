package wifi

import (
	"sort"

	"github.com/muurk/wifisetup/internal/nm"
)

// Network is a visible wireless network, one per SSID.
type Network struct {
	SSID     string `json:"ssid"`
	Signal   int    `json:"signal"` // 0-100
	Security string `json:"security"`
}

// Dedupe collapses raw access-point rows to one Network per SSID, keeping
// the strongest signal, and returns them strongest first. Rows with an empty
// SSID (hidden networks) or with the exclude SSID are dropped. Ties keep the
// order in which the SSIDs first appeared.
func Dedupe(aps []nm.AccessPoint, exclude string) []Network {
	index := make(map[string]int, len(aps))
	networks := make([]Network, 0, len(aps))

	for _, ap := range aps {
		if ap.SSID == "" || ap.SSID == exclude {
			continue
		}
		if i, ok := index[ap.SSID]; ok {
			if ap.Signal > networks[i].Signal {
				networks[i].Signal = ap.Signal
				networks[i].Security = ap.Security
			}
			continue
		}
		index[ap.SSID] = len(networks)
		networks = append(networks, Network{SSID: ap.SSID, Signal: ap.Signal, Security: ap.Security})
	}

	sort.SliceStable(networks, func(i, j int) bool {
		return networks[i].Signal > networks[j].Signal
	})
	return networks
}
