package provision

import "errors"

// State is the provisioning state machine position. The transitions are:
//
// waiting_for_connectivity -> connected | scanning | aborted
// scanning                 -> hotspot_active | aborted
// hotspot_active           -> awaiting_credentials | aborted
// awaiting_credentials     -> connected | aborted
//
// Connected and Aborted are terminal. Rescans and failed joins restart the
// access point without leaving awaiting_credentials.
type State int

const (
	StateWaitingForConnectivity State = iota
	StateScanning
	StateHotspotActive
	StateAwaitingCredentials
	StateConnected
	StateAborted
)

var stateNames = map[State]string{
	StateWaitingForConnectivity: "waiting_for_connectivity",
	StateScanning:               "scanning",
	StateHotspotActive:          "hotspot_active",
	StateAwaitingCredentials:    "awaiting_credentials",
	StateConnected:              "connected",
	StateAborted:                "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateConnected || s == StateAborted
}

// ErrInvalidTransition is returned when an edge outside the table is requested.
var ErrInvalidTransition = errors.New("invalid provisioning state transition")

func allowedTransition(cur, next State) bool {
	switch cur {
	case StateWaitingForConnectivity:
		return next == StateConnected || next == StateScanning || next == StateAborted
	case StateScanning:
		return next == StateHotspotActive || next == StateAborted
	case StateHotspotActive:
		return next == StateAwaitingCredentials || next == StateAborted
	case StateAwaitingCredentials:
		return next == StateConnected || next == StateAborted
	default:
		return false
	}
}
