// Package portal serves the captive setup page on the hotspot network.
//
// Routes:
//
//	GET  /         captive page listing the cached networks (any other GET path too)
//	GET  /scan     rescan-under-hotspot, JSON array of {ssid, signal, security}
//	POST /connect  form fields ssid and password, JSON {ok, message}
//	GET  /events   websocket stream of provisioning events
//
// The portal holds no state of its own. Networks, rescans and joins all go
// through a Provisioner.
package portal
