// Package discovery announces and finds setup portals over mDNS.
//
// While the hotspot is up the controller registers its captive page as an
// "_http._tcp" service whose instance name is the hotspot SSID and whose TXT
// record carries "svc=wifisetup", "path=/" and the provisioning session ID.
// Clients that support mDNS can then open the page by name instead of
// typing 10.42.0.1.
//
// The Scanner side is used by `wifisetup discover` from a laptop joined to
// the hotspot.
//
// # Network Requirements
//
//   - Multicast must be permitted on the hotspot interface
//   - Firewall must allow mDNS (UDP port 5353)
package discovery
