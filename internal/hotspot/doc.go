// Package hotspot manages the setup access point and the status flag file.
//
// Controller.Start deletes any stale profile of the same name, creates and
// activates a fresh one with the fixed SSID, passphrase and address, writes
// the flag, and announces the portal over mDNS. Controller.Stop undoes all of
// that and tolerates every piece already being gone, because it runs from
// several failure paths and at startup to clear a crashed run's leftovers.
//
// The flag (default /tmp/wifi_setup_active) contains the hotspot address
// while the access point is up. The device display and `wifisetup status`
// read it; nothing outside this package writes it.
package hotspot
