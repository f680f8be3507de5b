// Package wifi implements the two read-side radio operations of the
// provisioning controller: the connectivity probe and the network scanner.
//
// Scanner is the only place where scan rows are deduplicated and ranked:
// one Network per SSID, strongest signal wins, strongest first, and the
// controller's own hotspot SSID never appears.
package wifi
