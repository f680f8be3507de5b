// Package nm is the network-manager capability used by the provisioning
// controller.
//
// NMCLI drives NetworkManager through `nmcli -t` (terse, colon-separated
// output) and covers exactly what provisioning needs: device state, scan and
// list, access-point profile create/down/delete, join, and address lookup.
//
// Commands are executed through a Runner without a shell, so SSIDs and
// passwords containing quotes or spaces are passed through untouched. Every
// call is bounded by a timeout. Failures surface as *CommandError (with the
// nmcli diagnostic text and exit code) or *TimeoutError; the "does not
// exist" exit code matches ErrNotFound via errors.Is.
//
// Arguments following "password" or "wifi-sec.psk" are redacted before they
// reach logs or error messages.
package nm
