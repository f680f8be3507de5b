// Package config loads the wifisetup configuration.
//
// The configuration is a YAML file, by default /etc/wifisetup/config.yaml,
// decoded on top of built-in defaults that match the stock Jetson setup
// (interface wlP1p1s0, hotspot "JetsonSetup" on 10.42.0.1). Durations are
// written as Go duration strings:
//
//	interface: wlan0
//	hotspot:
//	  ssid: FrameSetup
//	  passphrase: change-me-please
//	wait:
//	  timeout: 30s
//	restart:
//	  max_attempts: 5
//
// The hotspot passphrase is stored here because it is also printed on the
// device display; Wi-Fi credentials entered through the portal are never
// written anywhere.
package config
