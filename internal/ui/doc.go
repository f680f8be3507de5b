// Package ui renders terminal output for the wifisetup CLI with Lipgloss and
// Bubble Tea.
//
// RenderStatus draws the same Join/Pass/Open text the device display shows
// while the hotspot is up, and WatchModel keeps it current by re-reading the
// status once a second. RenderNetworks and RenderPortals format one-shot
// scan and discovery results, and Result boxes report how a command ended.
//
// Nothing here writes the status flag.
package ui
