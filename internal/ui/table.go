package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/wifisetup/internal/discovery"
	"github.com/muurk/wifisetup/internal/wifi"
)

// signalStyle colours a signal strength the way phones do: weak below 40,
// fair below 70.
func signalStyle(signal int) lipgloss.Style {
	switch {
	case signal < 40:
		return ErrorStyle
	case signal < 70:
		return lipgloss.NewStyle().Foreground(WarningColor)
	default:
		return lipgloss.NewStyle().Foreground(SuccessColor)
	}
}

// RenderNetworks renders a scan result as a table.
func RenderNetworks(nets []wifi.Network) string {
	if len(nets) == 0 {
		return MutedStyle.Render("No networks found")
	}

	ssidWidth := len("SSID")
	for _, n := range nets {
		if w := lipgloss.Width(n.SSID); w > ssidWidth {
			ssidWidth = w
		}
	}

	var b strings.Builder
	header := fmt.Sprintf("%-*s  %6s  %s", ssidWidth, "SSID", "SIGNAL", "SECURITY")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")
	for _, n := range nets {
		pad := strings.Repeat(" ", ssidWidth-lipgloss.Width(n.SSID))
		security := n.Security
		if security == "" || security == "--" {
			security = "open"
		}
		b.WriteString(ValueStyle.Render(n.SSID) + pad + "  ")
		b.WriteString(signalStyle(n.Signal).Render(fmt.Sprintf("%5d%%", n.Signal)))
		b.WriteString("  " + MutedStyle.Render(security) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPortals renders setup portals found over mDNS.
func RenderPortals(portals []*discovery.Portal) string {
	if len(portals) == 0 {
		return MutedStyle.Render("No setup portals found")
	}

	var b strings.Builder
	for i, p := range portals {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(TitleStyle.Render(p.Instance) + "\n")
		b.WriteString(KeyStyle.Render("URL") + ValueStyle.Render(p.URL()) + "\n")
		if p.Hostname != "" {
			b.WriteString(KeyStyle.Render("Host") + ValueStyle.Render(p.Hostname) + "\n")
		}
		if p.Session != "" {
			b.WriteString(KeyStyle.Render("ID") + MutedStyle.Render(p.Session) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
