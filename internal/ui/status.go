package ui

import (
	"strings"
)

// Status is what the device display shows: the hotspot credentials while
// the status flag exists, otherwise that no hotspot is up.
type Status struct {
	Active     bool
	SSID       string
	Passphrase string
	IP         string
}

// Lines returns the display text without styling, one entry per line, in
// the form a small panel renders it.
func (s Status) Lines() []string {
	if !s.Active {
		return []string{"Hotspot inactive"}
	}
	return []string{
		"Join " + s.SSID,
		"Pass " + s.Passphrase,
		"Open " + s.IP,
	}
}

// RenderStatus renders s as a bordered panel of the given width.
func RenderStatus(s Status, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	if !s.Active {
		body := InactiveStyle.Render("Hotspot inactive")
		return PanelStyle(width, MutedColor).Render(body)
	}

	rows := []string{
		ActiveStyle.Render(ActiveMarker + " Setup hotspot active"),
		"",
		KeyStyle.Render("Join") + ValueStyle.Render(s.SSID),
		KeyStyle.Render("Pass") + ValueStyle.Render(s.Passphrase),
		KeyStyle.Render("Open") + ValueStyle.Render("http://"+s.IP+"/"),
	}
	return PanelStyle(width, SuccessColor).Render(strings.Join(rows, "\n"))
}
