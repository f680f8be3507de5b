package ui

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/wifisetup/internal/discovery"
	"github.com/muurk/wifisetup/internal/wifi"
)

func TestStatusLines(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   []string
	}{
		{
			name:   "inactive",
			status: Status{},
			want:   []string{"Hotspot inactive"},
		},
		{
			name:   "active",
			status: Status{Active: true, SSID: "JetsonSetup", Passphrase: "jetson1234", IP: "10.42.0.1"},
			want:   []string{"Join JetsonSetup", "Pass jetson1234", "Open 10.42.0.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Lines(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lines() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderStatus(t *testing.T) {
	active := RenderStatus(Status{Active: true, SSID: "JetsonSetup", Passphrase: "jetson1234", IP: "10.42.0.1"}, 60)
	for _, want := range []string{"JetsonSetup", "jetson1234", "http://10.42.0.1/"} {
		if !strings.Contains(active, want) {
			t.Errorf("active panel missing %q:\n%s", want, active)
		}
	}

	inactive := RenderStatus(Status{}, 10)
	if !strings.Contains(inactive, "Hotspot inactive") {
		t.Errorf("inactive panel = %q", inactive)
	}
}

func TestRenderNetworks(t *testing.T) {
	out := RenderNetworks([]wifi.Network{
		{SSID: "HomeNet", Signal: 80, Security: "WPA2"},
		{SSID: "Guest", Signal: 35, Security: "--"},
	})

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "HomeNet") || !strings.Contains(lines[1], "80%") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "open") {
		t.Errorf("open network not labelled: %q", lines[2])
	}

	if empty := RenderNetworks(nil); !strings.Contains(empty, "No networks found") {
		t.Errorf("RenderNetworks(nil) = %q", empty)
	}
}

func TestRenderPortals(t *testing.T) {
	out := RenderPortals([]*discovery.Portal{{
		Instance: "JetsonSetup",
		Hostname: "jetson.local.",
		IP:       "10.42.0.1",
		Port:     80,
		Session:  "abc",
	}})
	for _, want := range []string{"JetsonSetup", "http://10.42.0.1", "jetson.local.", "abc"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResultRender(t *testing.T) {
	ok := NewSuccessResult("Provisioned", Detail{Key: "Network", Value: "HomeNet"}).SetWidth(60).Render()
	if !strings.Contains(ok, SuccessMarker) || !strings.Contains(ok, "HomeNet") {
		t.Errorf("success box = %s", ok)
	}

	fail := NewFailureResult("Setup failed", errors.New("no suitable device")).SetWidth(60).Render()
	if !strings.Contains(fail, FailureMarker) || !strings.Contains(fail, "no suitable device") {
		t.Errorf("failure box = %s", fail)
	}
}

func TestWatchModel(t *testing.T) {
	reads := 0
	m := NewWatchModel(func() (Status, error) {
		reads++
		return Status{Active: true, SSID: "JetsonSetup", Passphrase: "jetson1234", IP: "10.42.0.1"}, nil
	})

	if !strings.Contains(m.View(), "Reading status") {
		t.Errorf("initial View() = %q", m.View())
	}

	msg := m.refresh()
	updated, cmd := m.Update(msg)
	if cmd == nil {
		t.Error("status update did not schedule the next tick")
	}
	if reads != 1 {
		t.Errorf("reads = %d, want 1", reads)
	}
	if view := updated.View(); !strings.Contains(view, "JetsonSetup") {
		t.Errorf("View() after update missing SSID:\n%s", view)
	}

	_, cmd = updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q did not return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}
