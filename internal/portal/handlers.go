package portal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/wifisetup/internal/logging"
	"github.com/muurk/wifisetup/internal/provision"
	"github.com/muurk/wifisetup/internal/wifi"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type networkInfo struct {
	Signal   int    `json:"signal"`
	Security string `json:"security"`
}

type pageData struct {
	HotspotSSID string
	Networks    []wifi.Network
	Details     map[string]networkInfo
}

// ConnectResponse is the body of POST /connect.
type ConnectResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// SuccessMessage is the operator text for a completed join.
func SuccessMessage(ssid, ip string) string {
	return fmt.Sprintf("Connected to %s — IP: %s", ssid, ip)
}

// handleIndex renders the captive page for every GET not routed elsewhere,
// so OS captive-portal probes land on it too.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	nets := s.prov.Networks()
	data := pageData{
		HotspotSSID: s.cfg.HotspotSSID,
		Networks:    nets,
		Details:     make(map[string]networkInfo, len(nets)),
	}
	for _, n := range nets {
		data.Details[n.SSID] = networkInfo{Signal: n.Signal, Security: n.Security}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := indexTemplate.Execute(w, data); err != nil {
		logging.Error("Failed to render captive page", zap.Error(err))
	}
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	nets, err := s.prov.Rescan(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		switch provision.KindOf(err) {
		case provision.KindFatal:
			status = http.StatusServiceUnavailable
		case provision.KindConfiguration:
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": provision.Message(err)})
		return
	}
	if nets == nil {
		nets = []wifi.Network{}
	}
	writeJSON(w, http.StatusOK, nets)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ConnectResponse{Message: "Malformed form data."})
		return
	}
	ssid := r.PostFormValue("ssid")
	password := r.PostFormValue("password")

	ip, err := s.prov.Connect(r.Context(), ssid, password)
	if err != nil {
		writeJSON(w, http.StatusOK, ConnectResponse{OK: false, Message: provision.Message(err)})
		return
	}
	writeJSON(w, http.StatusOK, ConnectResponse{OK: true, Message: SuccessMessage(ssid, ip)})
}

// handleEvents streams provisioning events over a websocket until the
// client leaves or the portal shuts down. Client messages are ignored.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("Websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	events, unsubscribe := s.prov.Subscribe(eventBuffer)
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			return
		case <-s.closing:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "setup finished")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write JSON response", zap.Error(err))
	}
}
