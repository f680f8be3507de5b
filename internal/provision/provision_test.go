package provision

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/muurk/wifisetup/internal/config"
	"github.com/muurk/wifisetup/internal/hotspot"
	"github.com/muurk/wifisetup/internal/nm"
	"github.com/muurk/wifisetup/internal/wifi"
)

type fakeProbe struct {
	connected bool
}

func (p *fakeProbe) IsConnected(ctx context.Context, iface string) bool {
	return p.connected
}

type fakeScanner struct {
	mu    sync.Mutex
	nets  []wifi.Network
	err   error
	calls int
}

func (s *fakeScanner) Scan(ctx context.Context, iface string) ([]wifi.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.nets, nil
}

func (s *fakeScanner) set(nets []wifi.Network, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nets, s.err = nets, err
}

// fakeAP fails the nth Start (1-based) when startErr returns non-nil.
type fakeAP struct {
	mu       sync.Mutex
	active   bool
	starts   int
	stops    int
	startErr func(n int) error
}

func (a *fakeAP) Start(ctx context.Context, id hotspot.Identity, iface string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.starts++
	if a.active {
		return hotspot.ErrAlreadyActive
	}
	if a.startErr != nil {
		if err := a.startErr(a.starts); err != nil {
			return &hotspot.Error{Op: "start", Diagnostic: err.Error(), Err: err}
		}
	}
	a.active = true
	return nil
}

func (a *fakeAP) Stop(ctx context.Context, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
	a.active = false
}

func (a *fakeAP) isActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

type fakeJoiner struct {
	mu     sync.Mutex
	err    error
	ip     string
	ipErr  error
	joined []string
}

func (j *fakeJoiner) Connect(ctx context.Context, iface, ssid, password string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.joined = append(j.joined, ssid)
	return j.err
}

func (j *fakeJoiner) IPv4Address(ctx context.Context, iface string) (string, error) {
	return j.ip, j.ipErr
}

type fakeServer struct {
	listenErr error
	stop      chan struct{}
	once      sync.Once
}

func newFakeServer() *fakeServer {
	return &fakeServer{stop: make(chan struct{})}
}

func (s *fakeServer) ListenAndServe() error {
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.stop
	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

type fixture struct {
	orch    *Orchestrator
	probe   *fakeProbe
	scanner *fakeScanner
	ap      *fakeAP
	joiner  *fakeJoiner
	srv     *fakeServer
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Interface = "wlan0"
	cfg.Wait.Timeout = 20 * time.Millisecond
	cfg.Wait.PollInterval = 5 * time.Millisecond
	cfg.Timing = config.Timing{
		JoinTimeout:     time.Second,
		CommandTimeout:  time.Second,
		ShutdownTimeout: time.Second,
	}
	cfg.Restart = config.Restart{MaxAttempts: 3}
	return cfg
}

func newFixture() *fixture {
	f := &fixture{
		probe: &fakeProbe{},
		scanner: &fakeScanner{nets: []wifi.Network{
			{SSID: "HomeNet", Signal: 80, Security: "WPA2"},
			{SSID: "Guest", Signal: 60, Security: "--"},
		}},
		ap:     &fakeAP{},
		joiner: &fakeJoiner{ip: "192.168.1.23"},
		srv:    newFakeServer(),
	}
	f.orch = New(testConfig(), Components{
		Probe:   f.probe,
		Scanner: f.scanner,
		Hotspot: f.ap,
		Joiner:  f.joiner,
	}, "session-1")
	return f
}

type runResult struct {
	outcome Outcome
	err     error
}

// start runs the orchestrator in the background and waits until it is
// serving.
func (f *fixture) start(t *testing.T) (context.CancelFunc, <-chan runResult) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan runResult, 1)
	go func() {
		outcome, err := f.orch.Run(ctx, f.srv)
		results <- runResult{outcome, err}
	}()
	waitForState(t, f.orch, StateAwaitingCredentials)
	t.Cleanup(cancel)
	return cancel, results
}

func waitForState(t *testing.T, o *Orchestrator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", o.State(), want)
}

func waitResult(t *testing.T, results <-chan runResult) runResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return")
		return runResult{}
	}
}

func TestAllowedTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateWaitingForConnectivity, StateConnected, true},
		{StateWaitingForConnectivity, StateScanning, true},
		{StateWaitingForConnectivity, StateHotspotActive, false},
		{StateScanning, StateHotspotActive, true},
		{StateScanning, StateWaitingForConnectivity, false},
		{StateHotspotActive, StateAwaitingCredentials, true},
		{StateHotspotActive, StateAborted, true},
		{StateAwaitingCredentials, StateConnected, true},
		{StateAwaitingCredentials, StateScanning, false},
		{StateConnected, StateAborted, false},
		{StateAborted, StateWaitingForConnectivity, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := allowedTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("allowedTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	err := &Error{Kind: KindTransient, Op: "connect", Message: "Failed to connect: nope"}
	wrapped := errors.Join(errors.New("context"), err)

	if !IsTransient(wrapped) || IsFatal(wrapped) || IsConfiguration(wrapped) {
		t.Errorf("classification of %v wrong: kind %s", wrapped, KindOf(wrapped))
	}
	if got := Message(wrapped); got != "Failed to connect: nope" {
		t.Errorf("Message() = %q", got)
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("KindOf(plain error) != 0")
	}
}

func TestRun_AlreadyConnected(t *testing.T) {
	f := newFixture()
	f.probe.connected = true

	outcome, err := f.orch.Run(context.Background(), f.srv)
	if err != nil || outcome != OutcomeAlreadyConnected {
		t.Fatalf("Run() = %s, %v; want already connected", outcome, err)
	}
	if outcome.ExitCode() != 0 {
		t.Errorf("ExitCode() = %d, want 0", outcome.ExitCode())
	}
	if f.orch.State() != StateConnected {
		t.Errorf("State() = %s, want connected", f.orch.State())
	}
	if f.ap.starts != 0 {
		t.Errorf("hotspot started %d times, want 0", f.ap.starts)
	}
	if f.ap.stops != 1 {
		t.Errorf("startup cleanup stops = %d, want 1", f.ap.stops)
	}
}

func TestRun_HotspotFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.ap.startErr = func(int) error { return errors.New("No suitable device found") }

	outcome, err := f.orch.Run(context.Background(), f.srv)
	if outcome != OutcomeFailed || outcome.ExitCode() == 0 {
		t.Fatalf("Run() outcome = %s, want failed with nonzero exit", outcome)
	}
	if !IsFatal(err) {
		t.Fatalf("Run() error = %v, want fatal", err)
	}
	if f.orch.State() != StateAborted {
		t.Errorf("State() = %s, want aborted", f.orch.State())
	}
	if f.ap.isActive() {
		t.Error("hotspot active after abort")
	}
	if f.scanner.calls != 1 {
		t.Errorf("scans = %d, want 1", f.scanner.calls)
	}
}

func TestRun_ScanFailureContinuesEmpty(t *testing.T) {
	f := newFixture()
	f.scanner.err = errors.New("radio busy")
	cancel, results := f.start(t)

	if nets := f.orch.Networks(); len(nets) != 0 {
		t.Errorf("Networks() = %+v, want empty", nets)
	}
	if !f.ap.isActive() {
		t.Error("hotspot not active while awaiting credentials")
	}

	cancel()
	r := waitResult(t, results)
	if r.outcome != OutcomeInterrupted || r.err != nil {
		t.Errorf("Run() = %s, %v; want interrupted", r.outcome, r.err)
	}
	if r.outcome.ExitCode() != 0 {
		t.Errorf("ExitCode() = %d, want 0", r.outcome.ExitCode())
	}
	if f.ap.isActive() {
		t.Error("hotspot still active after interrupt")
	}
	if f.orch.State() != StateAborted {
		t.Errorf("State() = %s, want aborted", f.orch.State())
	}
}

func TestRun_InterruptWhileWaiting(t *testing.T) {
	f := newFixture()
	f.orch.cfg.Wait.Timeout = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := f.orch.Run(ctx, f.srv)
	if outcome != OutcomeInterrupted || err != nil {
		t.Fatalf("Run() = %s, %v; want interrupted", outcome, err)
	}
	if f.ap.starts != 0 {
		t.Error("hotspot started after interrupt")
	}
	if f.orch.State() != StateAborted {
		t.Errorf("State() = %s, want aborted", f.orch.State())
	}
}

func TestRun_ListenFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.srv.listenErr = errors.New("bind: address already in use")

	outcome, err := f.orch.Run(context.Background(), f.srv)
	if outcome != OutcomeFailed || !IsFatal(err) {
		t.Fatalf("Run() = %s, %v; want fatal failure", outcome, err)
	}
	if f.ap.isActive() {
		t.Error("hotspot active after listener failure")
	}
}

func TestRun_CachesDedupedScan(t *testing.T) {
	f := newFixture()
	f.start(t)

	want := []wifi.Network{
		{SSID: "HomeNet", Signal: 80, Security: "WPA2"},
		{SSID: "Guest", Signal: 60, Security: "--"},
	}
	if got := f.orch.Networks(); !reflect.DeepEqual(got, want) {
		t.Errorf("Networks() = %+v, want %+v", got, want)
	}
}

func TestConnect_EmptyFields(t *testing.T) {
	f := newFixture()
	f.start(t)
	stops := f.ap.stops

	for _, creds := range [][2]string{{"HomeNet", ""}, {"", "secret123"}, {"", ""}} {
		_, err := f.orch.Connect(context.Background(), creds[0], creds[1])
		if !IsConfiguration(err) {
			t.Errorf("Connect(%q, %q) error = %v, want configuration error", creds[0], creds[1], err)
		}
		if Message(err) != MsgCredentialsRequired {
			t.Errorf("Message() = %q", Message(err))
		}
	}

	if f.orch.State() != StateAwaitingCredentials {
		t.Errorf("State() = %s, want awaiting_credentials", f.orch.State())
	}
	if !f.ap.isActive() || f.ap.stops != stops {
		t.Error("hotspot touched by rejected submission")
	}
	if len(f.joiner.joined) != 0 {
		t.Error("join attempted with empty credentials")
	}
}

func TestConnect_WrongPasswordRestoresHotspot(t *testing.T) {
	f := newFixture()
	f.joiner.err = &nm.CommandError{
		Command:  "nmcli",
		ExitCode: 4,
		Stderr:   "Error: Connection activation failed: Secrets were required, but not provided.",
	}
	f.start(t)

	_, err := f.orch.Connect(context.Background(), "HomeNet", "wrongpass")
	if !IsTransient(err) {
		t.Fatalf("Connect() error = %v, want transient", err)
	}
	want := "Failed to connect: Connection activation failed: Secrets were required, but not provided."
	if Message(err) != want {
		t.Errorf("Message() = %q, want %q", Message(err), want)
	}
	if f.orch.State() != StateAwaitingCredentials {
		t.Errorf("State() = %s, want awaiting_credentials", f.orch.State())
	}
	if !f.ap.isActive() {
		t.Error("hotspot not restored after failed join")
	}
	if len(f.orch.Networks()) != 2 {
		t.Error("network list lost after failed join")
	}
}

func TestConnect_SuccessEndsRun(t *testing.T) {
	f := newFixture()
	_, results := f.start(t)

	ip, err := f.orch.Connect(context.Background(), "HomeNet", "correct")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if ip != "192.168.1.23" {
		t.Errorf("Connect() ip = %q, want 192.168.1.23", ip)
	}

	r := waitResult(t, results)
	if r.outcome != OutcomeProvisioned || r.err != nil {
		t.Fatalf("Run() = %s, %v; want provisioned", r.outcome, r.err)
	}
	if f.orch.State() != StateConnected {
		t.Errorf("State() = %s, want connected", f.orch.State())
	}
	if f.ap.isActive() {
		t.Error("hotspot active after successful join")
	}

	_, err = f.orch.Connect(context.Background(), "HomeNet", "correct")
	if !errors.Is(err, ErrNotAccepting) {
		t.Errorf("second Connect() error = %v, want ErrNotAccepting", err)
	}
	if len(f.joiner.joined) != 1 {
		t.Errorf("joins = %d, want 1", len(f.joiner.joined))
	}
}

func TestConnect_UnknownAddress(t *testing.T) {
	f := newFixture()
	f.joiner.ipErr = nm.ErrNotFound
	f.start(t)

	ip, err := f.orch.Connect(context.Background(), "HomeNet", "correct")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if ip != "unknown" {
		t.Errorf("Connect() ip = %q, want unknown", ip)
	}
}

func TestRescan_ReplacesCache(t *testing.T) {
	f := newFixture()
	f.start(t)
	starts := f.ap.starts

	fresh := []wifi.Network{{SSID: "Office", Signal: 90, Security: "WPA3"}}
	f.scanner.set(fresh, nil)

	got, err := f.orch.Rescan(context.Background())
	if err != nil {
		t.Fatalf("Rescan() error = %v", err)
	}
	if !reflect.DeepEqual(got, fresh) || !reflect.DeepEqual(f.orch.Networks(), fresh) {
		t.Errorf("Rescan() = %+v, cache %+v; want %+v", got, f.orch.Networks(), fresh)
	}
	if !f.ap.isActive() || f.ap.starts != starts+1 {
		t.Errorf("hotspot active %v after %d restarts", f.ap.isActive(), f.ap.starts-starts)
	}
	if f.orch.State() != StateAwaitingCredentials {
		t.Errorf("State() = %s, want awaiting_credentials", f.orch.State())
	}
}

func TestRescan_ScanFailureKeepsCache(t *testing.T) {
	f := newFixture()
	f.start(t)
	before := f.orch.Networks()
	f.scanner.set(nil, errors.New("device busy"))

	_, err := f.orch.Rescan(context.Background())
	if !IsTransient(err) {
		t.Fatalf("Rescan() error = %v, want transient", err)
	}
	if !reflect.DeepEqual(f.orch.Networks(), before) {
		t.Error("cache replaced after failed scan")
	}
	if !f.ap.isActive() {
		t.Error("hotspot not restored after failed scan")
	}
}

func TestRescan_RestartFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.ap.startErr = func(n int) error {
		if n > 1 {
			return errors.New("device not ready")
		}
		return nil
	}
	_, results := f.start(t)

	_, err := f.orch.Rescan(context.Background())
	if !IsFatal(err) {
		t.Fatalf("Rescan() error = %v, want fatal", err)
	}
	if f.ap.starts != 4 {
		t.Errorf("starts = %d, want 1 initial + 3 restart attempts", f.ap.starts)
	}

	r := waitResult(t, results)
	if r.outcome != OutcomeFailed || !IsFatal(r.err) {
		t.Errorf("Run() = %s, %v; want fatal failure", r.outcome, r.err)
	}
	if f.orch.State() != StateAborted {
		t.Errorf("State() = %s, want aborted", f.orch.State())
	}
}

func TestSubscribe(t *testing.T) {
	f := newFixture()
	events, unsubscribe := f.orch.Subscribe(8)

	first := <-events
	if first.Type != EventSnapshot || first.State != "waiting_for_connectivity" || first.Session != "session-1" {
		t.Errorf("first event = %+v, want snapshot", first)
	}

	f.start(t)
	seen := map[string]bool{}
	timeout := time.After(time.Second)
	for !seen["awaiting_credentials"] {
		select {
		case ev := <-events:
			if ev.Type == EventState {
				seen[ev.State] = true
			}
		case <-timeout:
			t.Fatalf("state events seen = %v, want awaiting_credentials", seen)
		}
	}

	unsubscribe()
	unsubscribe()
	for range events {
	}
}
