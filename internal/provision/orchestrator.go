package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifisetup/internal/config"
	"github.com/muurk/wifisetup/internal/hotspot"
	"github.com/muurk/wifisetup/internal/logging"
	"github.com/muurk/wifisetup/internal/nm"
	"github.com/muurk/wifisetup/internal/wifi"
)

// Prober reports whether the interface holds a real connection.
type Prober interface {
	IsConnected(ctx context.Context, iface string) bool
}

// NetworkScanner returns the deduplicated, signal-ranked visible networks.
type NetworkScanner interface {
	Scan(ctx context.Context, iface string) ([]wifi.Network, error)
}

// AccessPoint starts and stops the setup hotspot.
type AccessPoint interface {
	Start(ctx context.Context, id hotspot.Identity, iface string) error
	Stop(ctx context.Context, connectionName string)
}

// Joiner joins a network and reads the address it was given.
type Joiner interface {
	Connect(ctx context.Context, iface, ssid, password string) error
	IPv4Address(ctx context.Context, iface string) (string, error)
}

// Server is the captive portal as seen by the serve phase.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Components are the collaborators the orchestrator sequences.
type Components struct {
	Probe   Prober
	Scanner NetworkScanner
	Hotspot AccessPoint
	Joiner  Joiner
}

// Outcome is how a run ended.
type Outcome int

const (
	OutcomeAlreadyConnected Outcome = iota
	OutcomeProvisioned
	OutcomeInterrupted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadyConnected:
		return "already connected"
	case OutcomeProvisioned:
		return "provisioned"
	case OutcomeInterrupted:
		return "interrupted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ExitCode maps the outcome to the process exit status.
func (o Outcome) ExitCode() int {
	if o == OutcomeFailed {
		return 1
	}
	return 0
}

// Orchestrator is the provisioning state machine. It owns the network cache
// and the provisioning state; the portal reaches both only through the
// methods below.
type Orchestrator struct {
	cfg     *config.Config
	c       Components
	session string
	events  *broker

	// opMu serializes every hotspot start/stop sequence (initial start,
	// rescan, connect, teardown).
	opMu sync.Mutex

	stateMu sync.RWMutex
	state   State
	cache   []wifi.Network

	baseCtx  context.Context
	done     chan struct{}
	doneOnce sync.Once
	fatal    chan error
}

// New creates an Orchestrator in waiting_for_connectivity.
func New(cfg *config.Config, c Components, session string) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		c:       c,
		session: session,
		events:  newBroker(),
		state:   StateWaitingForConnectivity,
		baseCtx: context.Background(),
		done:    make(chan struct{}),
		fatal:   make(chan error, 1),
	}
}

// Session returns the provisioning session ID.
func (o *Orchestrator) Session() string {
	return o.session
}

// State returns the current provisioning state.
func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

// Networks returns a copy of the cached scan result.
func (o *Orchestrator) Networks() []wifi.Network {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	out := make([]wifi.Network, len(o.cache))
	copy(out, o.cache)
	return out
}

// Done is closed after a successful join.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Subscribe returns a stream of provisioning events beginning with a
// snapshot of the current state, and a function that ends the stream.
func (o *Orchestrator) Subscribe(buf int) (<-chan Event, func()) {
	return o.events.subscribe(buf, o.event(EventSnapshot, ""))
}

func (o *Orchestrator) event(t EventType, msg string) Event {
	return Event{
		Type:    t,
		State:   o.State().String(),
		Message: msg,
		Session: o.session,
		Time:    time.Now(),
	}
}

func (o *Orchestrator) publish(t EventType, msg string) {
	o.events.publish(o.event(t, msg))
}

func (o *Orchestrator) setCache(nets []wifi.Network) {
	o.stateMu.Lock()
	o.cache = nets
	o.stateMu.Unlock()
}

func (o *Orchestrator) transition(next State) error {
	o.stateMu.Lock()
	cur := o.state
	if !allowedTransition(cur, next) {
		o.stateMu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, next)
	}
	o.state = next
	o.stateMu.Unlock()

	logging.LogTransition(o.session, cur.String(), next.String())
	o.publish(EventState, "")
	return nil
}

// Run drives one provisioning attempt to a terminal state. srv is served
// only while credentials are awaited. The returned error is non-nil only
// for OutcomeFailed.
func (o *Orchestrator) Run(ctx context.Context, srv Server) (Outcome, error) {
	o.baseCtx = ctx
	iface := o.cfg.Interface

	// a crashed previous run may have left the profile and flag behind
	o.teardown(ctx)

	if o.waitForConnectivity(ctx, iface) {
		_ = o.transition(StateConnected)
		logging.Info("Interface already connected, nothing to provision", zap.String("interface", iface))
		return OutcomeAlreadyConnected, nil
	}
	if ctx.Err() != nil {
		return o.abort(ctx, OutcomeInterrupted, nil)
	}

	_ = o.transition(StateScanning)
	nets, err := o.c.Scanner.Scan(ctx, iface)
	if err != nil {
		if ctx.Err() != nil {
			return o.abort(ctx, OutcomeInterrupted, nil)
		}
		logging.Warn("Initial scan failed, continuing with an empty list", zap.Error(err))
		nets = nil
	}
	o.setCache(nets)
	logging.Info("Scan complete", zap.Int("networks", len(nets)))

	_ = o.transition(StateHotspotActive)
	o.opMu.Lock()
	err = o.c.Hotspot.Start(ctx, o.identity(), iface)
	o.opMu.Unlock()
	if err != nil {
		if ctx.Err() != nil {
			return o.abort(ctx, OutcomeInterrupted, nil)
		}
		return o.abort(ctx, OutcomeFailed, &Error{
			Kind:    KindFatal,
			Op:      "start hotspot",
			Message: "Hotspot could not be created: " + hotspotDiagnostic(err),
			Err:     err,
		})
	}
	o.publish(EventHotspot, "Hotspot "+o.cfg.Hotspot.SSID+" active")

	if err := sleep(ctx, o.cfg.Timing.HotspotSettle); err != nil {
		return o.abort(ctx, OutcomeInterrupted, nil)
	}

	_ = o.transition(StateAwaitingCredentials)
	return o.serve(ctx, srv)
}

func (o *Orchestrator) serve(ctx context.Context, srv Server) (Outcome, error) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logging.Info("Waiting for credentials", zap.String("listen", o.cfg.ListenAddr()))

	var (
		outcome Outcome
		runErr  error
	)
	select {
	case <-o.done:
		outcome = OutcomeProvisioned
	case err := <-o.fatal:
		outcome, runErr = OutcomeFailed, err
	case err := <-errCh:
		outcome = OutcomeFailed
		runErr = &Error{Kind: KindFatal, Op: "serve", Message: "Setup portal stopped", Err: err}
	case <-ctx.Done():
		outcome = OutcomeInterrupted
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.Timing.ShutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Portal shutdown incomplete", zap.Error(err))
	}
	cancel()

	// a join may have completed while another case won the select
	if o.State() == StateConnected {
		outcome, runErr = OutcomeProvisioned, nil
	}
	if outcome == OutcomeProvisioned {
		logging.Info("Provisioning complete")
		return outcome, nil
	}
	return o.abort(ctx, outcome, runErr)
}

// abort tears the access point down and moves to Aborted.
func (o *Orchestrator) abort(ctx context.Context, outcome Outcome, err error) (Outcome, error) {
	o.opMu.Lock()
	o.teardown(ctx)
	o.opMu.Unlock()

	o.setCache(nil)
	if o.State() != StateConnected {
		_ = o.transition(StateAborted)
	}
	if err != nil {
		logging.Error("Provisioning aborted", zap.Error(err))
	} else {
		logging.Info("Provisioning aborted", zap.Stringer("outcome", outcome))
	}
	return outcome, err
}

// teardown stops the hotspot with a context that survives cancellation of
// ctx, so an interrupt still cleans up.
func (o *Orchestrator) teardown(ctx context.Context) {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.Timing.CommandTimeout)
	defer cancel()
	o.c.Hotspot.Stop(tctx, o.cfg.Hotspot.ConnectionName)
}

func (o *Orchestrator) waitForConnectivity(ctx context.Context, iface string) bool {
	logging.Info("Waiting for connectivity",
		zap.String("interface", iface),
		zap.Duration("timeout", o.cfg.Wait.Timeout),
	)
	if o.c.Probe.IsConnected(ctx, iface) {
		return true
	}

	ticker := time.NewTicker(positive(o.cfg.Wait.PollInterval))
	defer ticker.Stop()
	timer := time.NewTimer(o.cfg.Wait.Timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			logging.Info("No connectivity within timeout")
			return false
		case <-ticker.C:
			if o.c.Probe.IsConnected(ctx, iface) {
				return true
			}
		}
	}
}

// Rescan performs the rescan-under-hotspot sequence and returns the new
// list. On scan failure the previous cache is kept and a transient error is
// returned once the access point is back.
func (o *Orchestrator) Rescan(ctx context.Context) ([]wifi.Network, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if o.State() != StateAwaitingCredentials {
		return nil, &Error{Kind: KindConfiguration, Op: "rescan", Message: MsgNotAccepting, Err: ErrNotAccepting}
	}

	ctx, cancel := o.bound(ctx)
	defer cancel()

	iface := o.cfg.Interface
	o.publish(EventRescan, "Scanning for networks")
	o.c.Hotspot.Stop(ctx, o.cfg.Hotspot.ConnectionName)

	var (
		nets    []wifi.Network
		scanErr error
	)
	if scanErr = sleep(ctx, o.cfg.Timing.RadioSwitch); scanErr == nil {
		nets, scanErr = o.c.Scanner.Scan(ctx, iface)
	}
	if scanErr == nil {
		o.setCache(nets)
	} else {
		logging.Warn("Rescan failed, keeping previous results", zap.Error(scanErr))
	}

	if err := o.restartHotspot(ctx); err != nil {
		return nil, err
	}

	if scanErr != nil {
		return nil, &Error{Kind: KindTransient, Op: "rescan", Message: "Scan failed: " + nm.Diagnostic(scanErr), Err: scanErr}
	}
	return o.Networks(), nil
}

// Connect joins ssid. On success it returns the assigned address ("unknown"
// if it cannot be read), moves to connected and signals the serve phase
// exactly once. On failure the access point is restored and a transient
// error carries the network manager's diagnostic.
func (o *Orchestrator) Connect(ctx context.Context, ssid, password string) (string, error) {
	if ssid == "" || password == "" {
		return "", &Error{Kind: KindConfiguration, Op: "connect", Message: MsgCredentialsRequired}
	}

	o.opMu.Lock()
	defer o.opMu.Unlock()

	if o.State() != StateAwaitingCredentials {
		return "", &Error{Kind: KindConfiguration, Op: "connect", Message: MsgNotAccepting, Err: ErrNotAccepting}
	}

	ctx, cancel := o.bound(ctx)
	defer cancel()

	iface := o.cfg.Interface
	logging.Info("Joining network", zap.String("ssid", ssid), zap.String("interface", iface))
	o.publish(EventConnecting, "Connecting to "+ssid)
	o.c.Hotspot.Stop(ctx, o.cfg.Hotspot.ConnectionName)

	err := sleep(ctx, o.cfg.Timing.RadioSwitch)
	if err == nil {
		joinCtx, cancelJoin := context.WithTimeout(ctx, o.cfg.Timing.JoinTimeout)
		err = o.c.Joiner.Connect(joinCtx, iface, ssid, password)
		cancelJoin()
	}
	if err != nil {
		msg := "Failed to connect: " + nm.Diagnostic(err)
		logging.Warn("Join failed", zap.String("ssid", ssid), zap.String("diagnostic", nm.Diagnostic(err)))
		if rerr := o.restartHotspot(ctx); rerr != nil {
			return "", rerr
		}
		o.publish(EventConnectFailed, msg)
		return "", &Error{Kind: KindTransient, Op: "connect", Message: msg, Err: err}
	}

	ip := "unknown"
	if err := sleep(ctx, o.cfg.Timing.AddressDelay); err == nil {
		if addr, err := o.c.Joiner.IPv4Address(ctx, iface); err == nil {
			ip = addr
		} else {
			logging.Warn("Could not read assigned address", zap.Error(err))
		}
	}

	if err := o.transition(StateConnected); err != nil {
		return "", err
	}
	o.publish(EventConnected, fmt.Sprintf("Connected to %s", ssid))
	logging.Info("Joined network", zap.String("ssid", ssid), zap.String("ip", ip))
	o.doneOnce.Do(func() { close(o.done) })
	return ip, nil
}

// restartHotspot brings the access point back with bounded retries. Running
// out of attempts is fatal and is signalled to the serve phase. Callers hold
// opMu.
func (o *Orchestrator) restartHotspot(ctx context.Context) error {
	attempts := o.cfg.Restart.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := o.cfg.Restart.Backoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = o.c.Hotspot.Start(ctx, o.identity(), o.cfg.Interface); err == nil {
			o.publish(EventHotspot, "Hotspot "+o.cfg.Hotspot.SSID+" active")
			return nil
		}
		if ctx.Err() != nil {
			return &Error{Kind: KindTransient, Op: "restart hotspot", Message: "Interrupted", Err: ctx.Err()}
		}
		logging.Warn("Hotspot restart failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.String("diagnostic", hotspotDiagnostic(err)),
		)
		o.c.Hotspot.Stop(ctx, o.cfg.Hotspot.ConnectionName)
		if attempt == attempts {
			break
		}
		if serr := sleep(ctx, backoff); serr != nil {
			return &Error{Kind: KindTransient, Op: "restart hotspot", Message: "Interrupted", Err: serr}
		}
		backoff *= 2
		if ceiling := o.cfg.Restart.MaxBackoff; ceiling > 0 && backoff > ceiling {
			backoff = ceiling
		}
	}

	ferr := &Error{
		Kind:    KindFatal,
		Op:      "restart hotspot",
		Message: "Hotspot could not be restarted: " + hotspotDiagnostic(err),
		Err:     err,
	}
	select {
	case o.fatal <- ferr:
	default:
	}
	return ferr
}

// bound derives a context that is also cancelled when the run context is.
// Request contexts alone are not enough: the client drops off as soon as
// the access point goes down.
func (o *Orchestrator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(o.baseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (o *Orchestrator) identity() hotspot.Identity {
	h := o.cfg.Hotspot
	return hotspot.Identity{
		SSID:           h.SSID,
		Passphrase:     h.Passphrase,
		Address:        h.Address,
		Prefix:         h.Prefix,
		ConnectionName: h.ConnectionName,
	}
}

func hotspotDiagnostic(err error) string {
	var herr *hotspot.Error
	if errors.As(err, &herr) {
		return herr.Diagnostic
	}
	return nm.Diagnostic(err)
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func positive(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Millisecond
	}
	return d
}
