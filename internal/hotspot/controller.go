package hotspot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/wifisetup/internal/discovery"
	"github.com/muurk/wifisetup/internal/logging"
	"github.com/muurk/wifisetup/internal/nm"
)

// ErrAlreadyActive is returned by Start while a hotspot from a previous
// Start has not been stopped.
var ErrAlreadyActive = errors.New("hotspot already active")

// Manager is the subset of the network manager needed to run an access
// point.
type Manager interface {
	CreateHotspot(ctx context.Context, p nm.HotspotProfile) error
	ConnectionDown(ctx context.Context, name string) error
	ConnectionDelete(ctx context.Context, name string) error
}

// Announcer publishes the captive page while the hotspot is up.
type Announcer interface {
	Advertise(ann discovery.Announcement) error
	Stop()
}

// Identity is the fixed identity of the setup access point.
type Identity struct {
	SSID           string
	Passphrase     string
	Address        string
	Prefix         int
	ConnectionName string
}

// Error is a failed hotspot operation. Diagnostic carries the network
// manager's own explanation.
type Error struct {
	Op         string
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("hotspot %s failed: %s", e.Op, e.Diagnostic)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Controller owns the access-point lifecycle and the status flag.
type Controller struct {
	mgr       Manager
	flag      *Flag
	announcer Announcer
	port      int
	session   string

	mu     sync.Mutex
	active bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithAnnouncer advertises the portal on port while the hotspot is up.
func WithAnnouncer(a Announcer, port int, session string) Option {
	return func(c *Controller) {
		c.announcer = a
		c.port = port
		c.session = session
	}
}

// NewController creates a Controller.
func NewController(mgr Manager, flag *Flag, opts ...Option) *Controller {
	c := &Controller{mgr: mgr, flag: flag}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start creates and activates the access point on iface and then writes the
// status flag. Any stale profile with the same name is deleted first. On
// failure the flag is left absent.
func (c *Controller) Start(ctx context.Context, id Identity, iface string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return &Error{Op: "start", Diagnostic: ErrAlreadyActive.Error(), Err: ErrAlreadyActive}
	}

	if err := c.mgr.ConnectionDelete(ctx, id.ConnectionName); err != nil && !errors.Is(err, nm.ErrNotFound) {
		logging.Warn("Failed to delete stale hotspot profile",
			zap.String("connection", id.ConnectionName),
			zap.String("diagnostic", nm.Diagnostic(err)),
		)
	}

	err := c.mgr.CreateHotspot(ctx, nm.HotspotProfile{
		Name:       id.ConnectionName,
		Interface:  iface,
		SSID:       id.SSID,
		Passphrase: id.Passphrase,
		Address:    id.Address,
		Prefix:     id.Prefix,
	})
	if err != nil {
		return &Error{Op: "start", Diagnostic: nm.Diagnostic(err), Err: err}
	}

	// profile exists from here on; Stop must clean it up even if the flag
	// write below fails
	c.active = true

	if err := c.flag.Write(id.Address); err != nil {
		return &Error{Op: "start", Diagnostic: err.Error(), Err: err}
	}

	if c.announcer != nil {
		err := c.announcer.Advertise(discovery.Announcement{
			Instance:  id.SSID,
			Interface: iface,
			Port:      c.port,
			Session:   c.session,
		})
		if err != nil {
			logging.Warn("Failed to advertise setup portal over mDNS", zap.Error(err))
		}
	}

	logging.Info("Hotspot active",
		zap.String("ssid", id.SSID),
		zap.String("address", id.Address),
		zap.String("interface", iface),
	)
	return nil
}

// Stop removes the status flag and brings down and deletes the access-point
// profile named connectionName. Every step tolerates "already absent", so
// Stop is safe after a failed Start, a previous Stop, or no Start at all.
//
// ctx should not be the cancelled run context: teardown must still reach
// NetworkManager after an interrupt.
func (c *Controller) Stop(ctx context.Context, connectionName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.announcer != nil {
		c.announcer.Stop()
	}

	if err := c.flag.Remove(); err != nil {
		logging.Warn("Failed to remove status flag", zap.Error(err))
	}

	if err := c.mgr.ConnectionDown(ctx, connectionName); err != nil && !errors.Is(err, nm.ErrNotFound) {
		logging.Debug("Hotspot connection down failed",
			zap.String("connection", connectionName),
			zap.String("diagnostic", nm.Diagnostic(err)),
		)
	}
	if err := c.mgr.ConnectionDelete(ctx, connectionName); err != nil && !errors.Is(err, nm.ErrNotFound) {
		logging.Warn("Failed to delete hotspot profile",
			zap.String("connection", connectionName),
			zap.String("diagnostic", nm.Diagnostic(err)),
		)
	}

	if c.active {
		logging.Info("Hotspot stopped", zap.String("connection", connectionName))
	}
	c.active = false
}

// Active reports whether a Start has succeeded without a matching Stop.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
