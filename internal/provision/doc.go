// Package provision implements the provisioning state machine.
//
// An Orchestrator waits a bounded time for the interface to connect on its
// own. If it does not, it scans, starts the setup hotspot and serves the
// captive portal until a join succeeds or the run is interrupted. It owns
// the cached network list and the current State; the portal calls Networks,
// Rescan and Connect rather than touching either directly.
//
// Every hotspot start and stop goes through the orchestrator under one lock,
// so a rescan or join always finishes its stop/start pair before anything
// else touches the access point. Every path out of Run other than a
// successful join stops the hotspot, including interrupts.
//
// Failures are classified by Kind:
//
//   - KindConfiguration: empty credentials or a request in the wrong state.
//   - KindTransient: scan or join failures. The hotspot is restored.
//   - KindFatal: the hotspot could not be created or restarted.
package provision
