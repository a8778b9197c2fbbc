package control

import (
	"context"

	"github.com/nerrad567/screen-logic-core/internal/display"
)

// ConnectStatus is the outcome of a driver connect attempt.
type ConnectStatus int

// Connect outcomes.
const (
	// ConnectOK means the transport is reachable and usable.
	ConnectOK ConnectStatus = iota

	// ConnectFailed means the display could not be reached.
	ConnectFailed

	// ConnectPending means the display is reachable but waiting for an
	// out-of-band confirmation (the webos pairing prompt). The detail
	// string carries the exact message the UI pattern-matches on; it
	// must be preserved verbatim and never conflated with a failure.
	ConnectPending
)

// Driver performs protocol-level operations against a single display.
//
// Implementations are stateless per call: each method establishes
// whatever transport it needs and releases it before returning. Every
// call is bounded by the driver's own per-call timeout; anticipated
// transport failures are reported as values, never as errors or panics.
type Driver interface {
	// Connect establishes transport-level reachability or pairing.
	// The detail string is human-readable and, for ConnectPending,
	// carried verbatim into the result message.
	Connect(ctx context.Context, d display.Display) (ConnectStatus, string)

	// QueryState reports the display's observed power state.
	// Transport failure maps to StateUnreachable.
	QueryState(ctx context.Context, d display.Display) display.State

	// TogglePower sends the single control action that flips power.
	// It has no query capability of its own: callers must read the
	// current state immediately before toggling.
	TogglePower(ctx context.Context, d display.Display) (bool, string)
}

// Waker is implemented by drivers whose power-on path is a broadcast
// wake packet rather than the live connection (webos). WakeOnLAN returns
// false only on local construction or send failure; wake packets are
// fire-and-forget and never acknowledged by the display.
type Waker interface {
	WakeOnLAN(mac string) bool
}

// PowerOffer is implemented by drivers with a dedicated power-off
// command (webos), used instead of the blind toggle.
type PowerOffer interface {
	PowerOff(ctx context.Context, d display.Display) (bool, string)
}

// Disconnecter is implemented by drivers that park transport state in an
// external daemon (adb) and need an explicit teardown once a resolution
// finishes. Teardown is best effort and must not fail the resolution.
type Disconnecter interface {
	Disconnect(ctx context.Context, d display.Display)
}
