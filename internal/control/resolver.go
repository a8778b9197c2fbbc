package control

import (
	"context"
	"fmt"

	"github.com/nerrad567/screen-logic-core/internal/display"
)

// Result message texts. These are user-visible and, for the pairing
// prompt, pattern-matched by the presentation layer, so they are fixed
// strings rather than free-form.
const (
	msgConnected       = "Connected"
	msgAlreadyOn       = "Already on"
	msgAlreadyOff      = "Already off"
	msgOffOrUnreach    = "Already off or unreachable"
	msgStateUnreadable = "Could not read power state"
	msgTurnedOn        = "Turned on"
	msgTurnedOff       = "Turned off"
	msgNoMAC           = "No MAC address configured for Wake-on-LAN"
	msgWOLSent         = "Wake-on-LAN packet sent"
	msgWOLFailed       = "Wake-on-LAN packet failed to send"
)

// Resolver selects the driver for a display and runs the per-display
// state machine for one action, producing exactly one Result.
//
// The resolution sequence is Disconnected -> Connected -> StateKnown ->
// Done. The current state is always read immediately before a toggle:
// the adb protocol only has a blind power toggle, so acting on a stale
// state would flip power the wrong way.
type Resolver struct {
	drivers map[display.Protocol]Driver
}

// NewResolver creates a resolver over the given protocol drivers.
func NewResolver(drivers map[display.Protocol]Driver) *Resolver {
	return &Resolver{drivers: drivers}
}

// Resolve runs one action against one display and returns its Result.
func (r *Resolver) Resolve(ctx context.Context, d display.Display, action display.Action) display.Result {
	drv, ok := r.drivers[d.Protocol]
	if !ok {
		return display.Result{
			Name:    d.Name,
			Address: d.Address,
			State:   display.StateUnknown,
			Outcome: outcomeFor(action, display.OutcomeFailed),
			Message: fmt.Sprintf("No driver for protocol %q", d.Protocol),
		}
	}

	switch action {
	case display.ActionOn:
		return r.turnOn(ctx, drv, d)
	case display.ActionOff:
		return r.turnOff(ctx, drv, d)
	default:
		return r.check(ctx, drv, d)
	}
}

// check connects and reads the power state. No action outcome is set.
func (r *Resolver) check(ctx context.Context, drv Driver, d display.Display) display.Result {
	status, detail := drv.Connect(ctx, d)
	switch status {
	case ConnectPending:
		return result(d, display.StateUnknown, display.OutcomeNone, detail)
	case ConnectFailed:
		return result(d, display.StateUnreachable, display.OutcomeNone, "Could not connect: "+detail)
	}

	defer disconnect(ctx, drv, d)
	state := drv.QueryState(ctx, d)
	return result(d, state, display.OutcomeNone, msgConnected)
}

// turnOn powers a display on.
//
// For wake-capable drivers (webos) the power-on path is Wake-on-LAN: a
// sleeping TV cannot hold the paired session, so a failed connect is the
// normal trigger for the wake packet, and a successful connect means the
// display is already on. The MAC requirement is checked before any
// network traffic.
//
// For toggle drivers (adb) the state is read first and the blind toggle
// is sent only when the display is confirmed not awake.
func (r *Resolver) turnOn(ctx context.Context, drv Driver, d display.Display) display.Result {
	waker, canWake := drv.(Waker)

	if canWake && d.MAC == "" {
		return result(d, display.StateUnknown, display.OutcomeFailed, msgNoMAC)
	}

	status, detail := drv.Connect(ctx, d)
	if status == ConnectPending {
		return result(d, display.StateUnknown, display.OutcomeFailed, detail)
	}
	if status == ConnectOK {
		defer disconnect(ctx, drv, d)
	}

	if canWake {
		if status == ConnectOK {
			return result(d, display.StateAwake, display.OutcomeSkipped, msgAlreadyOn)
		}
		if !waker.WakeOnLAN(d.MAC) {
			return result(d, display.StateAsleep, display.OutcomeFailed, msgWOLFailed)
		}
		// Send success is not a confirmation the display actually woke;
		// wake packets carry no acknowledgment.
		return result(d, display.StateAwake, display.OutcomeSuccess, msgWOLSent)
	}

	if status == ConnectFailed {
		return result(d, display.StateUnreachable, display.OutcomeFailed, "Could not connect: "+detail)
	}

	state := drv.QueryState(ctx, d)
	switch state {
	case display.StateAwake:
		return result(d, display.StateAwake, display.OutcomeSkipped, msgAlreadyOn)
	case display.StateUnreachable:
		return result(d, display.StateUnreachable, display.OutcomeFailed, msgStateUnreadable)
	}

	ok, toggleDetail := drv.TogglePower(ctx, d)
	if !ok {
		return result(d, state, display.OutcomeFailed, "Toggle failed: "+toggleDetail)
	}
	return result(d, display.StateAwake, display.OutcomeSuccess, msgTurnedOn)
}

// turnOff powers a display off, symmetric to turnOn. Drivers with a
// dedicated power-off command (webos) use it over the live session; an
// unreachable webos display is treated as already off. Toggle drivers
// read the state first and skip when the display is already asleep.
func (r *Resolver) turnOff(ctx context.Context, drv Driver, d display.Display) display.Result {
	status, detail := drv.Connect(ctx, d)
	if status == ConnectPending {
		return result(d, display.StateUnknown, display.OutcomeFailed, detail)
	}
	if status == ConnectOK {
		defer disconnect(ctx, drv, d)
	}

	if po, hasPowerOff := drv.(PowerOffer); hasPowerOff {
		if status == ConnectFailed {
			return result(d, display.StateAsleep, display.OutcomeSkipped, msgOffOrUnreach)
		}
		ok, offDetail := po.PowerOff(ctx, d)
		if !ok {
			return result(d, display.StateAwake, display.OutcomeFailed, "Power off failed: "+offDetail)
		}
		return result(d, display.StateAsleep, display.OutcomeSuccess, msgTurnedOff)
	}

	if status == ConnectFailed {
		return result(d, display.StateUnreachable, display.OutcomeFailed, "Could not connect: "+detail)
	}

	state := drv.QueryState(ctx, d)
	switch state {
	case display.StateAsleep:
		return result(d, display.StateAsleep, display.OutcomeSkipped, msgAlreadyOff)
	case display.StateUnreachable:
		return result(d, display.StateUnreachable, display.OutcomeFailed, msgStateUnreadable)
	}

	ok, toggleDetail := drv.TogglePower(ctx, d)
	if !ok {
		return result(d, state, display.OutcomeFailed, "Toggle failed: "+toggleDetail)
	}
	return result(d, display.StateAsleep, display.OutcomeSuccess, msgTurnedOff)
}

// disconnect tears down the driver's transport state when it has any.
func disconnect(ctx context.Context, drv Driver, d display.Display) {
	if dc, ok := drv.(Disconnecter); ok {
		dc.Disconnect(ctx, d)
	}
}

// result builds a Result for a display.
func result(d display.Display, state display.State, outcome display.Outcome, message string) display.Result {
	return display.Result{
		Name:    d.Name,
		Address: d.Address,
		State:   state,
		Outcome: outcome,
		Message: message,
	}
}

// outcomeFor suppresses the outcome for pure queries, which carry no action.
func outcomeFor(action display.Action, outcome display.Outcome) display.Outcome {
	if action == display.ActionCheck {
		return display.OutcomeNone
	}
	return outcome
}
