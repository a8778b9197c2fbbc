package display

// Display identifies one networked screen and how to reach it.
// Instances come from configuration and are treated as immutable.
type Display struct {
	// Name is a human-readable identifier, unique within a run.
	Name string `json:"name" yaml:"name"`

	// Address is the host (IP or hostname) of the display.
	// Ports are protocol-specific and supplied by the bridges.
	Address string `json:"address" yaml:"address"`

	// Protocol selects which bridge drives this display.
	Protocol Protocol `json:"protocol" yaml:"protocol"`

	// MAC is the hardware address used for Wake-on-LAN power-on.
	// webos power-on fails without one; unused for adb displays.
	MAC string `json:"mac,omitempty" yaml:"mac,omitempty"`

	// Group is an optional label for batch targeting (e.g. "inside").
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
}

// InGroup returns the displays carrying the given group label. An empty
// group selects every display.
func InGroup(displays []Display, group string) []Display {
	if group == "" {
		return displays
	}
	var out []Display
	for _, d := range displays {
		if d.Group == group {
			out = append(out, d)
		}
	}
	return out
}

// Protocol is the control protocol for a display.
type Protocol string

// Protocol constants.
const (
	// ProtocolADB drives Android TVs through the adb debug bridge.
	ProtocolADB Protocol = "adb"

	// ProtocolWebOS drives LG TVs through a paired WebSocket session,
	// with Wake-on-LAN for power-on.
	ProtocolWebOS Protocol = "webos"
)

// AllProtocols returns all valid protocol values.
func AllProtocols() []Protocol {
	return []Protocol{ProtocolADB, ProtocolWebOS}
}

// State is the last-observed power/reachability state of a display.
// It is recomputed on every query and never persisted.
type State string

// State constants.
const (
	StateUnknown     State = "unknown"
	StateAwake       State = "awake"
	StateAsleep      State = "asleep"
	StateUnreachable State = "unreachable"
)

// Outcome describes what happened to a requested power action.
// It is empty for pure queries, where no action was requested.
type Outcome string

// Outcome constants.
const (
	// OutcomeNone marks a result that carried no action (query only).
	OutcomeNone Outcome = ""

	// OutcomeSuccess means the action was performed.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailed means the action was attempted and failed.
	OutcomeFailed Outcome = "failed"

	// OutcomeSkipped means the requested state already held, so the
	// action was a no-op. Distinct from success so callers can report
	// "nothing to do" accurately.
	OutcomeSkipped Outcome = "skipped"
)

// Action is a batch operation requested against displays.
type Action string

// Action constants.
const (
	ActionCheck Action = "check"
	ActionOn    Action = "on"
	ActionOff   Action = "off"
)

// Result is the single outcome record for one display in one dispatch
// call. Every dispatched display yields exactly one Result, even on
// transport failure or an unexpected fault.
type Result struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	State   State   `json:"state"`
	Outcome Outcome `json:"outcome,omitempty"`
	Message string  `json:"message"`
}
