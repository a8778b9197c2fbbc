package display

import (
	"fmt"
	"net"
	"strings"
)

// ParseProtocol validates a protocol string, applying the adb default
// for an empty value.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ProtocolADB, nil
	case ProtocolADB:
		return ProtocolADB, nil
	case ProtocolWebOS:
		return ProtocolWebOS, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidProtocol, s)
	}
}

// ParseAction validates an action string.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionCheck:
		return ActionCheck, nil
	case ActionOn:
		return ActionOn, nil
	case ActionOff:
		return ActionOff, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// Validate checks a display for configuration errors.
//
// Rules:
//   - name and address are required
//   - protocol must be a known value (empty is not valid here; config
//     applies the adb default before validation)
//   - a MAC address, when present, must parse
//
// A webos display without a MAC is accepted: power-on for it fails at
// dispatch time with a per-display result, while queries and power-off
// still work over the websocket.
func (d Display) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(d.Address) == "" {
		return fmt.Errorf("%w (display %q)", ErrMissingAddress, d.Name)
	}

	switch d.Protocol {
	case ProtocolADB, ProtocolWebOS:
	default:
		return fmt.Errorf("%w: %q (display %q)", ErrInvalidProtocol, d.Protocol, d.Name)
	}

	if strings.TrimSpace(d.MAC) != "" {
		if _, err := net.ParseMAC(d.MAC); err != nil {
			return fmt.Errorf("%w (display %q): %q", ErrInvalidMAC, d.Name, d.MAC)
		}
	}

	return nil
}
