package display

import "errors"

// Domain errors for the display package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, display.ErrInvalidProtocol) {
//	    // handle bad protocol value
//	}
var (
	// ErrMissingName is returned when a display has no name.
	ErrMissingName = errors.New("display: name is required")

	// ErrMissingAddress is returned when a display has no address.
	ErrMissingAddress = errors.New("display: address is required")

	// ErrInvalidProtocol is returned when a protocol value is not recognised.
	ErrInvalidProtocol = errors.New("display: invalid protocol")

	// ErrInvalidMAC is returned when a MAC address cannot be parsed.
	ErrInvalidMAC = errors.New("display: invalid mac address")

	// ErrInvalidAction is returned when an action value is not recognised.
	ErrInvalidAction = errors.New("display: invalid action")
)
