package adb

import "errors"

var (
	// ErrMissingBinary indicates the bridge was built without an adb
	// binary path.
	ErrMissingBinary = errors.New("adb: binary path is required")

	// ErrInvalidPort indicates the configured adb TCP port is out of range.
	ErrInvalidPort = errors.New("adb: port must be between 1 and 65535")
)
