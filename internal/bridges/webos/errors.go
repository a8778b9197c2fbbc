package webos

import "errors"

var (
	// ErrMissingTokenStore indicates the bridge was built without a
	// pairing token store.
	ErrMissingTokenStore = errors.New("webos: token store is required")

	// ErrInvalidPort indicates the configured SSAP port is out of range.
	ErrInvalidPort = errors.New("webos: port must be between 1 and 65535")
)
