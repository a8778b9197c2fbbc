// Package database provides SQLite storage for Screen Logic Core.
//
// The database holds the webos pairing tokens (see internal/pairing).
// Schema changes are applied through embedded SQL migrations registered
// by the top-level migrations package.
//
// SQLite is configured with WAL mode and a busy timeout so the pairing
// store can be read while a dispatch is saving a freshly issued token.
package database
