// Package adb drives Android-based displays through the adb command-line
// tool.
//
// The bridge shells out to the adb binary for every operation: connect
// over TCP, read the power state from dumpsys, and send the power
// keyevent. adb has no notion of "on" or "off", only a blind toggle, so
// callers must read the state immediately before toggling.
//
// Every call runs under its own timeout and the TCP session is
// disconnected after each operation, so a hung display never wedges the
// adb server's connection table.
package adb
