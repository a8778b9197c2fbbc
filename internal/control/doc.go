// Package control implements the device action orchestration core.
//
// It is protocol-agnostic: the two protocol bridges (adb, webos) plug in
// behind the Driver interface, a Resolver runs the per-display state
// machine for one requested action, and a Dispatcher fans a batch of
// display actions out across a bounded worker pool, streaming each
// result to an optional callback as it completes and returning the full
// set at the end.
//
// The core never raises transport failures as errors: every display
// yields exactly one display.Result, whatever happens on the wire.
package control
