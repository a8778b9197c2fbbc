package adb

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/screen-logic-core/internal/control"
	"github.com/nerrad567/screen-logic-core/internal/display"
)

// disconnectTimeout bounds the best-effort session teardown. Teardown
// runs after the resolution is already decided, so it gets a short fixed
// budget instead of the caller's deadline.
const disconnectTimeout = 3 * time.Second

// Config holds adb bridge settings.
type Config struct {
	// Binary is the adb executable, a bare name resolved via PATH or an
	// absolute path.
	Binary string

	// Port is the TCP debugging port displays listen on.
	Port int

	// ConnectTimeout bounds the initial TCP connect.
	ConnectTimeout time.Duration

	// CommandTimeout bounds each shell command after connecting.
	CommandTimeout time.Duration
}

// Bridge implements control.Driver over the adb command-line tool.
type Bridge struct {
	invoker        Invoker
	port           int
	connectTimeout time.Duration
	commandTimeout time.Duration
	logger         control.Logger
}

// NewBridge creates an adb bridge that shells out to the configured
// binary.
func NewBridge(cfg Config) (*Bridge, error) {
	if cfg.Binary == "" {
		return nil, ErrMissingBinary
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, ErrInvalidPort
	}
	return newBridge(NewExecInvoker(cfg.Binary), cfg), nil
}

func newBridge(inv Invoker, cfg Config) *Bridge {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	commandTimeout := cfg.CommandTimeout
	if commandTimeout <= 0 {
		commandTimeout = 5 * time.Second
	}
	return &Bridge{
		invoker:        inv,
		port:           cfg.Port,
		connectTimeout: connectTimeout,
		commandTimeout: commandTimeout,
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger control.Logger) {
	b.logger = logger
}

// Connect registers the display with the local adb server over TCP.
// adb prints its verdict to stdout and exits zero either way, so success
// is judged by the output text, not the exit code.
func (b *Bridge) Connect(ctx context.Context, d display.Display) (control.ConnectStatus, string) {
	target := b.target(d)
	ok, out := b.invoker.Run(ctx, []string{"connect", target}, b.connectTimeout)
	if !ok {
		b.logf("adb connect failed", "display", d.Name, "target", target, "detail", out)
		return control.ConnectFailed, out
	}
	// "connected to X" and "already connected to X" are both fine;
	// "cannot connect" and "failed to connect" are not.
	if !strings.Contains(strings.ToLower(out), "connected") {
		b.logf("adb connect refused", "display", d.Name, "target", target, "detail", out)
		return control.ConnectFailed, out
	}
	return control.ConnectOK, out
}

// Disconnect drops the display from the adb server's connection table.
// Best effort: failures are logged and swallowed.
func (b *Bridge) Disconnect(ctx context.Context, d display.Display) {
	target := b.target(d)
	if ok, out := b.invoker.Run(ctx, []string{"disconnect", target}, disconnectTimeout); !ok {
		b.logf("adb disconnect failed", "display", d.Name, "target", target, "detail", out)
	}
}

// QueryState reads the display's wakefulness from dumpsys. The grep runs
// on the device shell so only the mWakefulness line crosses the wire.
func (b *Bridge) QueryState(ctx context.Context, d display.Display) display.State {
	target := b.target(d)
	ok, out := b.invoker.Run(ctx, []string{
		"-s", target, "shell", "dumpsys power | grep 'mWakefulness='",
	}, b.commandTimeout)
	if !ok {
		b.logf("adb state query failed", "display", d.Name, "target", target, "detail", out)
		return display.StateUnreachable
	}

	switch {
	case strings.Contains(out, "Awake"):
		return display.StateAwake
	case strings.Contains(out, "Asleep"), strings.Contains(out, "Dozing"):
		return display.StateAsleep
	default:
		return display.StateUnknown
	}
}

// TogglePower sends the power keyevent. The event is a blind toggle;
// callers decide direction by reading the state first.
func (b *Bridge) TogglePower(ctx context.Context, d display.Display) (bool, string) {
	target := b.target(d)
	ok, out := b.invoker.Run(ctx, []string{
		"-s", target, "shell", "input", "keyevent", "26",
	}, b.commandTimeout)
	if !ok {
		b.logf("adb power toggle failed", "display", d.Name, "target", target, "detail", out)
	}
	return ok, out
}

// target forms the host:port adb identifier, keeping any port already
// present in the configured address.
func (b *Bridge) target(d display.Display) string {
	if _, _, err := net.SplitHostPort(d.Address); err == nil {
		return d.Address
	}
	return net.JoinHostPort(d.Address, strconv.Itoa(b.port))
}

func (b *Bridge) logf(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
