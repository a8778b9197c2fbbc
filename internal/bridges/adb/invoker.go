package adb

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Failure texts surfaced to callers in place of raw exec errors. The
// timeout text in particular flows verbatim into result messages.
const (
	detailTimedOut = "Connection timed out"
	detailNotFound = "ADB not found"
)

// Invoker runs one adb invocation and reports whether it succeeded,
// along with its combined output (or a failure detail). Tests substitute
// a scripted implementation; production uses ExecInvoker.
type Invoker interface {
	Run(ctx context.Context, args []string, timeout time.Duration) (bool, string)
}

// ExecInvoker invokes a real adb binary through os/exec.
type ExecInvoker struct {
	binary string
}

// NewExecInvoker creates an invoker for the given adb binary path.
func NewExecInvoker(binary string) *ExecInvoker {
	return &ExecInvoker{binary: binary}
}

// Run executes the adb binary with the given arguments under the given
// timeout. Timeouts and a missing binary are collapsed to fixed detail
// strings; any other failure carries the command output when there is
// any, otherwise the exec error text.
func (e *ExecInvoker) Run(ctx context.Context, args []string, timeout time.Duration) (bool, string) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(runCtx, e.binary, args...).CombinedOutput()
	output := strings.TrimSpace(string(out))

	if err == nil {
		return true, output
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return false, detailTimedOut
	}
	if errors.Is(err, exec.ErrNotFound) {
		return false, detailNotFound
	}
	if output != "" {
		return false, output
	}
	return false, err.Error()
}
