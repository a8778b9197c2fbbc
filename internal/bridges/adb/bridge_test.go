package adb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/screen-logic-core/internal/control"
	"github.com/nerrad567/screen-logic-core/internal/display"
)

// fakeInvoker returns scripted responses keyed by the adb subcommand and
// records every invocation.
type fakeInvoker struct {
	responses map[string]struct {
		ok  bool
		out string
	}
	invocations [][]string
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{responses: make(map[string]struct {
		ok  bool
		out string
	})}
}

func (f *fakeInvoker) respond(key string, ok bool, out string) {
	f.responses[key] = struct {
		ok  bool
		out string
	}{ok, out}
}

func (f *fakeInvoker) Run(_ context.Context, args []string, _ time.Duration) (bool, string) {
	f.invocations = append(f.invocations, args)

	key := args[0]
	if key == "-s" {
		// Shell invocations are keyed by their command text.
		key = strings.Join(args[3:], " ")
	}
	resp, ok := f.responses[key]
	if !ok {
		return false, "unscripted invocation: " + strings.Join(args, " ")
	}
	return resp.ok, resp.out
}

const (
	queryKey  = "dumpsys power | grep 'mWakefulness='"
	toggleKey = "input keyevent 26"
)

func testBridge(inv Invoker) *Bridge {
	return newBridge(inv, Config{Binary: "adb", Port: 5555})
}

func testDisplay() display.Display {
	return display.Display{Name: "Lobby", Address: "10.0.0.5", Protocol: display.ProtocolADB}
}

func TestNewBridge_Validation(t *testing.T) {
	if _, err := NewBridge(Config{Port: 5555}); err != ErrMissingBinary {
		t.Errorf("missing binary: err = %v, want ErrMissingBinary", err)
	}
	if _, err := NewBridge(Config{Binary: "adb", Port: 0}); err != ErrInvalidPort {
		t.Errorf("zero port: err = %v, want ErrInvalidPort", err)
	}
	if _, err := NewBridge(Config{Binary: "adb", Port: 5555}); err != nil {
		t.Errorf("valid config: err = %v", err)
	}
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name       string
		ok         bool
		out        string
		wantStatus control.ConnectStatus
	}{
		{"fresh connect", true, "connected to 10.0.0.5:5555", control.ConnectOK},
		{"already connected", true, "already connected to 10.0.0.5:5555", control.ConnectOK},
		{"refused", true, "failed to connect to '10.0.0.5:5555'", control.ConnectFailed},
		{"unreachable", true, "cannot connect to 10.0.0.5:5555: no route to host", control.ConnectFailed},
		{"timed out", false, "Connection timed out", control.ConnectFailed},
		{"binary missing", false, "ADB not found", control.ConnectFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newFakeInvoker()
			inv.respond("connect", tt.ok, tt.out)
			b := testBridge(inv)

			status, detail := b.Connect(context.Background(), testDisplay())
			if status != tt.wantStatus {
				t.Errorf("status = %v, want %v", status, tt.wantStatus)
			}
			if status == control.ConnectFailed && detail != tt.out {
				t.Errorf("detail = %q, want %q", detail, tt.out)
			}
		})
	}
}

func TestConnect_AppendsConfiguredPort(t *testing.T) {
	inv := newFakeInvoker()
	inv.respond("connect", true, "connected to 10.0.0.5:5555")
	b := testBridge(inv)

	b.Connect(context.Background(), testDisplay())

	got := inv.invocations[0]
	if len(got) != 2 || got[1] != "10.0.0.5:5555" {
		t.Errorf("connect args = %v, want [connect 10.0.0.5:5555]", got)
	}
}

func TestConnect_KeepsExplicitPort(t *testing.T) {
	inv := newFakeInvoker()
	inv.respond("connect", true, "connected to 10.0.0.5:4321")
	b := testBridge(inv)

	d := testDisplay()
	d.Address = "10.0.0.5:4321"
	b.Connect(context.Background(), d)

	if got := inv.invocations[0][1]; got != "10.0.0.5:4321" {
		t.Errorf("connect target = %q, want explicit port preserved", got)
	}
}

func TestQueryState(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
		out  string
		want display.State
	}{
		{"awake", true, "  mWakefulness=Awake", display.StateAwake},
		{"asleep", true, "  mWakefulness=Asleep", display.StateAsleep},
		{"dozing", true, "  mWakefulness=Dozing", display.StateAsleep},
		{"unparseable", true, "  mWakefulness=Napping", display.StateUnknown},
		{"empty output", true, "", display.StateUnknown},
		{"command failed", false, "device offline", display.StateUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newFakeInvoker()
			inv.respond(queryKey, tt.ok, tt.out)
			b := testBridge(inv)

			if got := b.QueryState(context.Background(), testDisplay()); got != tt.want {
				t.Errorf("state = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTogglePower(t *testing.T) {
	inv := newFakeInvoker()
	inv.respond(toggleKey, true, "")
	b := testBridge(inv)

	ok, _ := b.TogglePower(context.Background(), testDisplay())
	if !ok {
		t.Fatal("toggle should succeed")
	}

	got := inv.invocations[0]
	want := []string{"-s", "10.0.0.5:5555", "shell", "input", "keyevent", "26"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("toggle args = %v, want %v", got, want)
	}
}

func TestTogglePower_Failure(t *testing.T) {
	inv := newFakeInvoker()
	inv.respond(toggleKey, false, "Connection timed out")
	b := testBridge(inv)

	ok, detail := b.TogglePower(context.Background(), testDisplay())
	if ok {
		t.Fatal("toggle should fail")
	}
	if detail != "Connection timed out" {
		t.Errorf("detail = %q", detail)
	}
}

func TestDisconnect_BestEffort(t *testing.T) {
	inv := newFakeInvoker()
	inv.respond("disconnect", false, "no such device")
	b := testBridge(inv)

	// Must not panic or propagate the failure.
	b.Disconnect(context.Background(), testDisplay())

	if got := inv.invocations[0]; got[0] != "disconnect" || got[1] != "10.0.0.5:5555" {
		t.Errorf("disconnect args = %v", got)
	}
}
