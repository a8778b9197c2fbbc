package control

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/screen-logic-core/internal/display"
)

// countingDriver tracks in-flight resolutions so tests can assert the
// concurrency bound.
type countingDriver struct {
	delay time.Duration

	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (c *countingDriver) Connect(_ context.Context, _ display.Display) (ConnectStatus, string) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	for {
		max := c.maxSeen.Load()
		if n <= max || c.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return ConnectOK, "Connected"
}

func (c *countingDriver) QueryState(_ context.Context, _ display.Display) display.State {
	return display.StateAwake
}

func (c *countingDriver) TogglePower(_ context.Context, _ display.Display) (bool, string) {
	return true, ""
}

// panickyDriver panics for one named display and succeeds for the rest.
type panickyDriver struct {
	panicOn string
}

func (p *panickyDriver) Connect(_ context.Context, d display.Display) (ConnectStatus, string) {
	if d.Name == p.panicOn {
		panic("driver defect: nil session")
	}
	return ConnectOK, "Connected"
}

func (p *panickyDriver) QueryState(_ context.Context, _ display.Display) display.State {
	return display.StateAwake
}

func (p *panickyDriver) TogglePower(_ context.Context, _ display.Display) (bool, string) {
	return true, ""
}

// statefulDriver holds per-display power state, so repeated dispatches
// observe the effect of earlier ones.
type statefulDriver struct {
	mu     sync.Mutex
	states map[string]display.State
}

func newStatefulDriver() *statefulDriver {
	return &statefulDriver{states: make(map[string]display.State)}
}

func (s *statefulDriver) Connect(_ context.Context, _ display.Display) (ConnectStatus, string) {
	return ConnectOK, "Connected"
}

func (s *statefulDriver) QueryState(_ context.Context, d display.Display) display.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[d.Name]; ok {
		return st
	}
	return display.StateAsleep
}

func (s *statefulDriver) TogglePower(_ context.Context, d display.Display) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[d.Name] == display.StateAwake {
		s.states[d.Name] = display.StateAsleep
	} else {
		s.states[d.Name] = display.StateAwake
	}
	return true, ""
}

func makeDisplays(n int) []display.Display {
	ds := make([]display.Display, 0, n)
	for i := 0; i < n; i++ {
		ds = append(ds, display.Display{
			Name:     fmt.Sprintf("screen-%02d", i),
			Address:  fmt.Sprintf("10.0.0.%d", 10+i),
			Protocol: display.ProtocolADB,
		})
	}
	return ds
}

func dispatcherWith(drv Driver) *Dispatcher {
	return NewDispatcher(resolverWith(drv, display.ProtocolADB))
}

func TestDispatch_OneResultPerDisplay(t *testing.T) {
	dp := dispatcherWith(&panickyDriver{panicOn: "screen-03"})
	displays := makeDisplays(7)

	results := dp.Dispatch(context.Background(), displays, display.ActionOn, Options{MaxConcurrency: 3})

	if len(results) != len(displays) {
		t.Fatalf("got %d results, want %d", len(results), len(displays))
	}
	seen := make(map[string]int)
	for _, res := range results {
		seen[res.Name]++
	}
	for _, d := range displays {
		if seen[d.Name] != 1 {
			t.Errorf("display %q appears %d times in results, want exactly once", d.Name, seen[d.Name])
		}
	}
}

func TestDispatch_EmptyBatch(t *testing.T) {
	dp := dispatcherWith(&countingDriver{})

	results := dp.Dispatch(context.Background(), nil, display.ActionCheck, Options{})
	if len(results) != 0 {
		t.Fatalf("got %d results for empty batch, want 0", len(results))
	}
}

func TestDispatch_ConcurrencyBound(t *testing.T) {
	drv := &countingDriver{delay: 20 * time.Millisecond}
	dp := dispatcherWith(drv)

	dp.Dispatch(context.Background(), makeDisplays(8), display.ActionCheck, Options{MaxConcurrency: 2})

	if max := drv.maxSeen.Load(); max > 2 {
		t.Errorf("observed %d concurrent resolutions, bound is 2", max)
	}
}

func TestDispatch_UsesAllWorkers(t *testing.T) {
	drv := &countingDriver{delay: 50 * time.Millisecond}
	dp := dispatcherWith(drv)

	start := time.Now()
	dp.Dispatch(context.Background(), makeDisplays(4), display.ActionCheck, Options{MaxConcurrency: 4})
	elapsed := time.Since(start)

	// Four displays at 50ms each must overlap; serial execution would
	// take 200ms.
	if elapsed > 150*time.Millisecond {
		t.Errorf("dispatch took %v, displays do not appear to run in parallel", elapsed)
	}
}

func TestDispatch_PanicIsolatedToOneDisplay(t *testing.T) {
	dp := dispatcherWith(&panickyDriver{panicOn: "screen-02"})
	displays := makeDisplays(5)

	results := dp.Dispatch(context.Background(), displays, display.ActionOn, Options{MaxConcurrency: 2})

	if len(results) != len(displays) {
		t.Fatalf("got %d results, want %d", len(results), len(displays))
	}
	for _, res := range results {
		if res.Name == "screen-02" {
			if res.State != display.StateUnreachable {
				t.Errorf("panicked display State = %q, want unreachable", res.State)
			}
			if res.Outcome != display.OutcomeFailed {
				t.Errorf("panicked display Outcome = %q, want failed", res.Outcome)
			}
			if res.Message != "Error: driver defect: nil session" {
				t.Errorf("panicked display Message = %q", res.Message)
			}
			continue
		}
		if res.Outcome != display.OutcomeSkipped {
			t.Errorf("sibling %q Outcome = %q, want skipped (already awake)", res.Name, res.Outcome)
		}
	}
}

func TestDispatch_CallbackOncePerDisplayAndSerialised(t *testing.T) {
	drv := &countingDriver{delay: 5 * time.Millisecond}
	dp := dispatcherWith(drv)
	displays := makeDisplays(10)

	var inCallback atomic.Int32
	calls := make(map[string]int)

	results := dp.Dispatch(context.Background(), displays, display.ActionCheck, Options{
		MaxConcurrency: 4,
		OnComplete: func(res display.Result) {
			if inCallback.Add(1) > 1 {
				t.Error("OnComplete ran concurrently with itself")
			}
			calls[res.Name]++
			inCallback.Add(-1)
		},
	})

	if len(calls) != len(displays) {
		t.Fatalf("callback saw %d displays, want %d", len(calls), len(displays))
	}
	for name, n := range calls {
		if n != 1 {
			t.Errorf("callback for %q ran %d times, want once", name, n)
		}
	}
	if len(results) != len(displays) {
		t.Errorf("got %d aggregate results, want %d", len(results), len(displays))
	}
}

func TestDispatch_RepeatIsIdempotent(t *testing.T) {
	drv := newStatefulDriver()
	dp := dispatcherWith(drv)
	displays := makeDisplays(3)

	first := dp.Dispatch(context.Background(), displays, display.ActionOn, Options{})
	for _, res := range first {
		if res.Outcome != display.OutcomeSuccess {
			t.Errorf("first on: %q Outcome = %q, want success", res.Name, res.Outcome)
		}
	}

	second := dp.Dispatch(context.Background(), displays, display.ActionOn, Options{})
	for _, res := range second {
		if res.Outcome != display.OutcomeSkipped {
			t.Errorf("second on: %q Outcome = %q, want skipped", res.Name, res.Outcome)
		}
		if res.Message != "Already on" {
			t.Errorf("second on: %q Message = %q", res.Name, res.Message)
		}
	}
}
