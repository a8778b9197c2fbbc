package control

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/screen-logic-core/internal/display"
)

// DefaultMaxConcurrency is the worker pool size used when Options does
// not specify one.
const DefaultMaxConcurrency = 6

// Logger is the logging interface for the dispatcher.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options tunes a single Dispatch call.
type Options struct {
	// MaxConcurrency bounds how many displays are resolved in parallel.
	// Values below 1 fall back to DefaultMaxConcurrency.
	MaxConcurrency int

	// OnComplete, if set, is invoked once per display as its result
	// becomes ready, in completion order. Invocations are serialised:
	// the callback never runs concurrently with itself. Callers needing
	// display identity must read it off the Result, not rely on order.
	OnComplete func(display.Result)
}

// Dispatcher fans an action out across many displays through a bounded
// worker pool.
//
// Displays are fully independent: there is no cross-display
// synchronisation, and a slow or hung display consumes one worker slot
// without delaying the others. Results are funnelled through a single
// channel drained by the caller's goroutine, which both appends to the
// aggregate slice and feeds the completion callback, so the two delivery
// paths can never disagree.
//
// Dispatch imposes no overall deadline; callers bound total wall-clock
// time through ctx. Overlapping Dispatch calls against the same display
// are not safe (the underlying transports do not multiplex sessions to
// one device) and must be serialised by the caller.
type Dispatcher struct {
	resolver *Resolver
	logger   Logger
}

// NewDispatcher creates a dispatcher over the given resolver.
func NewDispatcher(resolver *Resolver) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (dp *Dispatcher) SetLogger(logger Logger) {
	dp.logger = logger
}

// Dispatch runs the action against every display and returns one Result
// per display. The returned slice always has len(displays) entries, in
// unspecified order. An unexpected fault while resolving one display is
// downgraded to a failed Result for that display only; it never aborts
// sibling resolutions or the call as a whole.
func (dp *Dispatcher) Dispatch(ctx context.Context, displays []display.Display, action display.Action, opts Options) []display.Result {
	if len(displays) == 0 {
		return nil
	}

	workers := opts.MaxConcurrency
	if workers < 1 {
		workers = DefaultMaxConcurrency
	}
	if workers > len(displays) {
		workers = len(displays)
	}

	jobID := uuid.NewString()
	dp.logger.Info("dispatch started",
		"job_id", jobID,
		"action", string(action),
		"displays", len(displays),
		"workers", workers,
	)

	jobs := make(chan display.Display)
	resultsCh := make(chan display.Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				resultsCh <- dp.resolveSafe(ctx, d, action)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, d := range displays {
			jobs <- d
		}
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	// Single funnel: the aggregate append and the callback both consume
	// the same stream, so each result is delivered exactly once to each.
	results := make([]display.Result, 0, len(displays))
	for res := range resultsCh {
		results = append(results, res)
		dp.logger.Debug("display resolved",
			"job_id", jobID,
			"display", res.Name,
			"state", string(res.State),
			"outcome", string(res.Outcome),
		)
		if opts.OnComplete != nil {
			opts.OnComplete(res)
		}
	}

	dp.logger.Info("dispatch finished", "job_id", jobID, "results", len(results))
	return results
}

// resolveSafe runs one resolution, converting an unexpected panic into a
// failed Result for that display. A defect in one driver must never take
// down the rest of the batch.
func (dp *Dispatcher) resolveSafe(ctx context.Context, d display.Display, action display.Action) (res display.Result) {
	defer func() {
		if r := recover(); r != nil {
			dp.logger.Error("panic during display resolution",
				"display", d.Name,
				"panic", fmt.Sprintf("%v", r),
			)
			res = display.Result{
				Name:    d.Name,
				Address: d.Address,
				State:   display.StateUnreachable,
				Outcome: outcomeFor(action, display.OutcomeFailed),
				Message: fmt.Sprintf("Error: %v", r),
			}
		}
	}()

	return dp.resolver.Resolve(ctx, d, action)
}
