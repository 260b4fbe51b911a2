package poll

import (
	"context"
	"time"

	ensureerrors "github.com/ensureops/ensure/pkg/errors"
)

// State enumerates the task statuses reported by the cluster task API. The
// remote API is not versioned against this contract, so values outside the
// known set map to StateUnknown.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateUnknown State = "unknown"
)

// ParseState maps a raw task status string onto the closed State set.
func ParseState(raw string) State {
	switch State(raw) {
	case StateRunning:
		return StateRunning
	case StateStopped:
		return StateStopped
	default:
		return StateUnknown
	}
}

// ExitOK is the exit status the task API reports for a successful task.
const ExitOK = "OK"

// Status is a point-in-time view of an asynchronous remote task.
type Status struct {
	State      State
	ExitStatus string
}

// TerminalSuccess reports whether the task has finished successfully. The
// task status value "stopped" is the API's terminal marker; it is unrelated
// to an instance's own stopped lifecycle status.
func (s Status) TerminalSuccess() bool {
	return s.State == StateStopped && s.ExitStatus == ExitOK
}

// StatusFunc fetches the current status of the task under watch.
type StatusFunc func(ctx context.Context) (Status, error)

// LogFunc returns the most recent task log line for diagnostics.
type LogFunc func(ctx context.Context) string

// Clock abstracts wall-clock time so tests can drive the poller without
// real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns a Clock backed by the real wall clock.
func SystemClock() Clock { return systemClock{} }

// Waiter polls an asynchronous task once per tick until terminal success or
// until its deadline passes. The cadence is a flat interval: no backoff, and
// no cancellation path beyond the budget itself.
type Waiter struct {
	Interval time.Duration
	Clock    Clock
}

// NewWaiter returns a Waiter with the standard one-second cadence.
func NewWaiter() *Waiter {
	return &Waiter{Interval: time.Second, Clock: SystemClock()}
}

// Wait blocks until the watched task reports terminal success or the budget
// is exhausted. The status is checked immediately, then once per tick; a
// task that turns terminal at tick k is observed after exactly k ticks, and
// a task that never turns terminal fails once the deadline is reached, with
// no ticks spent beyond the budget.
//
// op names the operation for the timeout message. lastLog is consulted only
// when the timeout fires and may be nil. A status fetch error is terminal
// for the invocation; a task that finished with a non-OK exit status keeps
// being polled until the budget runs out.
func (w *Waiter) Wait(ctx context.Context, op string, budget time.Duration, status StatusFunc, lastLog LogFunc) error {
	interval := w.Interval
	if interval <= 0 {
		interval = time.Second
	}
	clock := w.Clock
	if clock == nil {
		clock = systemClock{}
	}

	deadline := clock.Now().Add(budget)
	for {
		st, err := status(ctx)
		if err != nil {
			return err
		}
		if st.TerminalSuccess() {
			return nil
		}

		if !clock.Now().Before(deadline) {
			line := ""
			if lastLog != nil {
				line = lastLog(ctx)
			}
			return ensureerrors.NewTimeoutError(op, line)
		}

		clock.Sleep(interval)
	}
}
