package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ensureerrors "github.com/ensureops/ensure/pkg/errors"
)

// fakeClock advances by the slept duration and counts ticks.
type fakeClock struct {
	now   time.Time
	ticks int
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
	c.ticks++
}

func waiterWithClock(c *fakeClock) *Waiter {
	return &Waiter{Interval: time.Second, Clock: c}
}

func TestParseStateFallsBackToUnknown(t *testing.T) {
	t.Parallel()

	require.Equal(t, StateRunning, ParseState("running"))
	require.Equal(t, StateStopped, ParseState("stopped"))
	require.Equal(t, StateUnknown, ParseState("suspended"))
	require.Equal(t, StateUnknown, ParseState(""))
}

func TestWaitReturnsAfterExactTickCount(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	calls := 0
	status := func(ctx context.Context) (Status, error) {
		// Terminal on the check following the third tick.
		if calls++; calls > 3 {
			return Status{State: StateStopped, ExitStatus: ExitOK}, nil
		}
		return Status{State: StateRunning}, nil
	}

	err := waiterWithClock(clock).Wait(context.Background(), "starting VM", 30*time.Second, status, nil)
	require.NoError(t, err)
	require.Equal(t, 3, clock.ticks)
	require.Equal(t, 4, calls)
}

func TestWaitSucceedsWhenTerminalExactlyAtBudget(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	calls := 0
	status := func(ctx context.Context) (Status, error) {
		if calls++; calls > 5 {
			return Status{State: StateStopped, ExitStatus: ExitOK}, nil
		}
		return Status{State: StateRunning}, nil
	}

	err := waiterWithClock(clock).Wait(context.Background(), "creating VM", 5*time.Second, status, nil)
	require.NoError(t, err)
	require.Equal(t, 5, clock.ticks)
}

func TestWaitTimesOutAtExactlyTheBudget(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	status := func(ctx context.Context) (Status, error) {
		return Status{State: StateRunning}, nil
	}
	lastLog := func(ctx context.Context) string { return "extracting archive..." }

	err := waiterWithClock(clock).Wait(context.Background(), "creating VM", 5*time.Second, status, lastLog)

	var timeoutErr *ensureerrors.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, "creating VM", timeoutErr.Op)
	require.Equal(t, "extracting archive...", timeoutErr.LastLog)
	require.Equal(t, 5, clock.ticks, "no ticks may be spent beyond the budget")
}

func TestWaitKeepsPollingAFailedTaskUntilTimeout(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	status := func(ctx context.Context) (Status, error) {
		// Finished, but not successfully. Only stopped+OK is terminal.
		return Status{State: StateStopped, ExitStatus: "ERROR: no such template"}, nil
	}

	err := waiterWithClock(clock).Wait(context.Background(), "creating VM", 3*time.Second, status, nil)

	var timeoutErr *ensureerrors.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, 3, clock.ticks)
}

func TestWaitPropagatesStatusError(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	boom := errors.New("connection reset")
	status := func(ctx context.Context) (Status, error) {
		return Status{}, boom
	}

	err := waiterWithClock(clock).Wait(context.Background(), "stopping VM", 10*time.Second, status, nil)
	require.ErrorIs(t, err, boom)
	require.Zero(t, clock.ticks, "a transport failure is terminal on the first check")
}

func TestWaitZeroBudgetChecksOnce(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	calls := 0
	status := func(ctx context.Context) (Status, error) {
		calls++
		return Status{State: StateRunning}, nil
	}

	err := waiterWithClock(clock).Wait(context.Background(), "removing VM", 0, status, func(ctx context.Context) string { return "" })

	var timeoutErr *ensureerrors.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, 1, calls)
	require.Zero(t, clock.ticks)
}
