package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type purgerFunc func(ctx context.Context, now time.Time) (int, error)

func (f purgerFunc) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return f(ctx, now)
}

func TestSweepInvokesPurger(t *testing.T) {
	var gotNow time.Time
	calls := 0
	s := NewSweeper(purgerFunc(func(ctx context.Context, now time.Time) (int, error) {
		calls++
		gotNow = now
		return 2, nil
	}), time.Hour)

	s.Sweep(context.Background())

	assert.Equal(t, 1, calls)
	assert.WithinDuration(t, time.Now(), gotNow, time.Minute)
}

func TestSweepSwallowsErrors(t *testing.T) {
	s := NewSweeper(purgerFunc(func(ctx context.Context, now time.Time) (int, error) {
		return 0, errors.New("db unreachable")
	}), time.Hour)

	// A failing purge must never panic or propagate; the next tick retries.
	assert.NotPanics(t, func() { s.Sweep(context.Background()) })
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSweeper(purgerFunc(func(ctx context.Context, now time.Time) (int, error) {
		return 0, nil
	}), time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
