package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"bridge-bot/pkg/types"
)

type scriptedScanner struct {
	mu    sync.Mutex
	calls int
	// script is consulted per call; running off the end returns success.
	script []func() ([]*types.Outcome, error)
}

func (s *scriptedScanner) Scan(_ context.Context) ([]*types.Outcome, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()
	if call < len(s.script) {
		return s.script[call]()
	}
	return nil, nil
}

func (s *scriptedScanner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func runScheduler(t *testing.T, scanner *scriptedScanner, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, New(scanner, 5*time.Millisecond, 5*time.Millisecond, zerolog.Nop()).Run(ctx))
}

func TestRunContinuesAfterFailedCycle(t *testing.T) {
	scanner := &scriptedScanner{script: []func() ([]*types.Outcome, error){
		func() ([]*types.Outcome, error) { return nil, errors.New("rpc flake") },
	}}

	runScheduler(t, scanner, 100*time.Millisecond)
	require.GreaterOrEqual(t, scanner.callCount(), 2, "a failed cycle must not stop the loop")
}

func TestRunRecoversFromPanickedCycle(t *testing.T) {
	scanner := &scriptedScanner{script: []func() ([]*types.Outcome, error){
		func() ([]*types.Outcome, error) { panic("nil map write") },
	}}

	runScheduler(t, scanner, 100*time.Millisecond)
	require.GreaterOrEqual(t, scanner.callCount(), 2, "a panicked cycle must not stop the loop")
}

func TestRunStopsBetweenCycles(t *testing.T) {
	scanner := &scriptedScanner{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- New(scanner, time.Hour, time.Hour, zerolog.Nop()).Run(ctx)
	}()

	// Let the first cycle run, then request shutdown during the sleep.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	require.Equal(t, 1, scanner.callCount())
}

func TestRunCycleContextSurvivesShutdownSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var sawCancel bool
	scanner := &scriptedScanner{script: []func() ([]*types.Outcome, error){
		func() ([]*types.Outcome, error) { return nil, nil },
	}}
	// Wrap with a scanner that cancels the outer context mid-cycle and
	// records whether its own context was cancelled by that.
	probe := &probeScanner{inner: scanner, cancelOuter: cancel, sawCancel: &sawCancel}

	done := make(chan error, 1)
	go func() {
		done <- New(probe, time.Hour, time.Hour, zerolog.Nop()).Run(ctx)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	require.False(t, sawCancel, "in-flight cycle must not observe the shutdown signal")
}

type probeScanner struct {
	inner       scanRunner
	cancelOuter context.CancelFunc
	sawCancel   *bool
}

func (p *probeScanner) Scan(ctx context.Context) ([]*types.Outcome, error) {
	p.cancelOuter()
	if ctx.Err() != nil {
		*p.sawCancel = true
	}
	return p.inner.Scan(ctx)
}
