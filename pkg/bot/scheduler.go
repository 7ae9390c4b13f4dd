// Package bot runs the scan-select-execute cycle on a fixed interval with
// error isolation between cycles.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bridge-bot/pkg/types"
)

// scanRunner is one full scan pass over all network pairs.
type scanRunner interface {
	Scan(ctx context.Context) ([]*types.Outcome, error)
}

// Scheduler owns the repeating cycle. There is no cycle re-entrancy: a new
// cycle never starts while the previous one is outstanding.
type Scheduler struct {
	scanner  scanRunner
	interval time.Duration
	recovery time.Duration
	log      zerolog.Logger
}

// New creates a scheduler. recovery is the shorter sleep used after a
// failed cycle.
func New(scanner scanRunner, interval, recovery time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		interval: interval,
		recovery: recovery,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Run loops until ctx is cancelled. Cancellation is honored between cycles
// and during sleeps only; an in-flight cycle always finishes so a signed
// transaction is never abandoned mid-submission.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().
		Dur("interval", s.interval).
		Dur("recovery", s.recovery).
		Msg("scheduler started")

	for cycle := 1; ; cycle++ {
		if ctx.Err() != nil {
			s.log.Info().Msg("scheduler stopped")
			return nil
		}

		delay := s.interval
		if err := s.runCycle(ctx, cycle); err != nil {
			s.log.Error().Err(err).Int("cycle", cycle).Msg("cycle failed, recovering")
			delay = s.recovery
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return nil
		case <-time.After(delay):
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context, cycle int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()

	// The cycle runs on a context detached from the shutdown signal so a
	// termination request can never cancel a submission in flight; the
	// signal is observed again at the top of the loop.
	cycleCtx := context.WithoutCancel(ctx)

	start := time.Now()
	s.log.Info().Int("cycle", cycle).Msg("scan cycle started")

	outcomes, err := s.scanner.Scan(cycleCtx)
	if err != nil {
		return err
	}

	executed, settled, failed := 0, 0, 0
	for _, o := range outcomes {
		executed++
		switch o.FinalStatus {
		case types.StatusConfirmed:
			settled++
		case types.StatusFailed:
			failed++
		}
		s.log.Info().
			Str("route", o.Route.ID).
			Str("tx", o.TxHash.Hex()).
			Str("status", string(o.FinalStatus)).
			Uint64("block", o.ConfirmedBlock).
			Str("error", o.ErrorDetail).
			Msg("execution outcome")
	}

	s.log.Info().
		Int("cycle", cycle).
		Int("executed", executed).
		Int("settled", settled).
		Int("failed", failed).
		Dur("took", time.Since(start)).
		Msg("scan cycle finished")
	return nil
}
