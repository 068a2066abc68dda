// Package scheduler fires the monitoring run on a fixed hourly cadence.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/brandbolt/roasrobo/internal/status"
)

// RunFunc is the orchestrator's run-now entry point.
type RunFunc func(ctx context.Context) (*status.RunSummary, error)

// Scheduler triggers a run at a fixed minute past every hour. The pre-check
// here (automation on, at least one rule on) only avoids waking the executor
// needlessly; the status store's gate inside the run is the authoritative
// check, so being wrong about a racing toggle is harmless.
type Scheduler struct {
	store        *status.Store
	run          RunFunc
	minuteOffset int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler firing at minuteOffset past each hour.
func New(store *status.Store, run RunFunc, minuteOffset int) *Scheduler {
	if minuteOffset < 0 || minuteOffset > 59 {
		minuteOffset = 5
	}
	return &Scheduler{
		store:        store,
		run:          run,
		minuteOffset: minuteOffset,
	}
}

// Start launches the trigger loop.
func (s *Scheduler) Start() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		log.Printf("[Scheduler] Started, firing at %d minutes past each hour", s.minuteOffset)
		for {
			wait := time.Until(nextFire(time.Now(), s.minuteOffset))
			timer := time.NewTimer(wait)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				log.Printf("[Scheduler] Stopped")
				return
			case <-timer.C:
				s.fire()
			}
		}
	}()
}

// Stop halts the trigger loop. A run already in flight is not interrupted.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Scheduler) fire() {
	if !s.shouldRun() {
		log.Printf("[Scheduler] Automation disabled or no rules enabled, skipping scheduled run")
		return
	}

	log.Printf("[Scheduler] Triggering scheduled monitoring run")
	_, err := s.run(s.ctx)
	switch {
	case err == nil:
	case errors.Is(err, status.ErrAlreadyRunning):
		log.Printf("[Scheduler] Run already in progress, skipping this trigger")
	case errors.Is(err, status.ErrAutomationDisabled):
		log.Printf("[Scheduler] Automation disabled, skipping this trigger")
	default:
		log.Printf("[Scheduler] Scheduled run failed: %v", err)
	}
}

// shouldRun gates the scheduled trigger on the master switch and on at least
// one rule being enabled.
func (s *Scheduler) shouldRun() bool {
	st := s.store.Get()
	return st.AutomationEnabled && st.Controls.AnyEnabled()
}

// nextFire returns the next wall-clock instant at minuteOffset past an hour
// strictly after now.
func nextFire(now time.Time, minuteOffset int) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), minuteOffset, 0, 0, now.Location())
	if !fire.After(now) {
		fire = fire.Add(time.Hour)
	}
	return fire
}
