// Package runner drives a monitoring run: it pulls extracted campaign
// records, applies the rule engine, executes the resulting actions through
// the executor collaborator, and records the outcome in the status store.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/brandbolt/roasrobo/internal/campaign"
	"github.com/brandbolt/roasrobo/internal/pkg/logger"
	"github.com/brandbolt/roasrobo/internal/pkg/runlock"
	"github.com/brandbolt/roasrobo/internal/rules"
	"github.com/brandbolt/roasrobo/internal/status"
	"github.com/google/uuid"
)

// Extractor obtains the current campaign rows from the reporting dashboard.
type Extractor interface {
	ExtractCampaigns(ctx context.Context) ([]campaign.Record, error)
}

// ActionExecutor applies one decided state change against the external
// system. A returned error is localized to that record; the run continues.
type ActionExecutor interface {
	ExecuteAction(ctx context.Context, d rules.Decision) error
}

// Notifier delivers run and scale reports. Delivery is best-effort.
type Notifier interface {
	NotifyRun(ctx context.Context, summary *status.RunSummary) error
	NotifyScale(ctx context.Context, recipient string, candidates []status.ScaleCandidate) error
}

// Runner is the run orchestrator. At most one run executes at a time,
// enforced by the status store's check-and-set gate; the optional Redis run
// lock additionally serializes runs across hosts sharing a status backend.
type Runner struct {
	store    *status.Store
	extract  Extractor
	execute  ActionExecutor
	notifier Notifier
	lock     *runlock.RunLock

	now func() time.Time
}

// New creates a Runner. notifier may be nil (reports are skipped); lock may
// be nil (single-host deployment).
func New(store *status.Store, extract Extractor, execute ActionExecutor, notifier Notifier) *Runner {
	return &Runner{
		store:    store,
		extract:  extract,
		execute:  execute,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetRunLock installs the optional cross-host run lock.
func (r *Runner) SetRunLock(l *runlock.RunLock) { r.lock = l }

// RunNow executes one monitoring run and returns its summary.
//
// Gating: returns status.ErrAlreadyRunning or status.ErrAutomationDisabled
// without starting anything. There is no queueing; a rejected trigger is a
// no-op for the caller to surface.
//
// Every other failure mode is absorbed into the summary's error list — a
// failed extraction or a failed per-record action is fatal to nothing but
// its own scope. The isRunning flag is cleared on every exit path,
// including panics, before the summary is persisted as lastResult. The
// results are named so the recovery path still hands the caller the same
// summary that was persisted.
func (r *Runner) RunNow(ctx context.Context) (summary *status.RunSummary, err error) {
	if r.lock != nil {
		ok, err := r.lock.Acquire(ctx)
		if err != nil {
			// Lock backend trouble must not block the run; the store
			// gate below is the authoritative check.
			logger.Warn("run lock unavailable, relying on status gate", "error", err.Error())
		} else if !ok {
			return nil, status.ErrAlreadyRunning
		}
	}

	started, err := r.store.BeginRun()
	if err != nil {
		r.releaseLock()
		return nil, err
	}

	summary = &status.RunSummary{
		ID:                 uuid.NewString(),
		StartTime:          started,
		ChangedCampaigns:   []status.ChangedCampaign{},
		PreservedCampaigns: []status.PreservedCampaign{},
		Errors:             []string{},
		Success:            true,
	}

	defer func() {
		if p := recover(); p != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("unhandled failure during run: %v", p))
			summary.Success = false
			logger.Error("monitoring run panicked", "run_id", summary.ID, "panic", fmt.Sprintf("%v", p))
		}
		summary.EndTime = r.now()
		r.store.FinishRun(summary)
		r.releaseLock()
		r.deliverReport(summary)
	}()

	r.processRun(ctx, summary)
	return summary, nil
}

func (r *Runner) processRun(ctx context.Context, summary *status.RunSummary) {
	controls := r.store.Get().Controls

	records, err := r.extract.ExtractCampaigns(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("extraction failed: %v", err))
		logger.Error("campaign extraction failed", "run_id", summary.ID, "error", err.Error())
		return
	}

	logger.Info("processing extracted campaigns", "run_id", summary.ID, "rows", fmt.Sprintf("%d", len(records)))

	for _, rec := range records {
		// Cancellation is honored only between records so an external
		// action is never left half-applied.
		if ctx.Err() != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("run cancelled after %d of %d campaigns", summary.TotalCampaigns, len(records)))
			return
		}

		// Counters reflect observed state regardless of what the rules
		// decide or whether an action later fails.
		summary.TotalCampaigns++
		if rec.IsActive() {
			summary.ActiveCampaigns++
		} else {
			summary.InactiveCampaigns++
		}
		if rec.ROAS < rules.ROASFloor {
			summary.LowRoasCampaigns++
		}
		if rec.IsActive() && rec.ROAS == 0 && rec.Cost >= rules.HighSpendFloor {
			summary.ZeroRoasHighSpendCampaigns++
		}

		d := rules.Decide(rec, controls)
		if d.Action == rules.ActionNone {
			summary.PreservedCampaigns = append(summary.PreservedCampaigns, status.PreservedCampaign{
				Account:  rec.Account,
				Campaign: rec.Campaign,
				Status:   string(rec.Status),
				ROAS:     rec.ROAS,
				Cost:     rec.Cost,
			})
			continue
		}

		if err := r.execute.ExecuteAction(ctx, d); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("could not %s campaign %q: %v", actionVerb(d.Action), rec.Campaign, err))
			continue
		}

		summary.ChangedCampaigns = append(summary.ChangedCampaigns, status.ChangedCampaign{
			Account:   rec.Account,
			Campaign:  rec.Campaign,
			OldStatus: string(rec.Status),
			NewStatus: string(newStatus(d.Action)),
			ROAS:      rec.ROAS,
			Cost:      rec.Cost,
			Action:    string(d.Action),
			Reason:    d.Reason,
		})
	}
}

// deliverReport hands the summary to the notifier. A delivery failure is
// logged and nothing else: lastResult is already persisted, the run outcome
// does not change, and there is no retry.
func (r *Runner) deliverReport(summary *status.RunSummary) {
	if r.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.notifier.NotifyRun(ctx, summary); err != nil {
		logger.Error("run report delivery failed", "run_id", summary.ID, "error", err.Error())
	}
}

func (r *Runner) releaseLock() {
	if r.lock == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.lock.Release(ctx); err != nil {
		logger.Warn("run lock release failed", "error", err.Error())
	}
}

func actionVerb(a rules.Action) string {
	if a == rules.ActionActivate {
		return "activate"
	}
	return "pause"
}

func newStatus(a rules.Action) campaign.Status {
	if a == rules.ActionActivate {
		return campaign.StatusActive
	}
	return campaign.StatusPaused
}
