package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brandbolt/roasrobo/internal/pkg/logger"
)

var (
	// ErrAlreadyRunning rejects a run trigger while another run is in flight.
	ErrAlreadyRunning = errors.New("a monitoring run is already in progress")

	// ErrAutomationDisabled rejects a run trigger while the master switch is off.
	ErrAutomationDisabled = errors.New("automation is disabled")

	// ErrInvalidRule rejects a toggle for a rule name that does not exist.
	ErrInvalidRule = errors.New("invalid rule name")
)

// Persister loads and saves the whole status document. Save must replace the
// full record; partial writes would break the crash-consistency guarantee.
type Persister interface {
	// Load returns the persisted status, or found=false on first boot.
	Load() (st *AutomationStatus, found bool, err error)
	Save(st *AutomationStatus) error
}

// Store is the single owner of AutomationStatus. All reads get snapshot
// copies; all mutations happen under one mutex and are persisted before the
// mutating call returns, so state surviving a crash is never older than the
// last completed toggle or run-boundary write.
type Store struct {
	mu    sync.Mutex
	state AutomationStatus
	p     Persister
	now   func() time.Time
}

// NewStore loads persisted state (initializing defaults on first boot) and
// returns the process-wide store. Persisted payloads written before the
// automationEnabled master switch existed are backfilled with the default
// and re-persisted.
func NewStore(p Persister) (*Store, error) {
	s := &Store{p: p, now: time.Now}

	st, found, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("loading automation status: %w", err)
	}
	if !found {
		s.state = defaults()
		if err := p.Save(&s.state); err != nil {
			return nil, fmt.Errorf("initializing automation status: %w", err)
		}
		return s, nil
	}

	s.state = *st
	if s.state.Campaigns == nil {
		s.state.Campaigns = []ScaleCandidate{}
	}
	// A process killed mid-run leaves isRunning=true on disk. Nothing can
	// still be running after a restart, so clear it rather than deadlock.
	migrated := s.state.IsRunning
	s.state.IsRunning = false
	if needsEnabledBackfill(p) {
		s.state.AutomationEnabled = true
		migrated = true
	}
	if migrated {
		if err := p.Save(&s.state); err != nil {
			return nil, fmt.Errorf("migrating automation status: %w", err)
		}
	}
	return s, nil
}

// needsEnabledBackfill reports whether the persisted payload predates the
// automationEnabled field. Absence is distinguishable from an explicit false
// only by inspecting the raw document, so persisters that can expose it do.
func needsEnabledBackfill(p Persister) bool {
	r, ok := p.(interface{ RawFields() (map[string]json.RawMessage, error) })
	if !ok {
		return false
	}
	fields, err := r.RawFields()
	if err != nil {
		return false
	}
	_, present := fields["automationEnabled"]
	return !present
}

// Get returns a snapshot copy of the current status.
func (s *Store) Get() AutomationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Mutate applies fn to the state under the store lock and persists the
// result. fn must not retain the pointer past its return.
func (s *Store) Mutate(fn func(*AutomationStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.persistLocked()
}

// ToggleRule flips the named rule and returns its new value. Unknown names
// return ErrInvalidRule and leave the state untouched.
func (s *Store) ToggleRule(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *bool
	switch name {
	case "belowRoasChop":
		target = &s.state.Controls.BelowRoasChop
	case "zeroRoasKiller":
		target = &s.state.Controls.ZeroRoasKiller
	case "autoReactivate":
		target = &s.state.Controls.AutoReactivate
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidRule, name)
	}

	*target = !*target
	s.persistLocked()
	return *target, nil
}

// ToggleAutomation flips the master switch and returns its new value.
func (s *Store) ToggleAutomation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AutomationEnabled = !s.state.AutomationEnabled
	s.persistLocked()
	return s.state.AutomationEnabled
}

// BeginRun is the atomic check-and-set gate for run execution. Exactly one
// caller can win between any two FinishRun calls; losers get
// ErrAlreadyRunning or ErrAutomationDisabled without any state change.
func (s *Store) BeginRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsRunning {
		return time.Time{}, ErrAlreadyRunning
	}
	if !s.state.AutomationEnabled {
		return time.Time{}, ErrAutomationDisabled
	}

	started := s.now()
	s.state.IsRunning = true
	s.state.LastRun = &started
	s.persistLocked()
	return started, nil
}

// FinishRun clears the run flag and records the summary. It must be called
// on every exit path of a run that won BeginRun.
func (s *Store) FinishRun(summary *RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsRunning = false
	if summary != nil {
		s.state.LastResult = summary
	}
	s.persistLocked()
}

// SetScaleResults caches the scale-candidate list and stamps the report
// delivery.
func (s *Store) SetScaleResults(candidates []ScaleCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if candidates == nil {
		candidates = []ScaleCandidate{}
	}
	s.state.Campaigns = candidates
	s.state.LastScaleEmail = &ScaleEmail{Timestamp: s.now(), Count: len(candidates)}
	s.persistLocked()
}

// persistLocked flushes the state. A failed save corrupts the durability
// guarantee, so it is retried once and then escalated; the in-memory state
// stays applied either way.
func (s *Store) persistLocked() {
	if err := s.p.Save(&s.state); err != nil {
		logger.Warn("status save failed, retrying", "error", err.Error())
		if err := s.p.Save(&s.state); err != nil {
			logger.Error("status save failed after retry; durable state is stale",
				"error", err.Error())
		}
	}
}
