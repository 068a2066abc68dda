// Package status owns the durable automation state: the master switch, the
// per-rule toggles, the single-flight run flag, and the most recent run
// outcome. Every mutation goes through the Store and is flushed to the
// persistence backend before the mutating call returns.
package status

import (
	"time"

	"github.com/brandbolt/roasrobo/internal/rules"
)

// ChangedCampaign records one campaign whose state the run changed.
type ChangedCampaign struct {
	Account   string       `json:"account"`
	Campaign  string       `json:"campaign"`
	OldStatus string       `json:"oldStatus"`
	NewStatus string       `json:"newStatus"`
	ROAS      float64      `json:"roas"`
	Cost      float64      `json:"cost"`
	Action    string       `json:"action"`
	Reason    rules.Reason `json:"reasonCode"`
}

// PreservedCampaign records one campaign the run left alone.
type PreservedCampaign struct {
	Account  string  `json:"account"`
	Campaign string  `json:"campaign"`
	Status   string  `json:"status"`
	ROAS     float64 `json:"roas"`
	Cost     float64 `json:"cost"`
}

// RunSummary aggregates one orchestration run. It is mutated only by the
// orchestrator while the run is in flight and immutable afterwards. Only the
// most recent summary is kept; there is no historical run log.
type RunSummary struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`

	TotalCampaigns             int `json:"totalCampaigns"`
	ActiveCampaigns            int `json:"activeCampaigns"`
	InactiveCampaigns          int `json:"inactiveCampaigns"`
	LowRoasCampaigns           int `json:"lowRoasCampaigns"`
	ZeroRoasHighSpendCampaigns int `json:"zeroRoasHighSpendCampaigns"`

	ChangedCampaigns   []ChangedCampaign   `json:"changedCampaigns"`
	PreservedCampaigns []PreservedCampaign `json:"preservedCampaigns"`
	Errors             []string            `json:"errors"`

	// Success means the run completed its loop rather than crashing out;
	// a run with per-record or extraction errors still counts.
	Success bool `json:"success"`
}

// Duration is the wall-clock length of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// ScaleCandidate is one active, high-ROAS campaign flagged for potential
// budget increase by the read-only scale finder.
type ScaleCandidate struct {
	Account  string  `json:"account"`
	Campaign string  `json:"campaign"`
	ROAS     float64 `json:"roas"`
	Cost     float64 `json:"cost"`
	Revenue  float64 `json:"revenue"`
}

// ScaleEmail records the most recent scale-candidate report delivery.
type ScaleEmail struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
}

// AutomationStatus is the singleton persisted state. Writes are whole-record
// replacements; a crash never leaves a half-updated document.
type AutomationStatus struct {
	IsRunning         bool             `json:"isRunning"`
	AutomationEnabled bool             `json:"automationEnabled"`
	Controls          rules.Controls   `json:"controls"`
	LastRun           *time.Time       `json:"lastRun,omitempty"`
	LastResult        *RunSummary      `json:"lastResult,omitempty"`
	Campaigns         []ScaleCandidate `json:"campaigns"`
	LastScaleEmail    *ScaleEmail      `json:"lastScaleEmail,omitempty"`
}

// Clone returns a deep copy safe to hand to callers while the run mutates
// the original.
func (a *AutomationStatus) Clone() AutomationStatus {
	cp := *a
	if a.LastRun != nil {
		t := *a.LastRun
		cp.LastRun = &t
	}
	if a.LastResult != nil {
		r := *a.LastResult
		r.ChangedCampaigns = copySlice(a.LastResult.ChangedCampaigns)
		r.PreservedCampaigns = copySlice(a.LastResult.PreservedCampaigns)
		r.Errors = copySlice(a.LastResult.Errors)
		cp.LastResult = &r
	}
	if a.LastScaleEmail != nil {
		e := *a.LastScaleEmail
		cp.LastScaleEmail = &e
	}
	cp.Campaigns = copySlice(a.Campaigns)
	return cp
}

// copySlice copies without collapsing empty to nil; the API serializes these
// as [] and the dashboard depends on that.
func copySlice[T any](src []T) []T {
	if src == nil {
		return nil
	}
	dst := make([]T, len(src))
	copy(dst, src)
	return dst
}

// defaults returns the initial state for a fresh deployment: automation on,
// every rule off.
func defaults() AutomationStatus {
	return AutomationStatus{
		AutomationEnabled: true,
		Campaigns:         []ScaleCandidate{},
	}
}
