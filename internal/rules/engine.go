// Package rules implements the threshold-based decision engine that maps an
// observed campaign record to a pause/reactivate/no-op decision.
package rules

import "github.com/brandbolt/roasrobo/internal/campaign"

// Business thresholds. ScaleROASThreshold belongs to the read-only scale
// finder and is deliberately a separate constant from ROASFloor even though
// both guard "good enough ROAS" — they are independent policies.
const (
	ROASFloor          = 1.3
	HighSpendFloor     = 160.0
	ScaleROASThreshold = 1.8
)

// Action is the intended state change for a campaign.
type Action string

const (
	ActionNone     Action = "NONE"
	ActionPause    Action = "PAUSE"
	ActionActivate Action = "ACTIVATE"
)

// Reason explains why a decision was made.
type Reason string

const (
	ReasonGoodROASReactivate Reason = "GOOD_ROAS_REACTIVATE"
	ReasonPreservedPaused    Reason = "PRESERVED_PAUSED"
	ReasonZeroROASHighSpend  Reason = "ZERO_ROAS_HIGH_SPEND"
	ReasonLowROASHighSpend   Reason = "LOW_ROAS_HIGH_SPEND"
	ReasonLowROASLowSpend    Reason = "LOW_ROAS_LOW_SPEND"
	ReasonPreservedActive    Reason = "PRESERVED_ACTIVE"
)

// Controls holds the per-rule toggles. All default to disabled; a disabled
// rule never fires.
type Controls struct {
	BelowRoasChop  bool `json:"belowRoasChop"`
	ZeroRoasKiller bool `json:"zeroRoasKiller"`
	AutoReactivate bool `json:"autoReactivate"`
}

// AnyEnabled reports whether at least one rule is switched on.
func (c Controls) AnyEnabled() bool {
	return c.BelowRoasChop || c.ZeroRoasKiller || c.AutoReactivate
}

// Decision is the engine output for one record.
type Decision struct {
	Action Action
	Reason Reason
	Record campaign.Record
}

// Decide applies the rule set to one record. Pure and deterministic: same
// record and controls always produce the same decision.
//
// Precedence, first match wins:
//
//	PAUSED  → reactivate if autoReactivate && roas >= ROASFloor, else preserve.
//	          Paused campaigns are never chopped or killed again.
//	ACTIVE  → zero-ROAS killer (cost >= HighSpendFloor && roas == 0)
//	        → below-ROAS chop, high spend (roas < ROASFloor && cost >= HighSpendFloor)
//	        → below-ROAS chop, low spend  (roas < ROASFloor && cost < HighSpendFloor)
//	        → preserve.
//
// A zero-cost zero-roas active campaign lands in the low-spend chop branch
// when belowRoasChop is on; that mirrors the observed threshold behavior.
func Decide(rec campaign.Record, c Controls) Decision {
	if rec.IsPaused() {
		if c.AutoReactivate && rec.ROAS >= ROASFloor {
			return Decision{Action: ActionActivate, Reason: ReasonGoodROASReactivate, Record: rec}
		}
		return Decision{Action: ActionNone, Reason: ReasonPreservedPaused, Record: rec}
	}

	switch {
	case c.ZeroRoasKiller && rec.Cost >= HighSpendFloor && rec.ROAS == 0:
		return Decision{Action: ActionPause, Reason: ReasonZeroROASHighSpend, Record: rec}
	case c.BelowRoasChop && rec.ROAS < ROASFloor && rec.Cost >= HighSpendFloor:
		return Decision{Action: ActionPause, Reason: ReasonLowROASHighSpend, Record: rec}
	case c.BelowRoasChop && rec.ROAS < ROASFloor:
		return Decision{Action: ActionPause, Reason: ReasonLowROASLowSpend, Record: rec}
	default:
		return Decision{Action: ActionNone, Reason: ReasonPreservedActive, Record: rec}
	}
}

// Describe renders a decision reason as the human-readable action label used
// in run reports.
func (r Reason) Describe() string {
	switch r {
	case ReasonGoodROASReactivate:
		return "Activated - Good ROAS"
	case ReasonZeroROASHighSpend:
		return "URGENT PAUSE - High Spend Zero Sales"
	case ReasonLowROASHighSpend:
		return "Paused - Low ROAS High Spend"
	case ReasonLowROASLowSpend:
		return "Paused - Low ROAS"
	default:
		return string(r)
	}
}

// Urgent reports whether the reason warrants urgent highlighting in reports.
func (r Reason) Urgent() bool { return r == ReasonZeroROASHighSpend }
