// Package campaign defines the normalized campaign record extracted from the
// reporting dashboard and the row normalizer that produces it.
package campaign

// Status is the observed campaign state at extraction time.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusPaused Status = "PAUSED"
)

// Record is one campaign's observed state in a single extraction.
// Account+Campaign identify the row within a run but are not unique
// across runs.
type Record struct {
	Account  string  `json:"account"`
	Campaign string  `json:"campaign"`
	Status   Status  `json:"status"`
	Cost     float64 `json:"cost"`
	Revenue  float64 `json:"revenue"`
	ROAS     float64 `json:"roas"`

	// Action links carried through from the report row. The executor
	// follows one of these to apply a state change; the decision engine
	// never reads them.
	PauseURL  string `json:"pause_url,omitempty"`
	ActiveURL string `json:"active_url,omitempty"`
}

// IsActive reports whether the record was observed in the ACTIVE state.
func (r Record) IsActive() bool { return r.Status == StatusActive }

// IsPaused reports whether the record was observed in the PAUSED state.
func (r Record) IsPaused() bool { return r.Status == StatusPaused }
