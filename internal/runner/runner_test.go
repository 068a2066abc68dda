package runner

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/brandbolt/roasrobo/internal/campaign"
	"github.com/brandbolt/roasrobo/internal/rules"
	"github.com/brandbolt/roasrobo/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExtractor returns canned records or an error.
type stubExtractor struct {
	records []campaign.Record
	err     error
	calls   int
}

func (s *stubExtractor) ExtractCampaigns(ctx context.Context) ([]campaign.Record, error) {
	s.calls++
	return s.records, s.err
}

// stubExecutor records decisions and can fail for chosen campaigns.
type stubExecutor struct {
	mu       sync.Mutex
	executed []rules.Decision
	failFor  map[string]error
	panicFor string
}

func (s *stubExecutor) ExecuteAction(ctx context.Context, d rules.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Record.Campaign == s.panicFor {
		panic("executor blew up")
	}
	if err, ok := s.failFor[d.Record.Campaign]; ok {
		return err
	}
	s.executed = append(s.executed, d)
	return nil
}

// stubNotifier records deliveries and can fail.
type stubNotifier struct {
	runs       []*status.RunSummary
	scales     [][]status.ScaleCandidate
	recipients []string
	err        error
}

func (s *stubNotifier) NotifyRun(ctx context.Context, sum *status.RunSummary) error {
	s.runs = append(s.runs, sum)
	return s.err
}

func (s *stubNotifier) NotifyScale(ctx context.Context, recipient string, c []status.ScaleCandidate) error {
	s.recipients = append(s.recipients, recipient)
	s.scales = append(s.scales, c)
	return s.err
}

func newTestStore(t *testing.T) *status.Store {
	p, err := status.NewFilePersister(filepath.Join(t.TempDir(), "script-status.json"))
	require.NoError(t, err)
	s, err := status.NewStore(p)
	require.NoError(t, err)
	return s
}

func enableRules(t *testing.T, st *status.Store, names ...string) {
	t.Helper()
	for _, n := range names {
		_, err := st.ToggleRule(n)
		require.NoError(t, err)
	}
}

func activeRec(name string, cost, revenue, roas float64) campaign.Record {
	return campaign.Record{Account: "Acme", Campaign: name, Status: campaign.StatusActive, Cost: cost, Revenue: revenue, ROAS: roas}
}

func pausedRec(name string, cost, revenue, roas float64) campaign.Record {
	return campaign.Record{Account: "Acme", Campaign: name, Status: campaign.StatusPaused, Cost: cost, Revenue: revenue, ROAS: roas}
}

func TestRunNow_ZeroRoasKillerScenario(t *testing.T) {
	st := newTestStore(t)
	enableRules(t, st, "zeroRoasKiller")

	ext := &stubExtractor{records: []campaign.Record{activeRec("burner", 200, 0, 0)}}
	exec := &stubExecutor{}
	r := New(st, ext, exec, nil)

	sum, err := r.RunNow(context.Background())
	require.NoError(t, err)

	require.Len(t, sum.ChangedCampaigns, 1)
	ch := sum.ChangedCampaigns[0]
	assert.Equal(t, "burner", ch.Campaign)
	assert.Equal(t, "ACTIVE", ch.OldStatus)
	assert.Equal(t, "PAUSED", ch.NewStatus)
	assert.Equal(t, rules.ReasonZeroROASHighSpend, ch.Reason)
	assert.Equal(t, 1, sum.ZeroRoasHighSpendCampaigns)
	assert.Equal(t, 1, sum.TotalCampaigns)
	assert.Empty(t, sum.Errors)
	assert.True(t, sum.Success)

	// Summary landed in the store as lastResult.
	snap := st.Get()
	require.NotNil(t, snap.LastResult)
	assert.Equal(t, sum.ID, snap.LastResult.ID)
	assert.False(t, snap.IsRunning)
}

func TestRunNow_LowSpendChopScenario(t *testing.T) {
	st := newTestStore(t)
	enableRules(t, st, "belowRoasChop")

	ext := &stubExtractor{records: []campaign.Record{activeRec("trickle", 50, 40, 0.8)}}
	r := New(st, ext, &stubExecutor{}, nil)

	sum, err := r.RunNow(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.ChangedCampaigns, 1)
	assert.Equal(t, rules.ReasonLowROASLowSpend, sum.ChangedCampaigns[0].Reason)
	assert.Equal(t, 1, sum.LowRoasCampaigns)
	assert.Equal(t, 0, sum.ZeroRoasHighSpendCampaigns)
}

func TestRunNow_ReactivateScenario(t *testing.T) {
	st := newTestStore(t)
	enableRules(t, st, "autoReactivate")

	ext := &stubExtractor{records: []campaign.Record{pausedRec("winner", 300, 600, 2.0)}}
	exec := &stubExecutor{}
	r := New(st, ext, exec, nil)

	sum, err := r.RunNow(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.ChangedCampaigns, 1)
	ch := sum.ChangedCampaigns[0]
	assert.Equal(t, "PAUSED", ch.OldStatus)
	assert.Equal(t, "ACTIVE", ch.NewStatus)
	assert.Equal(t, rules.ReasonGoodROASReactivate, ch.Reason)
	require.Len(t, exec.executed, 1)
	assert.Equal(t, rules.ActionActivate, exec.executed[0].Action)
}

func TestRunNow_ExtractionFailureCompletesRun(t *testing.T) {
	st := newTestStore(t)
	enableRules(t, st, "belowRoasChop")

	ext := &stubExtractor{err: errors.New("no campaign data rows found")}
	r := New(st, ext, &stubExecutor{}, nil)

	sum, err := r.RunNow(context.Background())
	require.NoError(t, err, "extraction failure is not fatal to the run")

	assert.Equal(t, 0, sum.TotalCampaigns)
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "no campaign data rows found")
	assert.True(t, sum.Success, "failed extraction still counts as a completed run")

	snap := st.Get()
	assert.False(t, snap.IsRunning)
	require.NotNil(t, snap.LastResult)
	assert.Len(t, snap.LastResult.Errors, 1)
}

func TestRunNow_PartialExecutorFailureContinues(t *testing.T) {
	st := newTestStore(t)
	enableRules(t, st, "belowRoasChop")

	ext := &stubExtractor{records: []campaign.Record{
		activeRec("first", 200, 50, 0.25),
		activeRec("broken", 200, 50, 0.25),
		activeRec("third", 200, 50, 0.25),
	}}
	exec := &stubExecutor{failFor: map[string]error{"broken": errors.New("pause link not found")}}
	r := New(st, ext, exec, nil)

	sum, err := r.RunNow(context.Background())
	require.NoError(t, err)

	assert.Len(t, sum.ChangedCampaigns, 2)
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], `could not pause campaign "broken"`)
	assert.Equal(t, 3, sum.TotalCampaigns, "counters reflect observed state, not action success")
	assert.Equal(t, 3, sum.LowRoasCampaigns)
}

func TestRunNow_GatingRejections(t *testing.T) {
	st := newTestStore(t)
	ext := &stubExtractor{}
	r := New(st, ext, &stubExecutor{}, nil)

	// Simulate an in-flight run.
	_, err := st.BeginRun()
	require.NoError(t, err)

	_, err = r.RunNow(context.Background())
	assert.ErrorIs(t, err, status.ErrAlreadyRunning)
	assert.Zero(t, ext.calls, "rejected trigger never extracts")

	st.FinishRun(nil)
	st.ToggleAutomation() // off
	_, err = r.RunNow(context.Background())
	assert.ErrorIs(t, err, status.ErrAutomationDisabled)
	assert.Zero(t, ext.calls)
}

func TestRunNow_RejectionDoesNotMutateResults(t *testing.T) {
	st := newTestStore(t)
	enableRules(t, st, "belowRoasChop")
	r := New(st, &stubExtractor{}, &stubExecutor{}, nil)

	first, err := r.RunNow(context.Background())
	require.NoError(t, err)

	_, err = st.BeginRun()
	require.NoError(t, err)
	_, err = r.RunNow(context.Background())
	require.ErrorIs(t, err, status.ErrAlreadyRunning)
	st.FinishRun(nil)

	snap := st.Get()
	require.NotNil(t, snap.LastResult)
	assert.Equal(t, first.ID, snap.LastResult.ID, "rejected trigger leaves lastResult alone")
}

func TestRunNow_PanicClearsRunningFlag(t *testing.T) {
	st := newTestStore(t)
	enableRules(t, st, "belowRoasChop")

	ext := &stubExtractor{records: []campaign.Record{activeRec("kaboom", 200, 0, 0.1)}}
	exec := &stubExecutor{panicFor: "kaboom"}
	r := New(st, ext, exec, nil)

	sum, err := r.RunNow(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sum, "the caller still gets the summary that was persisted")
	assert.False(t, sum.Success)
	require.NotEmpty(t, sum.Errors)
	assert.Contains(t, sum.Errors[len(sum.Errors)-1], "unhandled failure")
	require.NotNil(t, st.Get().LastResult)
	assert.Equal(t, sum.ID, st.Get().LastResult.ID)

	// The one invariant that must never break.
	assert.False(t, st.Get().IsRunning)

	// And a fresh run can start afterwards.
	ext2 := &stubExtractor{}
	r2 := New(st, ext2, &stubExecutor{}, nil)
	_, err = r2.RunNow(context.Background())
	require.NoError(t, err)
}

func TestRunNow_CancellationStopsAtRecordBoundary(t *testing.T) {
	st := newTestStore(t)
	enableRules(t, st, "belowRoasChop")

	ctx, cancel := context.WithCancel(context.Background())
	records := []campaign.Record{
		activeRec("one", 200, 50, 0.25),
		activeRec("two", 200, 50, 0.25),
	}
	ext := &stubExtractor{records: records}
	cancel() // cancelled before the loop starts
	r := New(st, ext, &stubExecutor{}, nil)

	sum, err := r.RunNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, sum.TotalCampaigns)
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "cancelled")
	assert.False(t, st.Get().IsRunning)
}

func TestRunNow_NotifierReceivesSummaryAfterPersist(t *testing.T) {
	st := newTestStore(t)
	enableRules(t, st, "belowRoasChop")

	n := &stubNotifier{}
	r := New(st, &stubExtractor{}, &stubExecutor{}, n)

	sum, err := r.RunNow(context.Background())
	require.NoError(t, err)
	require.Len(t, n.runs, 1)
	assert.Equal(t, sum.ID, n.runs[0].ID)
	assert.False(t, n.runs[0].EndTime.IsZero())
}

func TestRunNow_NotifierFailureDoesNotAlterResult(t *testing.T) {
	st := newTestStore(t)
	enableRules(t, st, "belowRoasChop")

	n := &stubNotifier{err: errors.New("smtp down")}
	r := New(st, &stubExtractor{}, &stubExecutor{}, n)

	sum, err := r.RunNow(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.Success)
	assert.Empty(t, sum.Errors)

	snap := st.Get()
	require.NotNil(t, snap.LastResult)
	assert.Empty(t, snap.LastResult.Errors)
}

func TestRunNow_PreservedCampaignsRecorded(t *testing.T) {
	st := newTestStore(t)
	enableRules(t, st, "belowRoasChop")

	ext := &stubExtractor{records: []campaign.Record{
		activeRec("healthy", 500, 900, 1.8),
		pausedRec("retired", 10, 0, 0),
	}}
	r := New(st, ext, &stubExecutor{}, nil)

	sum, err := r.RunNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.ChangedCampaigns)
	require.Len(t, sum.PreservedCampaigns, 2)
	assert.Equal(t, "ACTIVE", sum.PreservedCampaigns[0].Status)
	assert.Equal(t, "PAUSED", sum.PreservedCampaigns[1].Status)
	assert.Equal(t, 1, sum.ActiveCampaigns)
	assert.Equal(t, 1, sum.InactiveCampaigns)
}
