package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/brandbolt/roasrobo/internal/campaign"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCampaignsToScale_FilterAndSort(t *testing.T) {
	st := newTestStore(t)
	ext := &stubExtractor{records: []campaign.Record{
		activeRec("good", 10, 20, 2.0),
		activeRec("middling", 10, 15, 1.5),
		pausedRec("paused-star", 10, 30, 3.0),
		activeRec("star", 40, 100, 2.5),
		activeRec("free-rider", 0, 10, 5.0), // zero cost excluded
		activeRec("threshold", 10, 18, 1.8), // at threshold included
	}}
	n := &stubNotifier{}
	r := New(st, ext, &stubExecutor{}, n)

	got, err := r.FindCampaignsToScale(context.Background(), "ops@brandbolt.co")
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "star", got[0].Campaign)
	assert.Equal(t, "good", got[1].Campaign)
	assert.Equal(t, "threshold", got[2].Campaign)

	// Cached into the status store with a delivery stamp.
	snap := st.Get()
	assert.Len(t, snap.Campaigns, 3)
	require.NotNil(t, snap.LastScaleEmail)
	assert.Equal(t, 3, snap.LastScaleEmail.Count)

	require.Len(t, n.recipients, 1)
	assert.Equal(t, "ops@brandbolt.co", n.recipients[0])
}

func TestFindCampaignsToScale_ExtractionError(t *testing.T) {
	st := newTestStore(t)
	ext := &stubExtractor{err: errors.New("authentication state not found")}
	r := New(st, ext, &stubExecutor{}, &stubNotifier{})

	_, err := r.FindCampaignsToScale(context.Background(), "ops@brandbolt.co")
	require.Error(t, err)
	assert.Nil(t, st.Get().LastScaleEmail)
}

func TestFindCampaignsToScale_EmptyResultStillStamped(t *testing.T) {
	st := newTestStore(t)
	ext := &stubExtractor{records: []campaign.Record{activeRec("meh", 10, 5, 0.5)}}
	r := New(st, ext, &stubExecutor{}, &stubNotifier{})

	got, err := r.FindCampaignsToScale(context.Background(), "ops@brandbolt.co")
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NotNil(t, st.Get().LastScaleEmail)
	assert.Equal(t, 0, st.Get().LastScaleEmail.Count)
}

func TestFindCampaignsToScale_DoesNotTouchRunState(t *testing.T) {
	st := newTestStore(t)
	ext := &stubExtractor{records: []campaign.Record{activeRec("good", 10, 20, 2.0)}}
	exec := &stubExecutor{}
	r := New(st, ext, exec, &stubNotifier{})

	_, err := r.FindCampaignsToScale(context.Background(), "ops@brandbolt.co")
	require.NoError(t, err)

	snap := st.Get()
	assert.False(t, snap.IsRunning)
	assert.Nil(t, snap.LastRun)
	assert.Nil(t, snap.LastResult)
	assert.Empty(t, exec.executed, "scale finder never executes actions")
}
