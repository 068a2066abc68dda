package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brandbolt/roasrobo/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *status.Store {
	p, err := status.NewFilePersister(filepath.Join(t.TempDir(), "script-status.json"))
	require.NoError(t, err)
	s, err := status.NewStore(p)
	require.NoError(t, err)
	return s
}

func TestNextFire(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name   string
		now    time.Time
		offset int
		want   time.Time
	}{
		{"before offset same hour", time.Date(2026, 8, 30, 10, 2, 0, 0, loc), 5, time.Date(2026, 8, 30, 10, 5, 0, 0, loc)},
		{"exactly at offset rolls to next hour", time.Date(2026, 8, 30, 10, 5, 0, 0, loc), 5, time.Date(2026, 8, 30, 11, 5, 0, 0, loc)},
		{"after offset rolls to next hour", time.Date(2026, 8, 30, 10, 30, 0, 0, loc), 5, time.Date(2026, 8, 30, 11, 5, 0, 0, loc)},
		{"midnight rollover", time.Date(2026, 8, 30, 23, 50, 0, 0, loc), 5, time.Date(2026, 8, 31, 0, 5, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextFire(tt.now, tt.offset))
		})
	}
}

func TestShouldRun(t *testing.T) {
	st := newTestStore(t)
	s := New(st, nil, 5)

	// Automation on by default, but no rules enabled.
	assert.False(t, s.shouldRun())

	_, err := st.ToggleRule("belowRoasChop")
	require.NoError(t, err)
	assert.True(t, s.shouldRun())

	st.ToggleAutomation() // off
	assert.False(t, s.shouldRun())
}

func TestFire_InvokesRunWhenGatesOpen(t *testing.T) {
	st := newTestStore(t)
	_, err := st.ToggleRule("zeroRoasKiller")
	require.NoError(t, err)

	ran := 0
	s := New(st, func(ctx context.Context) (*status.RunSummary, error) {
		ran++
		return &status.RunSummary{Success: true}, nil
	}, 5)
	s.ctx = context.Background()

	s.fire()
	assert.Equal(t, 1, ran)
}

func TestFire_SkipsWhenNoRulesEnabled(t *testing.T) {
	st := newTestStore(t)

	ran := 0
	s := New(st, func(ctx context.Context) (*status.RunSummary, error) {
		ran++
		return nil, nil
	}, 5)
	s.ctx = context.Background()

	s.fire()
	assert.Zero(t, ran)
}

func TestFire_GatingRejectionIsQuiet(t *testing.T) {
	st := newTestStore(t)
	_, err := st.ToggleRule("belowRoasChop")
	require.NoError(t, err)

	s := New(st, func(ctx context.Context) (*status.RunSummary, error) {
		return nil, status.ErrAlreadyRunning
	}, 5)
	s.ctx = context.Background()

	// Must not panic or propagate; the rejection is an expected no-op.
	s.fire()
}

func TestNew_ClampsBadOffset(t *testing.T) {
	st := newTestStore(t)
	assert.Equal(t, 5, New(st, nil, -1).minuteOffset)
	assert.Equal(t, 5, New(st, nil, 75).minuteOffset)
	assert.Equal(t, 0, New(st, nil, 0).minuteOffset)
}
