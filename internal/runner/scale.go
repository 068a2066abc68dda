package runner

import (
	"context"
	"fmt"
	"sort"

	"github.com/brandbolt/roasrobo/internal/pkg/logger"
	"github.com/brandbolt/roasrobo/internal/rules"
	"github.com/brandbolt/roasrobo/internal/status"
)

// FindCampaignsToScale is the read-only analysis path: it extracts the
// current rows, flags active campaigns with ROAS at or above
// rules.ScaleROASThreshold and non-zero spend, and emails the list to
// recipient. No campaign state is touched; only the scale cache and the
// lastScaleEmail stamp in the status store are updated.
func (r *Runner) FindCampaignsToScale(ctx context.Context, recipient string) ([]status.ScaleCandidate, error) {
	records, err := r.extract.ExtractCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("extracting campaigns for scale report: %w", err)
	}

	candidates := []status.ScaleCandidate{}
	for _, rec := range records {
		if !rec.IsActive() || rec.ROAS < rules.ScaleROASThreshold || rec.Cost <= 0 {
			continue
		}
		candidates = append(candidates, status.ScaleCandidate{
			Account:  rec.Account,
			Campaign: rec.Campaign,
			ROAS:     rec.ROAS,
			Cost:     rec.Cost,
			Revenue:  rec.Revenue,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ROAS > candidates[j].ROAS
	})

	r.store.SetScaleResults(candidates)
	logger.Info("scale candidates identified", "count", fmt.Sprintf("%d", len(candidates)))

	if r.notifier != nil {
		if err := r.notifier.NotifyScale(ctx, recipient, candidates); err != nil {
			return candidates, fmt.Errorf("sending scale report: %w", err)
		}
	}
	return candidates, nil
}
