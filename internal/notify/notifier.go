// Package notify renders and delivers run reports and scale-candidate
// digests by email. Delivery failures are reported to the caller but never
// alter run results.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/osteele/liquid"

	"github.com/brandbolt/roasrobo/internal/pkg/logger"
	"github.com/brandbolt/roasrobo/internal/rules"
	"github.com/brandbolt/roasrobo/internal/status"
)

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// EmailNotifier renders reports with Liquid and hands them to a Sender.
type EmailNotifier struct {
	sender    Sender
	recipient string
	engine    *liquid.Engine
}

// NewEmailNotifier creates a notifier with a default recipient for run
// reports. Scale reports accept a per-request recipient.
func NewEmailNotifier(sender Sender, recipient string) *EmailNotifier {
	return &EmailNotifier{
		sender:    sender,
		recipient: recipient,
		engine:    liquid.NewEngine(),
	}
}

// NotifyRun renders and sends the post-run report.
func (n *EmailNotifier) NotifyRun(ctx context.Context, summary *status.RunSummary) error {
	body, err := n.engine.ParseAndRenderString(runReportTemplate, runBindings(summary))
	if err != nil {
		return fmt.Errorf("rendering run report: %w", err)
	}

	paused, reactivated := actionCounts(summary)
	subject := fmt.Sprintf("ROAS Automation Report: %d changed, %d paused, %d reactivated",
		len(summary.ChangedCampaigns), paused, reactivated)
	if len(summary.Errors) > 0 {
		subject = fmt.Sprintf("[ERRORS] %s", subject)
	}

	if err := n.sender.Send(ctx, n.recipient, subject, body); err != nil {
		return fmt.Errorf("sending run report: %w", err)
	}
	logger.Info("run report sent", "recipient", logger.RedactEmail(n.recipient), "runId", summary.ID)
	return nil
}

// NotifyScale renders and sends the scale-candidate digest to recipient.
func (n *EmailNotifier) NotifyScale(ctx context.Context, recipient string, candidates []status.ScaleCandidate) error {
	if recipient == "" {
		recipient = n.recipient
	}

	body, err := n.engine.ParseAndRenderString(scaleReportTemplate, scaleBindings(candidates))
	if err != nil {
		return fmt.Errorf("rendering scale report: %w", err)
	}

	subject := fmt.Sprintf("Campaigns Ready to Scale: %d candidates", len(candidates))
	if err := n.sender.Send(ctx, recipient, subject, body); err != nil {
		return fmt.Errorf("sending scale report: %w", err)
	}
	logger.Info("scale report sent", "recipient", logger.RedactEmail(recipient), "count", fmt.Sprintf("%d", len(candidates)))
	return nil
}

func actionCounts(summary *status.RunSummary) (paused, reactivated int) {
	for _, c := range summary.ChangedCampaigns {
		switch c.Action {
		case string(rules.ActionPause):
			paused++
		case string(rules.ActionActivate):
			reactivated++
		}
	}
	return paused, reactivated
}

func runBindings(summary *status.RunSummary) map[string]interface{} {
	changed := make([]map[string]interface{}, 0, len(summary.ChangedCampaigns))
	for _, c := range summary.ChangedCampaigns {
		changed = append(changed, map[string]interface{}{
			"account":    c.Account,
			"campaign":   c.Campaign,
			"old_status": c.OldStatus,
			"new_status": c.NewStatus,
			"roas":       fmt.Sprintf("%.2f", c.ROAS),
			"cost":       fmt.Sprintf("%.2f", c.Cost),
			"reason":     c.Reason.Describe(),
			"urgent":     c.Reason.Urgent(),
		})
	}

	preserved := make([]map[string]interface{}, 0, len(summary.PreservedCampaigns))
	for _, p := range summary.PreservedCampaigns {
		preserved = append(preserved, map[string]interface{}{
			"account":  p.Account,
			"campaign": p.Campaign,
			"status":   p.Status,
			"roas":     fmt.Sprintf("%.2f", p.ROAS),
			"cost":     fmt.Sprintf("%.2f", p.Cost),
		})
	}

	paused, reactivated := actionCounts(summary)
	return map[string]interface{}{
		"run_id":               summary.ID,
		"end_time":             summary.EndTime.UTC().Format("2006-01-02 15:04:05 UTC"),
		"duration":             summary.Duration().Round(time.Second).String(),
		"success":              summary.Success,
		"total":                summary.TotalCampaigns,
		"paused":               paused,
		"reactivated":          reactivated,
		"low_roas":             summary.LowRoasCampaigns,
		"zero_roas_high_spend": summary.ZeroRoasHighSpendCampaigns,
		"changed":              changed,
		"changed_count":        len(changed),
		"preserved":            preserved,
		"preserved_count":      len(preserved),
		"errors":               summary.Errors,
		"error_count":          len(summary.Errors),
	}
}

func scaleBindings(candidates []status.ScaleCandidate) map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, map[string]interface{}{
			"account":  c.Account,
			"campaign": c.Campaign,
			"roas":     fmt.Sprintf("%.2f", c.ROAS),
			"cost":     fmt.Sprintf("%.2f", c.Cost),
			"revenue":  fmt.Sprintf("%.2f", c.Revenue),
		})
	}
	return map[string]interface{}{
		"count":      len(candidates),
		"candidates": rows,
	}
}
