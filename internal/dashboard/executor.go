package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/brandbolt/roasrobo/internal/pkg/logger"
	"github.com/brandbolt/roasrobo/internal/rules"
)

// Executor applies pause/activate decisions by following the per-campaign
// action links embedded in the report. Each link opens an interstitial page
// whose webhook anchor performs the actual state change.
type Executor struct {
	httpClient *http.Client
}

// NewExecutor creates an action executor.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout == 0 {
		timeout = time.Minute
	}
	return &Executor{httpClient: &http.Client{Timeout: timeout}}
}

// ExecuteAction performs the decision's action against the campaign. A
// decision with ActionNone is a programming error upstream and is rejected.
func (e *Executor) ExecuteAction(ctx context.Context, d rules.Decision) error {
	var actionURL string
	switch d.Action {
	case rules.ActionPause:
		actionURL = d.Record.PauseURL
	case rules.ActionActivate:
		actionURL = d.Record.ActiveURL
	default:
		return fmt.Errorf("no executable action for campaign %q", d.Record.Campaign)
	}
	if actionURL == "" {
		return fmt.Errorf("no %s link found for campaign %q", strings.ToLower(string(d.Action)), d.Record.Campaign)
	}

	doc, err := e.fetchPage(ctx, actionURL)
	if err != nil {
		return fmt.Errorf("opening action page for campaign %q: %w", d.Record.Campaign, err)
	}

	hook, ok := findWebhookLink(doc)
	if !ok {
		return fmt.Errorf("webhook link not found on action page for campaign %q", d.Record.Campaign)
	}

	if err := e.triggerWebhook(ctx, hook); err != nil {
		return fmt.Errorf("triggering %s for campaign %q: %w", strings.ToLower(string(d.Action)), d.Record.Campaign, err)
	}

	logger.Info("campaign action executed",
		"campaign", d.Record.Campaign,
		"account", d.Record.Account,
		"action", string(d.Action),
		"reason", string(d.Reason))
	return nil
}

func (e *Executor) fetchPage(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// findWebhookLink locates the anchor that actually toggles the campaign.
func findWebhookLink(doc *goquery.Document) (string, bool) {
	var hook string
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if ok && strings.Contains(href, "hook.") {
			hook = href
			return false
		}
		return true
	})
	return hook, hook != ""
}

func (e *Executor) triggerWebhook(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
