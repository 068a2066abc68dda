// Package dashboard implements the extraction and action-execution
// collaborators against the rendered reporting dashboard. It consumes the
// report over HTTP using a previously captured authentication state; it does
// not drive a browser itself.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/brandbolt/roasrobo/internal/campaign"
	"github.com/brandbolt/roasrobo/internal/pkg/logger"
)

var (
	// ErrAuthMissing means the captured authentication state file is absent;
	// the interactive auth capture has to be run first.
	ErrAuthMissing = errors.New("authentication state not found")

	// ErrAuthExpired means the report redirected to a login page.
	ErrAuthExpired = errors.New("authentication expired - redirected to login")

	// ErrNoRows means the report rendered but contained no campaign rows.
	ErrNoRows = errors.New("no campaign data rows found")
)

// errLoginRedirect aborts a redirect chain heading into a login flow so the
// failure surfaces as ErrAuthExpired instead of a redirect-limit error.
var errLoginRedirect = errors.New("redirected to login")

func isLoginURL(u string) bool {
	return strings.Contains(u, "accounts.google.com") || strings.Contains(u, "signin")
}

// DiagnosticSink receives page captures for post-mortem debugging. Saving is
// best-effort; callers ignore sink errors beyond logging.
type DiagnosticSink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// authState is the captured cookie jar persisted by the auth capture tool.
type authState struct {
	Cookies []struct {
		Name   string `json:"name"`
		Value  string `json:"value"`
		Domain string `json:"domain"`
		Path   string `json:"path"`
	} `json:"cookies"`
}

// Client fetches and parses the rendered report.
type Client struct {
	httpClient    *http.Client
	reportURL     string
	authStatePath string
	diagnostics   DiagnosticSink
}

// NewClient creates a report client. diagnostics may be nil.
func NewClient(reportURL, authStatePath string, timeout time.Duration, diagnostics DiagnosticSink) *Client {
	if timeout == 0 {
		timeout = 3 * time.Minute
	}
	httpClient := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if isLoginURL(req.URL.String()) {
				return errLoginRedirect
			}
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
	return &Client{
		httpClient:    httpClient,
		reportURL:     reportURL,
		authStatePath: authStatePath,
		diagnostics:   diagnostics,
	}
}

// ExtractCampaigns fetches the report and normalizes its table rows.
// Short rows are skipped; numeric oddities degrade to zero values inside
// campaign.ParseRow and never drop a row.
func (c *Client) ExtractCampaigns(ctx context.Context) ([]campaign.Record, error) {
	cookies, err := c.loadAuthState()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.reportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building report request: %w", err)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, errLoginRedirect) {
			return nil, ErrAuthExpired
		}
		return nil, fmt.Errorf("fetching report: %w", err)
	}
	defer resp.Body.Close()

	if isLoginURL(resp.Request.URL.String()) {
		return nil, ErrAuthExpired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("report returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing report HTML: %w", err)
	}

	records := c.parseRows(doc.Find(".row"))
	if len(records) == 0 {
		// The table occasionally renders under an alternative container.
		records = c.parseRows(doc.Find(".tableBody .row"))
	}
	if len(records) == 0 {
		c.captureDiagnostic(ctx, doc)
		return nil, ErrNoRows
	}

	return records, nil
}

// parseRows converts matched row elements to records, skipping the header
// row and any row that is too short to be a campaign.
func (c *Client) parseRows(rows *goquery.Selection) []campaign.Record {
	var records []campaign.Record
	rows.Each(func(i int, row *goquery.Selection) {
		if row.HasClass("headerRow") {
			return
		}

		var cells []string
		row.Find(".cell").Each(func(_ int, cell *goquery.Selection) {
			// Action cells carry their payload in a link, not in text.
			if href, ok := cell.Find("a").Attr("href"); ok && len(cells) < 2 {
				cells = append(cells, href)
				return
			}
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})

		rec, err := campaign.ParseRow(cells)
		if err != nil {
			logger.Debug("skipping unusable report row", "row", fmt.Sprintf("%d", i), "error", err.Error())
			return
		}
		records = append(records, rec)
	})
	return records
}

func (c *Client) loadAuthState() ([]*http.Cookie, error) {
	data, err := os.ReadFile(c.authStatePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrAuthMissing, c.authStatePath)
	}
	if err != nil {
		return nil, fmt.Errorf("reading auth state: %w", err)
	}

	var st authState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing auth state %s: %w", c.authStatePath, err)
	}

	cookies := make([]*http.Cookie, 0, len(st.Cookies))
	for _, ck := range st.Cookies {
		cookies = append(cookies, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: ck.Path, Domain: ck.Domain})
	}
	return cookies, nil
}

func (c *Client) captureDiagnostic(ctx context.Context, doc *goquery.Document) {
	if c.diagnostics == nil {
		return
	}
	html, err := doc.Html()
	if err != nil {
		return
	}
	name := fmt.Sprintf("no_rows_found_%s.html", time.Now().UTC().Format("20060102T150405"))
	if loc, err := c.diagnostics.Save(ctx, name, []byte(html)); err != nil {
		logger.Warn("diagnostic capture failed", "error", err.Error())
	} else {
		logger.Info("captured report diagnostic", "location", loc)
	}
}
