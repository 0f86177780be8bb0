// Package templates fetches workflow templates from the public template
// search API.
//
// Discovery runs in two phases, a category-filtered pass first and then a
// broader unfiltered sweep, deduplicated by template id. Detail fetches
// run with a fixed worker count and an inter-batch delay; the API rate
// limits aggressively and answers 429 when pushed, which this client
// retries with exponential backoff. Any other failure is terminal for
// that single template only.
package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// maxRetries caps 429 retries per request; backoff starts at
	// retryBaseDelay and doubles each attempt.
	maxRetries     = 3
	retryBaseDelay = time.Second

	// batchDelay separates detail-fetch batches to respect rate limits.
	batchDelay = 500 * time.Millisecond

	maxErrorBody = 300
)

// Config tunes the discovery sweep.
type Config struct {
	BaseURL  string // search API base, e.g. https://api.n8n.io/api/templates
	Category string // phase-1 category filter; empty skips phase 1
	Pages    int    // pages fetched per phase
	Rows     int    // results requested per page
	Workers  int    // concurrent detail fetches
}

// Client talks to the template search API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a template API client. logger may be nil.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pages <= 0 {
		cfg.Pages = 3
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 20
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// Search discovers template summaries across both query phases,
// deduplicated by template id (first occurrence wins). Pagination within a
// phase stops early on the first empty page.
func (c *Client) Search(ctx context.Context) ([]Summary, error) {
	seen := make(map[int64]struct{})
	var all []Summary

	phases := []string{}
	if c.cfg.Category != "" {
		phases = append(phases, c.cfg.Category)
	}
	phases = append(phases, "") // broad sweep

	for _, category := range phases {
		for page := 1; page <= c.cfg.Pages; page++ {
			summaries, err := c.searchPage(ctx, page, category)
			if err != nil {
				return nil, fmt.Errorf("searching templates (category=%q page=%d): %w", category, page, err)
			}
			if len(summaries) == 0 {
				break
			}
			for _, s := range summaries {
				if _, dup := seen[s.ID]; dup {
					continue
				}
				seen[s.ID] = struct{}{}
				all = append(all, s)
			}
		}
	}

	c.logger.Info("template search completed", "discovered", len(all))
	return all, nil
}

func (c *Client) searchPage(ctx context.Context, page int, category string) ([]Summary, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("rows", strconv.Itoa(c.cfg.Rows))
	if category != "" {
		q.Set("category", category)
	}

	var resp searchResponse
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Workflows, nil
}

// Detail fetches the full payload for one template id.
func (c *Client) Detail(ctx context.Context, id int64) (*Detail, error) {
	var env detailEnvelope
	url := fmt.Sprintf("%s/workflows/%d", c.cfg.BaseURL, id)
	if err := c.getJSON(ctx, url, &env); err != nil {
		return nil, fmt.Errorf("fetching template %d: %w", id, err)
	}
	return &env.Workflow, nil
}

// Fetched pairs a search summary with its detail payload.
type Fetched struct {
	Summary Summary
	Detail  *Detail
}

// FetchDetails fetches details for all summaries with bounded concurrency,
// batch by batch with a fixed delay in between. A failed detail fetch is
// captured as a diagnostic and does not block the other templates in the
// batch (fault isolation at the unit of one template).
func (c *Client) FetchDetails(ctx context.Context, summaries []Summary) ([]Fetched, []string) {
	var fetched []Fetched
	var errs []string

	for start := 0; start < len(summaries); start += c.cfg.Workers {
		end := min(start+c.cfg.Workers, len(summaries))
		batch := summaries[start:end]

		results := make([]*Detail, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, summary := range batch {
			g.Go(func() error {
				detail, err := c.Detail(gctx, summary.ID)
				if err != nil {
					// Swallowed on purpose: a group error would cancel the
					// sibling fetches. Failures surface via the nil slots.
					c.logger.Warn("template detail fetch failed", "template_id", summary.ID, "error", err)
					return nil
				}
				results[i] = detail
				return nil
			})
		}
		_ = g.Wait()

		for i, summary := range batch {
			if results[i] == nil {
				errs = append(errs, fmt.Sprintf("template %d: detail fetch failed", summary.ID))
				continue
			}
			fetched = append(fetched, Fetched{Summary: summary, Detail: results[i]})
		}

		if end < len(summaries) {
			if err := c.sleep(ctx, batchDelay); err != nil {
				errs = append(errs, fmt.Sprintf("detail fetching canceled: %v", err))
				return fetched, errs
			}
		}
	}

	return fetched, errs
}

// getJSON performs a GET with 429 retry/backoff and decodes the response.
func (c *Client) getJSON(ctx context.Context, url string, result any) error {
	delay := retryBaseDelay

	for attempt := 0; ; attempt++ {
		body, status, err := c.get(ctx, url)
		if err != nil {
			return err
		}

		if status == http.StatusTooManyRequests {
			if attempt >= maxRetries {
				return fmt.Errorf("GET %s: rate limited after %d retries", url, maxRetries)
			}
			c.logger.Debug("rate limited, backing off", "url", url, "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
			continue
		}

		if status < 200 || status >= 300 {
			snippet := string(body)
			if len(snippet) > maxErrorBody {
				snippet = snippet[:maxErrorBody]
			}
			return fmt.Errorf("GET %s: status %d: %s", url, status, snippet)
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshaling response: %w", err)
		}
		return nil
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "n8n-ai-workflow-builder")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
