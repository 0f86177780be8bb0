// Package github fetches documentation and node source trees from GitHub.
//
// It is a lightweight read-only client: resolve the default branch, list a
// recursive tree, fetch raw file content. Requests carry an identifying
// User-Agent and, when configured, a bearer token for the higher
// authenticated rate limit. Calls are throttled client-side as well so a
// large ingestion run does not burn through the quota.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	apiBase = "https://api.github.com"
	rawBase = "https://raw.githubusercontent.com"

	userAgent = "n8n-ai-workflow-builder"

	// maxErrorBody caps how much of an upstream error response gets
	// inlined into the returned error.
	maxErrorBody = 300
)

// Client is a read-only GitHub content client.
type Client struct {
	token      string
	apiBase    string
	rawBase    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the API and raw-content endpoints. Tests point
// these at an httptest server.
func WithBaseURLs(apiBase, rawBase string) Option {
	return func(c *Client) {
		c.apiBase = strings.TrimRight(apiBase, "/")
		c.rawBase = strings.TrimRight(rawBase, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a GitHub client. token may be empty (unauthenticated, lower
// rate limit); logger may be nil.
func New(token string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		token:      token,
		apiBase:    apiBase,
		rawBase:    rawBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// Unauthenticated GitHub allows 60 req/h; authenticated 5000.
		// 5 req/s with burst headroom stays under the authenticated
		// limit for any realistic run length.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultBranch resolves the repository's default branch name.
func (c *Client) DefaultBranch(ctx context.Context, repo string) (string, error) {
	var info repoInfo
	url := fmt.Sprintf("%s/repos/%s", c.apiBase, repo)
	if err := c.getJSON(ctx, url, &info); err != nil {
		return "", fmt.Errorf("resolving default branch for %s: %w", repo, err)
	}
	if info.DefaultBranch == "" {
		return "", fmt.Errorf("repository %s reported no default branch", repo)
	}
	return info.DefaultBranch, nil
}

// Tree lists all blobs of a repository branch recursively, trying the
// given branch first and its canonical sibling (master <-> main) on
// failure before giving up.
func (c *Client) Tree(ctx context.Context, repo, branch string) ([]TreeEntry, error) {
	var firstErr error
	for _, b := range branchCandidates(branch) {
		url := fmt.Sprintf("%s/repos/%s/git/trees/%s?recursive=1", c.apiBase, repo, b)
		var resp treeResponse
		if err := c.getJSON(ctx, url, &resp); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if resp.Truncated {
			c.logger.Warn("tree listing truncated by GitHub", "repo", repo, "branch", b)
		}

		blobs := make([]TreeEntry, 0, len(resp.Tree))
		for _, entry := range resp.Tree {
			if entry.Type == "blob" {
				blobs = append(blobs, entry)
			}
		}
		return blobs, nil
	}
	return nil, fmt.Errorf("listing tree of %s: %w", repo, firstErr)
}

// RawFile fetches raw file content by path, with the same branch fallback
// as Tree.
func (c *Client) RawFile(ctx context.Context, repo, branch, path string) (string, error) {
	var firstErr error
	for _, b := range branchCandidates(branch) {
		url := fmt.Sprintf("%s/%s/%s/%s", c.rawBase, repo, b, path)
		body, err := c.get(ctx, url)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return string(body), nil
	}
	return "", fmt.Errorf("fetching %s from %s: %w", path, repo, firstErr)
}

// branchCandidates returns branch plus its canonical fallback. The two
// names cover practically every repository this client is pointed at.
func branchCandidates(branch string) []string {
	switch branch {
	case "master":
		return []string{"master", "main"}
	case "main":
		return []string{"main", "master"}
	default:
		return []string{branch, "main"}
	}
}

func (c *Client) getJSON(ctx context.Context, url string, result any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshaling response: %w", err)
	}
	return nil
}

// get performs one rate-limited GET and returns the body. A non-2xx
// response becomes an error with the (truncated) body inlined for
// diagnostics.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, snippet)
	}

	return body, nil
}
