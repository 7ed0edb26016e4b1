// Package github provides the GitHub REST calls needed to discover a fork
// tree. Every page is memoized in the on-disk cache and fresh requests are
// paced by a rate limiter fed from the server's quota headers.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/novellus/pixel-dungeon-network/internal/forktree"
	"github.com/novellus/pixel-dungeon-network/internal/ratelimit"
	"github.com/novellus/pixel-dungeon-network/internal/store"
)

const (
	GitHubAPIURL = "https://api.github.com"
	AcceptHeader = "application/vnd.github.v3+json"

	forksPerPage = 100
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	Cache      *store.Cache
	Limiter    *ratelimit.Limiter
	HTTPClient *http.Client
}

// Client is a read-only GitHub API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	cache      *store.Cache
	limiter    *ratelimit.Limiter

	mu      sync.Mutex
	quota   ratelimit.Quota
	fetched int
}

// NewClient creates a client. A nil cache disables memoization and a nil
// limiter disables pacing.
func NewClient(opts Options) *Client {
	c := &Client{
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		cache:      opts.Cache,
		limiter:    opts.Limiter,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.baseURL == "" {
		c.baseURL = GitHubAPIURL
	}
	return c
}

// TokenFromEnvironment looks for an API token in the named environment
// variable, then in git config. An empty result means unauthenticated access.
func TokenFromEnvironment(envName string) string {
	if envName != "" {
		if token := os.Getenv(envName); token != "" {
			return token
		}
	}
	return getGitConfig("github.token")
}

// getGitConfig reads a git config value
func getGitConfig(key string) string {
	cmd := exec.Command("git", "config", "--get", key)
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// doRequest performs a GET and insists on 200 OK.
func (c *Client) doRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", AcceptHeader)
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("token %s", c.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	c.updateRateLimits(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: API status %d: %s", rawURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return resp, nil
}

// updateRateLimits records the quota reported by the server
func (c *Client) updateRateLimits(resp *http.Response) {
	if q, ok := ratelimit.ParseQuota(resp.Header); ok {
		c.mu.Lock()
		c.quota = q
		c.mu.Unlock()
	}
}

// getPage returns one API page, from the cache when possible.
func (c *Client) getPage(ctx context.Context, rawURL string) (*store.Entry, error) {
	if c.cache != nil {
		entry, ok, err := c.cache.Get(rawURL)
		if err != nil {
			return nil, err
		}
		if ok {
			return entry, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	log.Printf("retrieving %s", rawURL)

	resp, err := c.doRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("GET %s: response is not JSON", rawURL)
	}

	entry := &store.Entry{Body: body, Next: nextLink(resp.Header.Get("Link"))}
	if c.cache != nil {
		if err := c.cache.Put(rawURL, entry); err != nil {
			return nil, fmt.Errorf("cache %s: %w", rawURL, err)
		}
	}

	c.mu.Lock()
	c.fetched++
	c.mu.Unlock()

	if c.limiter != nil {
		if d := c.limiter.Observe(resp.Header); d > 0 {
			log.Printf("waiting %v before next request", d.Round(time.Millisecond))
		}
	}
	return entry, nil
}

// nextLink extracts the rel="next" target of a Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		target, params, ok := strings.Cut(part, ";")
		if !ok {
			continue
		}
		target = strings.TrimSpace(target)
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, p := range strings.Split(params, ";") {
			p = strings.ReplaceAll(strings.TrimSpace(p), " ", "")
			if p == `rel="next"` || p == "rel=next" {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}

// GetRepository fetches repository information
func (c *Client) GetRepository(ctx context.Context, key forktree.Key) (*forktree.Repository, error) {
	rawURL := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(key.Owner), url.PathEscape(key.Name))
	entry, err := c.getPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var repository forktree.Repository
	if err := json.Unmarshal(entry.Body, &repository); err != nil {
		return nil, fmt.Errorf("failed to decode repository %s: %w", key, err)
	}
	if repository.Key() != key {
		log.Printf("requested %s, API answered with %s", key, repository.Key())
	}
	return &repository, nil
}

// ListForks fetches every page of a forks listing.
func (c *Client) ListForks(ctx context.Context, forksURL string) ([]*forktree.Repository, error) {
	var forks []*forktree.Repository
	for next := withPageSize(forksURL); next != ""; {
		entry, err := c.getPage(ctx, next)
		if err != nil {
			return nil, err
		}

		var page []forktree.Repository
		if err := json.Unmarshal(entry.Body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode forks page %s: %w", next, err)
		}
		for i := range page {
			forks = append(forks, &page[i])
		}
		next = entry.Next
	}
	return forks, nil
}

func withPageSize(forksURL string) string {
	u, err := url.Parse(forksURL)
	if err != nil || u.Query().Has("per_page") {
		return forksURL
	}
	q := u.Query()
	q.Set("per_page", fmt.Sprint(forksPerPage))
	u.RawQuery = q.Encode()
	return u.String()
}

// GetRateLimit returns the last quota reported by the server.
func (c *Client) GetRateLimit() ratelimit.Quota {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quota
}

// Fetched returns how many pages were requested from the network rather
// than served from the cache.
func (c *Client) Fetched() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetched
}
