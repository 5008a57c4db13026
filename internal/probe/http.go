package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/kolarena/internal/domain/types"
)

// HTTPClient wraps http.Client for JSON reads against the service.
type HTTPClient struct {
	base   string
	client *http.Client
}

func newHTTPClient(base string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// get performs a GET request bound to ctx.
func (c *HTTPClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// getJSON decodes the 200 response of path into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

// Snapshot is one consistent-enough read of every widget.
type Snapshot struct {
	At     time.Time
	Agents []types.Agent
	Chart  types.Chart
	Board  []types.RankEntry
	Feed   []types.Post
	Stats  types.Stats
}

// snapshot fetches every widget in parallel.
func (c *HTTPClient) snapshot(ctx context.Context) (Snapshot, error) {
	s := Snapshot{At: time.Now()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.getJSON(gctx, "/api/agents", &s.Agents) })
	g.Go(func() error { return c.getJSON(gctx, "/api/chart", &s.Chart) })
	g.Go(func() error { return c.getJSON(gctx, "/api/leaderboard", &s.Board) })
	g.Go(func() error { return c.getJSON(gctx, "/api/feed", &s.Feed) })
	g.Go(func() error { return c.getJSON(gctx, "/stats", &s.Stats) })
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
