// Package wms fetches WMS GetFeatureInfo samples from the hazard map
// services, tolerating partial failure: every fetch settles into a
// domain.RawResult and errors never propagate to the caller.
package wms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cuantia/risk-service/internal/domain"
	"github.com/cuantia/risk-service/internal/observability"
)

const maxBodyBytes = 4 << 20

// Client issues GetFeatureInfo requests to the hazard sources.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a fetcher with the given per-request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// FetchAny tries each URL in order and returns the first success. A 2xx
// response with a non-JSON body is still a success (RawText). When every URL
// fails, the result carries the last error message; no error is returned.
func (c *Client) FetchAny(ctx context.Context, urls []string) domain.RawResult {
	lastErr := "no urls to fetch"
	for _, u := range urls {
		result, err := c.fetchOne(ctx, u)
		if err != nil {
			lastErr = err.Error()
			continue
		}
		return result
	}
	return domain.RawResult{Err: lastErr}
}

func (c *Client) fetchOne(ctx context.Context, fullURL string) (domain.RawResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.RawResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawResult{}, fmt.Errorf("fetch %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.RawResult{}, fmt.Errorf("fetch %s: status %d", fullURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.RawResult{}, fmt.Errorf("read body from %s: %w", fullURL, err)
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		// Not an error: the erosion rasters answer text/plain.
		return domain.RawResult{Raw: string(body)}, nil
	}
	return domain.RawResult{Value: value}, nil
}

// FetchAll samples every source around the bounding box concurrently. All
// fetches start before any is awaited; each writes a disjoint slot, so the
// result map always contains exactly one entry per source even when some or
// all of them fail.
func (c *Client) FetchAll(ctx context.Context, sources []domain.HazardSource, bbox domain.BoundingBox) map[string]domain.RawResult {
	slots := make([]domain.RawResult, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slots[i] = c.fetchSource(ctx, src, bbox)
		}()
	}
	wg.Wait()

	results := make(map[string]domain.RawResult, len(sources))
	for i, src := range sources {
		results[src.Slot()] = slots[i]
	}
	return results
}

func (c *Client) fetchSource(ctx context.Context, src domain.HazardSource, bbox domain.BoundingBox) domain.RawResult {
	start := time.Now()
	result := c.FetchAny(ctx, src.FeatureInfoURLs(bbox))
	c.metrics.SourceFetchDuration.WithLabelValues(src.Slot()).Observe(time.Since(start).Seconds())

	outcome := "json"
	switch {
	case result.Failed():
		outcome = "error"
		c.logger.Warn("hazard source fetch failed", "source", src.Slot(), "error", result.Err)
	case result.Raw != "":
		outcome = "raw_text"
	}
	c.metrics.SourceFetches.WithLabelValues(src.Slot(), outcome).Inc()

	return result
}
