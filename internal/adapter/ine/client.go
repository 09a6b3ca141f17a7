// Package ine looks municipal statistics up in the INE Tempus3 API
// (wstempus). It owns the municipality name matching and the response
// cache; the hazard core never touches it.
package ine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cuantia/risk-service/internal/observability"
)

// municipalTables are the Tempus3 tables queried for every municipality,
// keyed by the indicator name used in the response.
var municipalTables = []struct{ Key, ID string }{
	{"poblacion_municipio", "29005"},
	{"viviendas_por_municipio", "3456"},
	{"indicadores_urbanos", "69303"},
	{"indicadores_urbanos_2", "69336"},
	{"hogares_vivienda", "69302"},
	{"superficie_uso_suelo", "69305"},
	{"distribucion_renta", "30904"},
}

// seriesPerTable caps how many matched series are expanded per table.
const seriesPerTable = 3

// DataSource answers municipal statistic lookups.
type DataSource interface {
	MunicipalData(ctx context.Context, municipality string, nLast int) (map[string]any, error)
}

// Client implements DataSource against the INE wstempus API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an INE client. baseURL is the wstempus root, e.g.
// "https://servicios.ine.es/wstempus/jsCache/ES".
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// series is the slice of a SERIES_TABLA entry the matcher needs.
type series struct {
	COD    string `json:"COD"`
	Nombre string `json:"Nombre"`
}

// MunicipalData fans out over every municipal table, keeps the series whose
// name matches the municipality, and expands the first few with their latest
// nLast values. Per-table and per-series failures are reported inline under
// an "error" key; only context cancellation aborts the lookup.
func (c *Client) MunicipalData(ctx context.Context, municipality string, nLast int) (map[string]any, error) {
	type tableResult struct {
		key  string
		data any
	}

	results := make([]tableResult, len(municipalTables))
	var wg sync.WaitGroup
	for i, table := range municipalTables {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = tableResult{key: table.Key, data: c.tableData(ctx, table.ID, municipality, nLast)}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		c.metrics.INERequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ine lookup for %q: %w", municipality, err)
	}

	out := make(map[string]any, len(results))
	for _, r := range results {
		out[r.key] = r.data
	}
	c.metrics.INERequests.WithLabelValues("success").Inc()
	return out, nil
}

// tableData resolves one table: matched series expanded to their data.
func (c *Client) tableData(ctx context.Context, tableID, municipality string, nLast int) any {
	matched, err := c.matchingSeries(ctx, tableID, municipality)
	if err != nil {
		c.logger.Warn("ine table fetch failed", "table", tableID, "error", err)
		return map[string]any{"error": err.Error()}
	}

	data := make(map[string]any, len(matched))
	for _, s := range matched {
		values, err := c.seriesData(ctx, s.COD, nLast)
		if err != nil {
			data[s.Nombre] = map[string]any{"error": fmt.Sprintf("fetch series data: %v", err)}
			continue
		}
		data[s.Nombre] = values
	}
	return data
}

// matchingSeries fetches a table's series list and filters it down to the
// first seriesPerTable entries matching the municipality.
func (c *Client) matchingSeries(ctx context.Context, tableID, municipality string) ([]series, error) {
	var all []series
	u := fmt.Sprintf("%s/SERIES_TABLA/%s", c.baseURL, tableID)
	if err := c.getJSON(ctx, u, &all); err != nil {
		return nil, err
	}

	matched := make([]series, 0, seriesPerTable)
	for _, s := range all {
		if s.COD == "" || s.Nombre == "" {
			continue
		}
		if !MatchesMunicipality(s.Nombre, municipality) {
			continue
		}
		matched = append(matched, s)
		if len(matched) == seriesPerTable {
			break
		}
	}
	return matched, nil
}

// seriesData fetches the latest nLast values of one series.
func (c *Client) seriesData(ctx context.Context, code string, nLast int) (any, error) {
	var values any
	u := fmt.Sprintf("%s/DATOS_SERIE/%s?nult=%d", c.baseURL, code, nLast)
	if err := c.getJSON(ctx, u, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s: status %d: %s", fullURL, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode %s: %w", fullURL, err)
	}
	return nil
}
