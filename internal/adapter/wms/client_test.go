package wms

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuantia/risk-service/internal/domain"
	"github.com/cuantia/risk-service/internal/observability"
)

func testClient(timeout time.Duration) *Client {
	return NewClient(timeout,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting())
}

func TestFetchAny_JSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	result := testClient(5 * time.Second).FetchAny(context.Background(), []string{srv.URL})

	require.False(t, result.Failed())
	obj := result.Object()
	require.NotNil(t, obj)
	assert.Equal(t, "FeatureCollection", obj["type"])
}

func TestFetchAny_NonJSONBodyIsRawText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("GRAY_INDEX = 75.5"))
	}))
	defer srv.Close()

	result := testClient(5 * time.Second).FetchAny(context.Background(), []string{srv.URL})

	require.False(t, result.Failed(), "a non-JSON 2xx body is never an error")
	assert.Equal(t, "GRAY_INDEX = 75.5", result.Raw)
	assert.Nil(t, result.Value)
}

func TestFetchAny_FallbackOnStatusError(t *testing.T) {
	var primaryHits atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer fallback.Close()

	result := testClient(5*time.Second).FetchAny(context.Background(),
		[]string{primary.URL, fallback.URL})

	require.False(t, result.Failed())
	assert.Equal(t, int32(1), primaryHits.Load())
	assert.Equal(t, map[string]any{"ok": true}, result.Object())
}

func TestFetchAny_AllURLsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	result := testClient(5*time.Second).FetchAny(context.Background(),
		[]string{srv.URL, "http://127.0.0.1:1/unreachable"})

	require.True(t, result.Failed())
	// The last attempted URL's error wins.
	assert.Contains(t, result.Err, "127.0.0.1:1")
}

func TestFetchAny_NoURLs(t *testing.T) {
	result := testClient(time.Second).FetchAny(context.Background(), nil)
	assert.True(t, result.Failed())
}

func TestFetchAll_DisjointSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("LAYERS") {
		case "coastal.layer":
			_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{}}]}`))
		case "erosion.layer":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("value=12"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	sources := []domain.HazardSource{
		{Family: domain.FamilyCoastal, BaseURL: srv.URL, Layer: "coastal.layer", CRS: "CRS:84", InfoFormat: "application/json"},
		{Family: domain.FamilyErosionPot, BaseURL: srv.URL, Layer: "erosion.layer", CRS: "CRS:84", InfoFormat: "text/plain"},
		{Family: domain.FamilySeismic, BaseURL: srv.URL, Layer: "missing.layer", CRS: "CRS:84", InfoFormat: "application/json"},
	}

	results := testClient(5*time.Second).FetchAll(context.Background(), sources, domain.BoundingBox{})

	require.Len(t, results, 3)
	assert.NotNil(t, results[domain.FamilyCoastal].Features())
	assert.Equal(t, "value=12", results[domain.FamilyErosionPot].Raw)
	assert.True(t, results[domain.FamilySeismic].Failed(),
		"a failing source must still occupy its slot")
}

func TestFetchAll_SlowSourceDoesNotBlockOthers(t *testing.T) {
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer fast.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer slow.Close()

	sources := []domain.HazardSource{
		{Family: domain.FamilyFire, BaseURL: fast.URL, Layer: "a", CRS: "CRS:84", InfoFormat: "application/json"},
		{Family: domain.FamilySeismic, BaseURL: slow.URL, Layer: "b", CRS: "CRS:84", InfoFormat: "application/json"},
	}

	// Timeout shorter than the slow source: the fast one still succeeds and
	// the slow one degrades to a fetch error.
	results := testClient(200*time.Millisecond).FetchAll(context.Background(), sources, domain.BoundingBox{})

	assert.False(t, results[domain.FamilyFire].Failed())
	assert.True(t, results[domain.FamilySeismic].Failed())
}
