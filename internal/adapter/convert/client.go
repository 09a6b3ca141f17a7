// Package convert proxies document conversion to external collaborators:
// a PDF rasterizer and an HTML-to-PDF renderer. This service never renders
// anything itself, it only carries the request and the result.
package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuantia/risk-service/internal/observability"
)

// defaultDPI is applied when a rasterization request leaves the DPI unset.
const defaultDPI = 150

// PDFRequest asks the rasterizer to turn a base64 PDF into page images.
type PDFRequest struct {
	PDFBase64 string `json:"pdf_base64"`
	DPI       int    `json:"dpi"`
}

// PDFImages is the rasterizer's answer, one base64 JPEG per page.
type PDFImages struct {
	Success      bool     `json:"success"`
	PageCount    int      `json:"page_count"`
	ImagesBase64 []string `json:"images_base64"`
	Error        string   `json:"error,omitempty"`
}

// HTMLRequest asks the renderer to turn an HTML document into a PDF.
type HTMLRequest struct {
	HTML string `json:"html"`
}

// HTMLPDF is the renderer's answer.
type HTMLPDF struct {
	Success   bool   `json:"success"`
	PDFBase64 string `json:"pdf_base64,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Converter is what the HTTP layer needs from this package.
type Converter interface {
	PDFToImages(ctx context.Context, req PDFRequest) (PDFImages, error)
	HTMLToPDF(ctx context.Context, req HTMLRequest) (HTMLPDF, error)
}

// Client implements Converter against the two collaborator endpoints.
type Client struct {
	pdfRenderURL string
	htmlPDFURL   string
	httpClient   *http.Client
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewClient creates a conversion client. pdfRenderURL and htmlPDFURL are the
// full collaborator endpoints, each accepting a JSON POST.
func NewClient(pdfRenderURL, htmlPDFURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		pdfRenderURL: pdfRenderURL,
		htmlPDFURL:   htmlPDFURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// PDFToImages forwards a rasterization request. A collaborator answer with
// success=false is not an error here; only transport and protocol failures are.
func (c *Client) PDFToImages(ctx context.Context, req PDFRequest) (PDFImages, error) {
	if req.DPI == 0 {
		req.DPI = defaultDPI
	}

	var out PDFImages
	if err := c.post(ctx, "pdf2img", c.pdfRenderURL, req, &out); err != nil {
		return PDFImages{}, err
	}
	return out, nil
}

// HTMLToPDF forwards a rendering request.
func (c *Client) HTMLToPDF(ctx context.Context, req HTMLRequest) (HTMLPDF, error) {
	var out HTMLPDF
	if err := c.post(ctx, "html2pdf", c.htmlPDFURL, req, &out); err != nil {
		return HTMLPDF{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, kind, fullURL string, payload, into any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", kind, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", kind, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ConvertRequests.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("%s collaborator: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ConvertRequests.WithLabelValues(kind, "error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s collaborator: status %d: %s", kind, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		c.metrics.ConvertRequests.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("decode %s response: %w", kind, err)
	}

	c.metrics.ConvertRequests.WithLabelValues(kind, "success").Inc()
	return nil
}
