// Package httpapi exposes the service over HTTP: the risk assessment
// endpoint, the INE municipal lookup, the conversion proxies, and the
// operational routes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cuantia/risk-service/internal/adapter/convert"
	"github.com/cuantia/risk-service/internal/adapter/ine"
	"github.com/cuantia/risk-service/internal/domain"
	"github.com/cuantia/risk-service/internal/risk"
)

// defaultNLast is the number of latest values returned per INE series when
// the caller does not ask for more.
const defaultNLast = 3

// Assessor runs a risk assessment for one coordinate.
type Assessor interface {
	Assess(ctx context.Context, coord domain.Coordinate) *risk.Assessment
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server routes HTTP traffic to the assessment core and the collaborators.
type Server struct {
	httpServer *http.Server
	assessor   Assessor
	statistics ine.DataSource
	converter  convert.Converter // nil when the collaborators are not configured
	logger     *slog.Logger
}

// NewServer wires every route. converter may be nil; its endpoints then
// answer 503.
func NewServer(addr string, assessor Assessor, statistics ine.DataSource,
	converter convert.Converter, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      nil, // set below, after middleware wrapping
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		assessor:   assessor,
		statistics: statistics,
		converter:  converter,
		logger:     logger,
	}

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /risk/api/risk_clean", s.handleRiskClean)
	mux.HandleFunc("GET /ine/municipio/{municipio}", s.handleMunicipio)
	mux.HandleFunc("POST /pdf2img/convert", s.handlePDFToImages)
	mux.HandleFunc("POST /html2pdf/html-to-pdf", s.handleHTMLToPDF)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer.Handler = s.recover(s.logRequests(mux))
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "risk-service",
		"endpoints": map[string]string{
			"risk":     "/risk/api/risk_clean",
			"ine":      "/ine/municipio/{municipio}",
			"pdf2img":  "/pdf2img/convert",
			"html2pdf": "/html2pdf/html-to-pdf",
		},
	})
}

func (s *Server) handleRiskClean(w http.ResponseWriter, r *http.Request) {
	coord, err := parseCoordinate(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, s.assessor.Assess(r.Context(), coord))
}

func (s *Server) handleMunicipio(w http.ResponseWriter, r *http.Request) {
	municipality := r.PathValue("municipio")

	nLast := defaultNLast
	if raw := r.URL.Query().Get("n_last"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n_last must be a positive integer"})
			return
		}
		nLast = n
	}

	data, err := s.statistics.MunicipalData(r.Context(), municipality, nLast)
	if err != nil {
		s.logger.Error("ine lookup failed", "municipio", municipality, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"municipio": municipality,
		"datos":     data,
	})
}

func (s *Server) handlePDFToImages(w http.ResponseWriter, r *http.Request) {
	if s.converter == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false, "error": "pdf rasterizer not configured",
		})
		return
	}

	var req convert.PDFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON body"})
		return
	}
	if req.PDFBase64 == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "pdf_base64 is required"})
		return
	}

	out, err := s.converter.PDFToImages(r.Context(), req)
	if err != nil {
		s.logger.Error("pdf rasterization failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHTMLToPDF(w http.ResponseWriter, r *http.Request) {
	if s.converter == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false, "error": "html renderer not configured",
		})
		return
	}

	var req convert.HTMLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON body"})
		return
	}
	if req.HTML == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "html is required"})
		return
	}

	out, err := s.converter.HTMLToPDF(r.Context(), req)
	if err != nil {
		s.logger.Error("html rendering failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// parseCoordinate validates the lat/lon query parameters.
func parseCoordinate(latRaw, lonRaw string) (domain.Coordinate, error) {
	if latRaw == "" || lonRaw == "" {
		return domain.Coordinate{}, errors.New("lat and lon query parameters are required")
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return domain.Coordinate{}, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return domain.Coordinate{}, errors.New("lon must be a number")
	}
	if lat < -90 || lat > 90 {
		return domain.Coordinate{}, errors.New("lat must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return domain.Coordinate{}, errors.New("lon must be between -180 and 180")
	}
	return domain.Coordinate{Lat: lat, Lon: lon}, nil
}

// recover converts handler panics into a 500 instead of dropping the
// connection.
func (s *Server) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic", "path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			"method", r.Method, "path", r.URL.Path,
			"duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
