// Package server exposes the audit engine and the report history over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spider-crawler/siteaudit/internal/analyzer"
	"github.com/spider-crawler/siteaudit/internal/config"
	"github.com/spider-crawler/siteaudit/internal/engine"
	"github.com/spider-crawler/siteaudit/internal/report"
	"github.com/spider-crawler/siteaudit/internal/storage"
)

// ErrHistoryDisabled is returned by history endpoints when no database is configured.
var ErrHistoryDisabled = errors.New("report history is disabled")

// Auditor runs an analysis.
type Auditor interface {
	Analyze(ctx context.Context, req engine.Request) (*report.Report, error)
}

// History stores and queries past reports.
type History interface {
	SaveReport(ctx context.Context, r *report.Report) error
	GetReport(ctx context.Context, id string) (*report.Report, error)
	ListReports(ctx context.Context, opts storage.ListOptions) ([]*storage.ReportRecord, error)
	GetStats(ctx context.Context) (*storage.Stats, error)
	IssueSummary(ctx context.Context, limit int) ([]*storage.IssueCount, error)
}

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	URL        string   `json:"url"`
	Keywords   []string `json:"keywords,omitempty"`
	Categories []string `json:"categories,omitempty"`
	// Go duration string such as "30s"
	Timeout string `json:"timeout,omitempty"`
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	*storage.Stats
	TopIssues []*storage.IssueCount `json:"top_issues"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP API.
type Server struct {
	cfg     config.ServerConfig
	auditor Auditor
	history History
	router  chi.Router
	logger  *zap.Logger
}

// New creates a server. history may be nil, which disables the history endpoints.
func New(cfg config.ServerConfig, auditor Auditor, history History, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		auditor: auditor,
		history: history,
		router:  chi.NewRouter(),
		logger:  logger.Named("server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{id}", s.handleGetReport)
		r.Get("/reports/{id}/export", s.handleExportReport)
		r.Get("/stats", s.handleStats)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := s.HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down", zap.Duration("timeout", timeout))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	var body AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req := engine.Request{URL: body.URL, Keywords: body.Keywords}

	categories, err := analyzer.ParseCategories(body.Categories)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Categories = categories

	if body.Timeout != "" {
		d, err := time.ParseDuration(body.Timeout)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid timeout %q", body.Timeout))
			return
		}
		if limit := s.cfg.MaxAnalyzeTimeout; limit > 0 && d > limit {
			d = limit
		}
		req.Timeout = d
	}

	rep, err := s.auditor.Analyze(r.Context(), req)
	switch {
	case errors.Is(err, engine.ErrInvalidTarget), errors.Is(err, analyzer.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Warn("analysis failed", zap.String("url", body.URL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.history != nil {
		if err := s.history.SaveReport(r.Context(), rep); err != nil {
			// the report is still returned; only the history entry is lost
			s.logger.Error("saving report", zap.String("report_id", rep.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrHistoryDisabled.Error())
		return
	}

	q := r.URL.Query()
	opts := storage.ListOptions{URL: q.Get("url"), Limit: 50}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		opts.Limit = limit
	}
	opts.Latest, _ = strconv.ParseBool(q.Get("latest"))

	records, err := s.history.ListReports(r.Context(), opts)
	if err != nil {
		s.logger.Warn("listing reports", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleExportReport serves a stored report as an xlsx or csv download.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	format := report.FormatXLSX
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := report.ParseFormat(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}

	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}

	dir, err := os.MkdirTemp("", "siteaudit-export-")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.RemoveAll(dir)

	name := fmt.Sprintf("report-%s.%s", rep.ID, format)
	path := filepath.Join(dir, name)
	if err := report.NewExporter(&report.ExportOptions{Format: format, FilePath: path}).Export(rep); err != nil {
		s.logger.Warn("exporting report", zap.String("report_id", rep.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (*report.Report, bool) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrHistoryDisabled.Error())
		return nil, false
	}

	id := chi.URLParam(r, "id")
	rep, err := s.history.GetReport(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	case err != nil:
		s.logger.Warn("loading report", zap.String("report_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return rep, true
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrHistoryDisabled.Error())
		return
	}

	stats, err := s.history.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	top, err := s.history.IssueSummary(r.Context(), 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Stats: stats, TopIssues: top})
}
