// Package server exposes the dashboard and its control endpoints over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sahan-field/surveyqc/internal/orchestrator"
	"github.com/sahan-field/surveyqc/internal/report"
)

// Server serves the rendered dashboard and the refresh API.
type Server struct {
	orch *orchestrator.Orchestrator
	// baseCtx outlives individual requests, so a triggered refresh keeps
	// running after the client that asked for it disconnects.
	baseCtx context.Context
}

// New builds a server around the orchestrator. baseCtx bounds background
// refreshes and is normally the process lifetime context.
func New(orch *orchestrator.Orchestrator, baseCtx context.Context) *Server {
	return &Server{orch: orch, baseCtx: baseCtx}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleDashboard)
	r.Get("/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/update", s.handleUpdate)
	r.Get("/download/report", s.handleDownload)
	return r
}

// handleDashboard serves the current rendered page. Before the first build
// completes it returns a self-refreshing interim page with 503 so pollers
// can tell the dashboard is not ready yet.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	html := s.orch.HTML()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if html == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(generatingPage))
		return
	}
	_, _ = w.Write(html)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Status())
}

// handleUpdate triggers a background refresh. A refresh already in flight is
// reported as a conflict, never queued.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	runID, err := s.orch.TriggerRefresh(s.baseCtx)
	if err != nil {
		if eris.Is(err, orchestrator.ErrBusy) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"status": "busy",
				"error":  "refresh already in progress",
			})
			return
		}
		zap.L().Error("trigger refresh failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"run_id": runID,
	})
}

// handleDownload streams the current report as an XLSX workbook.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	doc := s.orch.Document()
	if doc == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "report not generated yet"})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="survey_quality_report.xlsx"`)
	if err := report.WriteWorkbook(doc, w); err != nil {
		// Headers are gone at this point; just log.
		zap.L().Error("workbook export failed", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}

const generatingPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="10">
<title>Survey Data Quality Dashboard</title>
<style>
  body { font-family: "Segoe UI", Roboto, sans-serif; background: #f5f7fa; color: #1f2d3d;
         display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
  .card { background: #fff; border: 1px solid #e3e8ee; border-radius: 8px; padding: 40px 48px; text-align: center; }
  h1 { font-size: 1.2rem; margin: 0 0 8px; }
  p { color: #6b7a8c; margin: 0; }
</style>
</head>
<body>
<div class="card">
  <h1>Generating dashboard&hellip;</h1>
  <p>The first report is being built. This page refreshes automatically.</p>
</div>
</body>
</html>
`
