// Package api serves analyses and the stored run history over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yasi-python/abtest/pkg/analysis"
	"github.com/yasi-python/abtest/pkg/dataset"
	"github.com/yasi-python/abtest/pkg/logger"
	"github.com/yasi-python/abtest/pkg/metrics"
	"github.com/yasi-python/abtest/pkg/stats"
	"github.com/yasi-python/abtest/pkg/storage"
)

// maxBody caps an analyze request.
const maxBody = 32 << 20

// Store is the subset of storage.DB the server needs.
type Store interface {
	PutRun(storage.RunRecord) error
	GetRun(id string) (*storage.RunRecord, error)
	ListRuns(limit int) ([]storage.RunRecord, error)
	DeleteRun(id string) error
}

type Server struct {
	Store       Store
	Analyzer    *analysis.Analyzer
	Defaults    analysis.Config
	MetricsPath string
	HealthzPath string
	log         *logger.Logger
	reqInFlight atomic.Int64
}

// New builds a server. store may be nil, in which case runs are not kept and
// the history endpoints answer 503.
func New(store Store, defaults analysis.Config, log *logger.Logger, metricsPath, healthzPath string) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		Store:       store,
		Analyzer:    analysis.New(log),
		Defaults:    defaults,
		MetricsPath: metricsPath,
		HealthzPath: healthzPath,
		log:         log,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.inFlight)

	r.Get(s.HealthzPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle(s.MetricsPath, promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Delete("/runs/{id}", s.handleDeleteRun)
	})
	return r
}

func (s *Server) inFlight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.reqInFlight.Add(1)
		defer s.reqInFlight.Add(-1)
		next.ServeHTTP(w, r)
	})
}

// InFlight reports how many requests are being served.
func (s *Server) InFlight() int64 { return s.reqInFlight.Load() }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Routes(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

type analyzeRequest struct {
	Metric       string               `json:"metric"`
	Alpha        float64              `json:"alpha"`
	ControlLabel string               `json:"control_label"`
	TestLabel    string               `json:"test_label"`
	AllMetrics   bool                 `json:"all_metrics"`
	Control      []map[string]float64 `json:"control"`
	Test         []map[string]float64 `json:"test"`
}

type analyzeResponse struct {
	OK      bool               `json:"ok"`
	ID      string             `json:"id,omitempty"`
	Reports []*analysis.Report `json:"reports"`
}

func (s *Server) config(req analyzeRequest) analysis.Config {
	cfg := s.Defaults
	if req.Metric != "" {
		cfg.Metric = dataset.CanonicalField(req.Metric)
	}
	if req.Alpha != 0 {
		cfg.Alpha = req.Alpha
	}
	if req.ControlLabel != "" {
		cfg.ControlLabel = req.ControlLabel
	}
	if req.TestLabel != "" {
		cfg.TestLabel = req.TestLabel
	}
	return cfg
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errMsg("bad json: "+err.Error(), ""))
		return
	}
	cfg := s.config(req)
	if err := cfg.Validate(); err != nil {
		sendJSON(w, http.StatusUnprocessableEntity, errMsg(err.Error(), "config"))
		return
	}
	control, err := dataset.GroupFromRecords(cfg.ControlLabel, req.Control)
	if err != nil {
		sendJSON(w, http.StatusUnprocessableEntity, errMsg(err.Error(), "input"))
		return
	}
	test, err := dataset.GroupFromRecords(cfg.TestLabel, req.Test)
	if err != nil {
		sendJSON(w, http.StatusUnprocessableEntity, errMsg(err.Error(), "input"))
		return
	}
	table, err := dataset.Combine(test, control)
	if err != nil {
		sendJSON(w, http.StatusUnprocessableEntity, errMsg(err.Error(), "input"))
		return
	}

	var reports []*analysis.Report
	if req.AllMetrics {
		reports, err = s.Analyzer.RunAll(r.Context(), cfg, table, table.Fields)
	} else {
		var rep *analysis.Report
		rep, err = s.Analyzer.Run(r.Context(), cfg, table)
		reports = []*analysis.Report{rep}
	}
	if err != nil {
		code, stage := classify(err)
		sendJSON(w, code, errMsg(err.Error(), stage))
		return
	}

	resp := analyzeResponse{OK: true, Reports: reports}
	if s.Store != nil {
		run := storage.NewRun("inline", "inline", cfg, reports)
		if err := s.Store.PutRun(run); err != nil {
			s.log.Error("run_store_failed", "err", err.Error())
			sendJSON(w, http.StatusInternalServerError, errMsg(err.Error(), "storage"))
			return
		}
		metrics.RunsStored.Inc()
		resp.ID = run.ID
	}
	sendJSON(w, http.StatusOK, resp)
}

// classify maps a pipeline error to a status code and the stage it halted at.
func classify(err error) (int, string) {
	stage := ""
	var se *analysis.StageError
	if errors.As(err, &se) {
		stage = string(se.Stage)
	}
	switch {
	case errors.Is(err, analysis.ErrInvalidConfig):
		return http.StatusUnprocessableEntity, "config"
	case errors.Is(err, dataset.ErrSchemaMismatch),
		errors.Is(err, dataset.ErrUnknownField),
		errors.Is(err, dataset.ErrBadValue),
		errors.Is(err, stats.ErrInsufficientSample),
		errors.Is(err, stats.ErrDegenerateSample):
		return http.StatusUnprocessableEntity, stage
	}
	return http.StatusInternalServerError, stage
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		sendJSON(w, http.StatusServiceUnavailable, errMsg("run history disabled", ""))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			sendJSON(w, http.StatusBadRequest, errMsg("bad limit", ""))
			return
		}
		limit = n
	}
	runs, err := s.Store.ListRuns(limit)
	if err != nil {
		sendJSON(w, http.StatusInternalServerError, errMsg(err.Error(), "storage"))
		return
	}
	sendJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		sendJSON(w, http.StatusServiceUnavailable, errMsg("run history disabled", ""))
		return
	}
	run, err := s.Store.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		sendJSON(w, storageCode(err), errMsg(err.Error(), "storage"))
		return
	}
	sendJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		sendJSON(w, http.StatusServiceUnavailable, errMsg("run history disabled", ""))
		return
	}
	if err := s.Store.DeleteRun(chi.URLParam(r, "id")); err != nil {
		sendJSON(w, storageCode(err), errMsg(err.Error(), "storage"))
		return
	}
	sendJSON(w, http.StatusOK, okMsg("deleted"))
}

func storageCode(err error) int {
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func okMsg(m string) map[string]any { return map[string]any{"ok": true, "message": m} }

func errMsg(m, stage string) map[string]any {
	out := map[string]any{"ok": false, "error": m}
	if stage != "" {
		out["stage"] = stage
	}
	return out
}
