package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glottolab/lateral/pkg/engine"
	"github.com/glottolab/lateral/pkg/matrix"
	"github.com/glottolab/lateral/pkg/reports"
	"github.com/glottolab/lateral/pkg/store"
	"github.com/glottolab/lateral/pkg/tree"
)

// Context keys
type contextKey string

const traceIDKey contextKey = "trace_id"

// StoreInterface is the persistence surface the server needs; it enables
// mocking in tests.
type StoreInterface interface {
	SaveResult(ctx context.Context, id, dataset string, cfg engine.Config, res *engine.Result) error
	GetRun(ctx context.Context, id string) (*store.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error)
	EdgeStats(ctx context.Context, runID string) ([]engine.EdgeStat, error)
	LateralEdges(ctx context.Context, runID string) ([]engine.LateralEdge, error)
	CharacterResults(ctx context.Context, runID string) ([]store.CharacterRow, error)
	DeleteRun(ctx context.Context, id string) error
}

// ResultCache lets the server skip recomputation of an identical
// submission. Nil disables caching.
type ResultCache interface {
	Lookup(ctx context.Context, t *tree.Tree, m *matrix.Matrix, cfg engine.Config) (*engine.Result, bool)
	Store(ctx context.Context, t *tree.Tree, m *matrix.Matrix, cfg engine.Config, res *engine.Result)
}

// Server encapsulates the HTTP API server
type Server struct {
	store  StoreInterface
	cache  ResultCache
	server *http.Server
}

// NewServer creates a new API server instance
func NewServer(st StoreInterface, addr string) *Server {
	mux := http.NewServeMux()

	s := &Server{store: st}

	mux.HandleFunc("/v1/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/runs", s.handleRuns)
	mux.HandleFunc("/v1/runs/", s.handleRunByID)
	mux.HandleFunc("/v1/reports", s.handleReports)

	// Middleware: Logging, Panic Recovery, Security Headers
	handler := withLogging(withRecovery(withSecureHeaders(mux)))

	if addr == "" {
		addr = ":8090"
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return s
}

// SetResultCache enables result caching for identical submissions.
func (s *Server) SetResultCache(c ResultCache) {
	s.cache = c
}

// Handler exposes the configured handler chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the HTTP server (blocking)
func (s *Server) Start() error {
	fmt.Printf(`{"level":"info","msg":"server_starting","addr":"%s"}`+"\n", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	fmt.Println(`{"level":"info","msg":"server_stopping"}`)
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmitRun(w, r)
	case http.MethodGet:
		s.handleListRuns(w, r)
	default:
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json_body"}`, http.StatusBadRequest)
		return
	}
	if req.Newick == "" || len(req.Characters) == 0 {
		http.Error(w, `{"error":"missing_required_fields"}`, http.StatusBadRequest)
		return
	}
	if req.Dataset == "" {
		req.Dataset = "inline"
	}

	t, err := tree.ParseNewick(req.Newick)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid_tree","details":"%v"}`, err), http.StatusBadRequest)
		return
	}

	chars := make([]matrix.Character, 0, len(req.Characters))
	for _, spec := range req.Characters {
		present := make(map[string]bool, len(spec.Taxa))
		for _, taxon := range spec.Taxa {
			present[taxon] = true
		}
		chars = append(chars, matrix.Character{ID: spec.ID, Present: present, Weight: spec.Weight})
	}
	m, err := matrix.New(chars)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid_characters","details":"%v"}`, err), http.StatusBadRequest)
		return
	}
	if len(req.Groups) > 0 {
		m.SetGroups(req.Groups)
	}

	cfg := engine.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}

	var (
		res    *engine.Result
		cached bool
	)
	if s.cache != nil {
		res, cached = s.cache.Lookup(r.Context(), t, m, cfg)
	}
	if res == nil {
		res, err = engine.Run(r.Context(), t, m, cfg)
		if err != nil {
			var iwe *engine.InvalidWeightError
			var ute *matrix.UnknownTaxonError
			if errors.As(err, &iwe) || errors.As(err, &ute) {
				http.Error(w, fmt.Sprintf(`{"error":"invalid_run","details":"%v"}`, err), http.StatusBadRequest)
				return
			}
			fmt.Printf(`{"level":"error","msg":"run_failed","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
			http.Error(w, `{"error":"run_failed"}`, http.StatusInternalServerError)
			return
		}
		if s.cache != nil {
			s.cache.Store(r.Context(), t, m, cfg, res)
		}
	}

	runID := generateRunID()
	if err := s.store.SaveResult(r.Context(), runID, req.Dataset, cfg, res); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_persist_run","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"persistence_failed"}`, http.StatusInternalServerError)
		return
	}

	rec, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_read_back_run","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"persistence_failed"}`, http.StatusInternalServerError)
		return
	}

	fmt.Printf(`{"level":"info","msg":"run_completed","trace_id":"%s","run_id":"%s","characters":%d,"lateral":%d,"cached":%t}`+"\n",
		getTraceID(r.Context()), runID, res.Stats.Characters, len(res.Lateral), cached)

	writeJSON(w, http.StatusCreated, RunResponse{Run: *rec, Lateral: res.Lateral, Cached: cached}, r.Context())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"error":"invalid_limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_list_runs","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"list_failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs}, r.Context())
}

func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, `{"error":"missing_run_id"}`, http.StatusBadRequest)
		return
	}
	runID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			rec, err := s.store.GetRun(r.Context(), runID)
			if err != nil {
				s.writeStoreError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rec, r.Context())
		case http.MethodDelete:
			if err := s.store.DeleteRun(r.Context(), runID); err != nil {
				s.writeStoreError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) != 2 || r.Method != http.MethodGet {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	switch parts[1] {
	case "edges":
		rows, err := s.store.EdgeStats(r.Context(), runID)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"edges": rows}, r.Context())
	case "lateral":
		edges, err := s.store.LateralEdges(r.Context(), runID)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lateral": edges}, r.Context())
	case "characters":
		chars, err := s.store.CharacterResults(r.Context(), runID)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"characters": chars}, r.Context())
	default:
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
	}
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	reportType := reports.ReportType(q.Get("type"))
	if reportType == "" {
		http.Error(w, `{"error":"missing_type"}`, http.StatusBadRequest)
		return
	}
	runID := q.Get("run")
	if runID == "" {
		http.Error(w, `{"error":"missing_run"}`, http.StatusBadRequest)
		return
	}

	params := reports.ReportParams{RunID: runID}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"error":"invalid_limit"}`, http.StatusBadRequest)
			return
		}
		params.Limit = n
	}

	gen, err := reports.NewReportGenerator(reportType, s.store)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid_report_type","details":"%v"}`, err), http.StatusBadRequest)
		return
	}

	reader, err := gen.Generate(r.Context(), params)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			http.Error(w, `{"error":"run_not_found"}`, http.StatusNotFound)
			return
		}
		fmt.Printf(`{"level":"error","msg":"failed_to_generate_report","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"report_generation_failed"}`, http.StatusInternalServerError)
		return
	}

	contentType := "text/csv"
	ext := "csv"
	if reportType == reports.ReportTypeStats {
		contentType = "text/plain"
		ext = "txt"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=report_%s_%s.%s", reportType, runID, ext))

	if _, err := io.Copy(w, reader); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_stream_report","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
	}
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, `{"error":"run_not_found"}`, http.StatusNotFound)
		return
	}
	fmt.Printf(`{"level":"error","msg":"store_error","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
	http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any, ctx context.Context) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_encode_response","trace_id":"%s","error":"%v"}`+"\n", getTraceID(ctx), err)
	}
}

func generateRunID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("run_%d", time.Now().UnixNano())
	}
	return "run_" + hex.EncodeToString(b)
}
