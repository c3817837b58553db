package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func submission() RunSubmission {
	return RunSubmission{
		Dataset: "demo",
		Newick:  "((A,B),C);",
		Characters: []Character{
			{ID: "c1", Taxa: []string{"A", "C"}},
		},
	}
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/runs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req RunSubmission
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding submission: %v", err)
		}
		if req.Dataset != "demo" || len(req.Characters) != 1 {
			t.Errorf("submission = %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(SubmitResponse{
			Run:     RunInfo{ID: "run_1", Dataset: "demo"},
			Lateral: []LateralEdge{{NodeA: "A", NodeB: "C", Support: 0.5}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Submit(context.Background(), submission())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Run.ID != "run_1" || len(resp.Lateral) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestSubmit_Validation(t *testing.T) {
	c := NewClient("")
	if _, err := c.Submit(context.Background(), RunSubmission{}); err == nil {
		t.Error("empty submission accepted")
	}
}

func TestSubmit_BadRequestSurfacesDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_tree"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Submit(context.Background(), submission())
	if err == nil || !strings.Contains(err.Error(), "invalid_tree") {
		t.Errorf("err = %v, want invalid_tree details", err)
	}
}

func TestGetEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/health":
			json.NewEncoder(w).Encode(Status{Status: "ok"})
		case "/v1/runs":
			if r.URL.Query().Get("limit") != "5" {
				t.Errorf("limit = %q", r.URL.Query().Get("limit"))
			}
			json.NewEncoder(w).Encode(map[string]any{"runs": []RunInfo{{ID: "run_1"}}})
		case "/v1/runs/run_1":
			json.NewEncoder(w).Encode(RunInfo{ID: "run_1", Dataset: "demo"})
		case "/v1/runs/run_1/edges":
			json.NewEncoder(w).Encode(map[string]any{"edges": []EdgeStat{{Edge: "root", GainScore: 1}}})
		case "/v1/runs/run_1/lateral":
			json.NewEncoder(w).Encode(map[string]any{"lateral": []LateralEdge{{NodeA: "A", NodeB: "C"}}})
		case "/v1/runs/run_1/characters":
			json.NewEncoder(w).Encode(map[string]any{"characters": []CharacterSummary{{CharacterID: "c1"}}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	if st, err := c.Health(ctx); err != nil || st.Status != "ok" {
		t.Errorf("Health = %+v, %v", st, err)
	}
	if runs, err := c.ListRuns(ctx, 5); err != nil || len(runs) != 1 {
		t.Errorf("ListRuns = %v, %v", runs, err)
	}
	if run, err := c.GetRun(ctx, "run_1"); err != nil || run.Dataset != "demo" {
		t.Errorf("GetRun = %+v, %v", run, err)
	}
	if edges, err := c.EdgeStats(ctx, "run_1"); err != nil || len(edges) != 1 {
		t.Errorf("EdgeStats = %v, %v", edges, err)
	}
	if lat, err := c.LateralEdges(ctx, "run_1"); err != nil || len(lat) != 1 {
		t.Errorf("LateralEdges = %v, %v", lat, err)
	}
	if chars, err := c.CharacterResults(ctx, "run_1"); err != nil || len(chars) != 1 {
		t.Errorf("CharacterResults = %v, %v", chars, err)
	}

	if _, err := c.GetRun(ctx, "missing"); err == nil {
		t.Error("missing run did not error")
	}
}

func TestReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/reports" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("type") != "lateral" || q.Get("run") != "run_1" || q.Get("limit") != "10" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte("rank,node_a,node_b\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	data, err := c.Report(context.Background(), "lateral", "run_1", 10)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !strings.HasPrefix(string(data), "rank,") {
		t.Errorf("report = %q", data)
	}
}

func TestGetRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Status{Status: "ok"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.backoff = &ExponentialBackoff{Base: time.Millisecond, Max: time.Millisecond, Factor: 1}

	st, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if st.Status != "ok" || calls.Load() != 2 {
		t.Errorf("status = %+v after %d calls", st, calls.Load())
	}
}

func TestGetGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.backoff = &ExponentialBackoff{Base: time.Millisecond, Max: time.Millisecond, Factor: 1}

	if _, err := c.Health(context.Background()); err == nil {
		t.Error("persistent 5xx did not error")
	}
}
