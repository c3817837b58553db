// Package client is the Go SDK for the lateral daemon's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to a lateral daemon.
type Client struct {
	endpoint string
	http     *http.Client
	backoff  BackoffStrategy
	retries  int
}

// NewClient creates a new client.
// endpoint defaults to "http://127.0.0.1:8090" if empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8090"
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: DefaultBackoff(),
		retries: 3,
	}
}

// Submit runs a full analysis on the daemon and returns the persisted run
// header plus the ranked borrowing candidates. Not retried: a slow run
// would be resubmitted as a second run.
func (c *Client) Submit(ctx context.Context, sub RunSubmission) (SubmitResponse, error) {
	if sub.Newick == "" || len(sub.Characters) == 0 {
		return SubmitResponse{}, fmt.Errorf("invalid submission: missing tree or characters")
	}

	body, err := json.Marshal(sub)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("failed to marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/v1/runs", bytes.NewReader(body))
	if err != nil {
		return SubmitResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return SubmitResponse{}, fmt.Errorf("rejected submission: %s", data)
	}
	if resp.StatusCode != http.StatusCreated {
		return SubmitResponse{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var out SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SubmitResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// Health checks the daemon.
func (c *Client) Health(ctx context.Context) (Status, error) {
	var out Status
	if err := c.getJSON(ctx, "/v1/health", &out); err != nil {
		return Status{}, err
	}
	return out, nil
}

// ListRuns returns run headers, newest first.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	path := "/v1/runs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Runs []RunInfo `json:"runs"`
	}
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Runs, nil
}

// GetRun fetches one run header.
func (c *Client) GetRun(ctx context.Context, id string) (RunInfo, error) {
	var out RunInfo
	if err := c.getJSON(ctx, "/v1/runs/"+url.PathEscape(id), &out); err != nil {
		return RunInfo{}, err
	}
	return out, nil
}

// EdgeStats fetches the per-edge gain/loss scores of a run.
func (c *Client) EdgeStats(ctx context.Context, id string) ([]EdgeStat, error) {
	var out struct {
		Edges []EdgeStat `json:"edges"`
	}
	if err := c.getJSON(ctx, "/v1/runs/"+url.PathEscape(id)+"/edges", &out); err != nil {
		return nil, err
	}
	return out.Edges, nil
}

// LateralEdges fetches the ranked borrowing candidates of a run.
func (c *Client) LateralEdges(ctx context.Context, id string) ([]LateralEdge, error) {
	var out struct {
		Lateral []LateralEdge `json:"lateral"`
	}
	if err := c.getJSON(ctx, "/v1/runs/"+url.PathEscape(id)+"/lateral", &out); err != nil {
		return nil, err
	}
	return out.Lateral, nil
}

// CharacterResults fetches the per-character summaries of a run.
func (c *Client) CharacterResults(ctx context.Context, id string) ([]CharacterSummary, error) {
	var out struct {
		Characters []CharacterSummary `json:"characters"`
	}
	if err := c.getJSON(ctx, "/v1/runs/"+url.PathEscape(id)+"/characters", &out); err != nil {
		return nil, err
	}
	return out.Characters, nil
}

// Report downloads a rendered report for a run.
func (c *Client) Report(ctx context.Context, reportType, runID string, limit int) ([]byte, error) {
	q := url.Values{}
	q.Set("type", reportType)
	q.Set("run", runID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.getWithRetry(ctx, "/v1/reports?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// getJSON performs a GET and decodes the JSON body. Transient failures
// (network errors, 5xx) are retried with backoff.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.getWithRetry(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("not found: %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) getWithRetry(ctx context.Context, path string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff.Next(attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("upstream error: %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.retries, lastErr)
}
