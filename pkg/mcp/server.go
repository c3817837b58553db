// Package mcp adapts the lateral daemon to the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/glottolab/lateral/pkg/client"
)

// Server exposes analysis runs and borrowing candidates over MCP stdio.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"lateral",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// lateral://runs
	s.mcpServer.AddResource(mcp.NewResource(
		"lateral://runs",
		"Analysis Runs",
		mcp.WithResourceDescription("Recent gain-loss reconciliation runs with their statistics"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadRuns)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"run_analysis",
		mcp.WithDescription("Reconcile a cognate character matrix against a phylogenetic tree and detect likely borrowings."),
		mcp.WithString("newick", mcp.Required(), mcp.Description("The reference tree in Newick format, e.g. '((A,B),C);'")),
		mcp.WithString("characters", mcp.Required(), mcp.Description("Characters as 'id=taxon1,taxon2;id2=taxon2,taxon3' listing the taxa each character is present in")),
		mcp.WithString("dataset", mcp.Description("Dataset label (default 'mcp')")),
		mcp.WithNumber("gain_weight", mcp.Description("Cost of an independent innovation (default 2)")),
		mcp.WithNumber("loss_weight", mcp.Description("Cost of a loss (default 1)")),
	), s.handleRunAnalysis)

	s.mcpServer.AddTool(mcp.NewTool(
		"top_borrowings",
		mcp.WithDescription("Return the highest-support lateral borrowing candidates of a finished run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("The run to inspect")),
		mcp.WithNumber("limit", mcp.Description("Maximum candidates to return (default 10)")),
	), s.handleTopBorrowings)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"lateral-aware",
		mcp.WithPromptDescription("Provides context about gain-loss reconciliation concepts (characters, scenarios, lateral edges)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadRuns(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	runs, err := s.apiClient.ListRuns(ctx, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal runs: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleRunAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	newick := mcp.ParseString(request, "newick", "")
	charSpec := mcp.ParseString(request, "characters", "")
	dataset := mcp.ParseString(request, "dataset", "mcp")
	gainWeight := mcp.ParseFloat64(request, "gain_weight", 0)
	lossWeight := mcp.ParseFloat64(request, "loss_weight", 0)

	chars, err := parseCharacters(charSpec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid characters: %v", err)), nil
	}

	sub := client.RunSubmission{
		Dataset:    dataset,
		Newick:     newick,
		Characters: chars,
	}
	if gainWeight > 0 || lossWeight > 0 {
		cfg := defaultWireConfig()
		if gainWeight > 0 {
			cfg.GainWeight = gainWeight
		}
		if lossWeight > 0 {
			cfg.LossWeight = lossWeight
		}
		sub.Config = &cfg
	}

	resp, err := s.apiClient.Submit(ctx, sub)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\nCharacters: %d\nTotal cost: %g\nMax origins: %d\nBorrowing candidates: %d\n",
		resp.Run.ID, resp.Run.Stats.Characters, resp.Run.Stats.TotalCost, resp.Run.Stats.MaxOrigins, len(resp.Lateral))
	for i, e := range resp.Lateral {
		if i == 5 {
			fmt.Fprintf(&b, "... and %d more (use top_borrowings)\n", len(resp.Lateral)-5)
			break
		}
		fmt.Fprintf(&b, "  %s <-> %s support=%.3f via %s\n", e.NodeA, e.NodeB, e.Support, strings.Join(e.Characters, ","))
	}
	for _, w := range resp.Run.Warnings {
		fmt.Fprintf(&b, "warning (%s): %s\n", w.CharacterID, w.Message)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleTopBorrowings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := mcp.ParseString(request, "run_id", "")
	limit := int(mcp.ParseFloat64(request, "limit", 10))
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	edges, err := s.apiClient.LateralEdges(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	if len(edges) == 0 {
		return mcp.NewToolResultText("No borrowing candidates for this run."), nil
	}
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}

	var b strings.Builder
	for i, e := range edges {
		fmt.Fprintf(&b, "%d. %s <-> %s support=%.3f distance=%d characters=%s",
			i+1, e.NodeA, e.NodeB, e.Support, e.Distance, strings.Join(e.Characters, ","))
		if e.SameGroup {
			fmt.Fprintf(&b, " group=%s", e.Group)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "lateral-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are interacting with lateral, a gain-loss reconciliation engine for detecting lexical borrowing.

Concepts:
- Taxon: A contemporary language, a leaf of the reference tree.
- Character: A cognate set's presence/absence pattern across the taxa.
- Scenario: A minimal-cost explanation of a pattern as gain and loss events on tree edges.
- Origins: Independent gains a scenario needs; many origins suggest borrowing rather than inheritance.
- Lateral edge: A proposed borrowing connection between two tree nodes, ranked by support.

Use 'run_analysis' to reconcile a tree and character matrix, then 'top_borrowings' to inspect the strongest candidates of a run.
High loss weights make multiple origins more likely and the borrowing search more sensitive.
`

	return mcp.NewGetPromptResult(
		"lateral-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}

// parseCharacters decodes the compact "id=taxonA,taxonB;id2=taxonB" form.
func parseCharacters(spec string) ([]client.Character, error) {
	var out []client.Character
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, taxaList, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q is not id=taxa", part)
		}
		var taxa []string
		for _, taxon := range strings.Split(taxaList, ",") {
			if taxon = strings.TrimSpace(taxon); taxon != "" {
				taxa = append(taxa, taxon)
			}
		}
		if id = strings.TrimSpace(id); id == "" || len(taxa) == 0 {
			return nil, fmt.Errorf("entry %q has an empty id or taxa list", part)
		}
		out = append(out, client.Character{ID: id, Taxa: taxa})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no characters given")
	}
	return out, nil
}

func defaultWireConfig() client.Config {
	return client.Config{
		GainWeight:      2,
		LossWeight:      1,
		TransferCost:    0.5,
		OriginThreshold: 1,
		TieCap:          1000,
		Seed:            1,
		GroupBias:       1,
	}
}
