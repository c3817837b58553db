// Command lateral-mcp exposes a running lateral-d over the Model Context
// Protocol on stdio.
package main

import (
	"flag"
	"log"

	"github.com/glottolab/lateral/pkg/mcp"
)

func main() {
	apiURL := flag.String("api", "http://127.0.0.1:8090", "Base URL of the lateral-d API")
	flag.Parse()

	s := mcp.NewServer(*apiURL)
	if err := s.Serve(); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}
