package tools

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is the MCP server version reported to clients.
var Version = "dev"

// NewServer creates the MCP server with the expert finder tools registered.
func NewServer(finder Finder) *server.MCPServer {
	s := server.NewMCPServer(
		"zendesk-sme-finder",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	findTool := NewFindExpertsTool(finder)
	s.AddTool(findTool.Definition(), findTool.Handle)

	return s
}
