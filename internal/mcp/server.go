package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/codrag/codrag-mcp/internal/common"
	"github.com/codrag/codrag-mcp/internal/config"
	"github.com/codrag/codrag-mcp/internal/tools"
)

// NewServer creates an MCP server advertising the CoDRAG tools.
func NewServer(cfg *config.Config, reg *tools.Registry, logger *common.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		cfg.Server.Name,
		config.GetVersion(),
		server.WithToolCapabilities(true),
	)

	count := RegisterTools(s, reg, logger)

	logger.Info().
		Int("tools", count).
		Str("api_url", cfg.API.BaseURL).
		Int("timeout_ms", cfg.API.TimeoutMS).
		Msg("MCP server initialized")

	return s
}
