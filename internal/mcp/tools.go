// Package mcp exposes the CoDRAG tool registry as an MCP server.
package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/codrag/codrag-mcp/internal/common"
	"github.com/codrag/codrag-mcp/internal/tools"
)

// BuildMCPTool converts a tool descriptor into an mcp.Tool carrying the
// descriptor's JSON Schema verbatim.
func BuildMCPTool(d tools.Descriptor) mcp.Tool {
	schema, err := json.Marshal(d.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}
	tool := mcp.NewToolWithRawSchema(d.Name, d.Description, schema)
	tool.Annotations.Title = d.Title
	tool.Annotations.ReadOnlyHint = boolPtr(d.ReadOnly)
	tool.Annotations.DestructiveHint = boolPtr(false)
	tool.Annotations.OpenWorldHint = boolPtr(false)
	return tool
}

// RegisterTools registers every tool in reg on s and returns the count.
func RegisterTools(s *server.MCPServer, reg *tools.Registry, logger *common.Logger) int {
	descs := reg.Descriptors()
	for _, d := range descs {
		s.AddTool(BuildMCPTool(d), ToolHandler(reg, d, logger))
	}
	return len(descs)
}

func boolPtr(b bool) *bool { return &b }
