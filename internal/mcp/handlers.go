package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/codrag/codrag-mcp/internal/common"
	"github.com/codrag/codrag-mcp/internal/tools"
)

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// ToolHandler routes an MCP tool call for d through the registry.
// Failures are returned as error results, never as protocol errors.
func ToolHandler(reg *tools.Registry, d tools.Descriptor, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log := logger.WithCorrelationId(uuid.New().String())
		start := time.Now()

		res, err := reg.Call(ctx, d.Name, r.GetArguments())
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			var ve *tools.ValidationError
			if errors.As(err, &ve) {
				log.Warn().Str("tool", d.Name).Str("error", err.Error()).Msg("tool arguments rejected")
				return errorResult("Invalid arguments: " + ve.Detail()), nil
			}
			log.Error().Str("tool", d.Name).Int64("duration_ms", elapsed).Str("error", err.Error()).Msg("tool call failed")
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		log.Info().Str("tool", d.Name).Int64("duration_ms", elapsed).Msg("tool call complete")

		result := &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(res.Text)},
		}
		// structuredContent must be a JSON object.
		if obj, ok := res.Data.(map[string]any); ok {
			result.StructuredContent = obj
		}
		return result, nil
	}
}
