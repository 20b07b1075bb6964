package app

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/codrag/codrag-mcp/internal/common"
	"github.com/codrag/codrag-mcp/internal/config"
	"github.com/codrag/codrag-mcp/internal/mcp"
	"github.com/codrag/codrag-mcp/internal/rag"
	"github.com/codrag/codrag-mcp/internal/tools"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Client    *rag.Client
	Registry  *tools.Registry
	MCPServer *mcpserver.MCPServer
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	a.Client = rag.NewClient(cfg.API.BaseURL, cfg.API.Timeout(), logger)

	reg, err := tools.NewRegistry(a.Client)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}
	a.Registry = reg

	a.MCPServer = mcp.NewServer(cfg, reg, logger)

	logger.Info().
		Str("transport", cfg.Server.Transport).
		Msg("application initialization complete")

	return a, nil
}

// Close closes all application resources.
func (a *App) Close() error {
	a.Client.CloseIdleConnections()
	return nil
}
