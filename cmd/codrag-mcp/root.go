package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/codrag/codrag-mcp/internal/app"
	"github.com/codrag/codrag-mcp/internal/common"
	"github.com/codrag/codrag-mcp/internal/config"
	"github.com/codrag/codrag-mcp/internal/server"
	"github.com/codrag/codrag-mcp/internal/tools"
)

const configFileName = "codrag-mcp.toml"

type rootOptions struct {
	configFiles []string
	http        bool
	port        int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "codrag-mcp",
		Short: "MCP server for the CoDRAG code index",
		Long: "codrag-mcp exposes a local CoDRAG HTTP API as MCP tools (status, build, search, context).\n" +
			"It speaks MCP over stdio by default; use --http to serve streamable HTTP instead.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, os.Stdin, os.Stdout)
		},
	}

	rootCmd.Flags().StringArrayVarP(&opts.configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times)")
	rootCmd.Flags().BoolVar(&opts.http, "http", false, "Serve streamable HTTP instead of stdio")
	rootCmd.Flags().IntVar(&opts.port, "port", 0, "HTTP port (overrides config)")

	rootCmd.AddCommand(newToolsCmd(), newVersionCmd())

	return rootCmd
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool descriptors and input schemas as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeToolCatalog(cmd.OutOrStdout())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "codrag-mcp version %s\n", config.GetFullVersion())
		},
	}
}

// catalogEntry is one tool as printed by the tools subcommand.
type catalogEntry struct {
	Name        string         `json:"name"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Method      string         `json:"method"`
	Path        string         `json:"path"`
	ReadOnly    bool           `json:"read_only"`
	InputSchema map[string]any `json:"input_schema"`
}

func writeToolCatalog(w io.Writer) error {
	descs := tools.Descriptors()
	entries := make([]catalogEntry, 0, len(descs))
	for _, d := range descs {
		entries = append(entries, catalogEntry{
			Name:        d.Name,
			Title:       d.Title,
			Description: d.Description,
			Method:      d.Method,
			Path:        d.Path,
			ReadOnly:    d.ReadOnly,
			InputSchema: d.InputSchema(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// loadConfig resolves config files, loads them and applies flag overrides.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	files := opts.configFiles
	if len(files) == 0 {
		for _, path := range configSearchPaths() {
			if _, err := os.Stat(path); err == nil {
				files = append(files, path)
				break
			}
		}
	}

	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	transport := ""
	if opts.http {
		transport = config.TransportHTTP
	}
	config.ApplyFlagOverrides(cfg, transport, opts.port)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configSearchPaths returns TOML files to auto-discover (first match wins).
func configSearchPaths() []string {
	paths := []string{configFileName, filepath.Join("config", configFileName)}
	exe, err := os.Executable()
	if err != nil {
		return paths
	}
	return append([]string{filepath.Join(filepath.Dir(exe), configFileName)}, paths...)
}

func runServe(ctx context.Context, opts *rootOptions, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)

	logger.Info().
		Str("transport", cfg.Server.Transport).
		Str("api_url", cfg.API.BaseURL).
		Int("timeout_ms", cfg.API.TimeoutMS).
		Str("version", config.GetVersion()).
		Msg("configuration loaded")

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Str("error", err.Error()).Msg("failed to initialize application")
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Transport == config.TransportHTTP {
		return serveHTTP(ctx, application)
	}
	return serveStdio(ctx, application, in, out)
}

// serveStdio runs the MCP session on in/out until the host closes the
// channel or ctx is cancelled.
func serveStdio(ctx context.Context, application *app.App, in io.Reader, out io.Writer) error {
	logger := application.Logger

	stdio := mcpserver.NewStdioServer(application.MCPServer)
	stdio.SetErrorLogger(log.New(os.Stderr, "codrag-mcp: ", log.LstdFlags))

	logger.Info().Msg("serving MCP over stdio")

	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		logger.Info().Msg("stdio session closed")
		return nil
	}

	logger.Error().Str("error", err.Error()).Msg("stdio server failed")
	return fmt.Errorf("stdio server error: %w", err)
}

// serveHTTP runs the streamable HTTP transport until ctx is cancelled.
func serveHTTP(ctx context.Context, application *app.App) error {
	logger := application.Logger
	srv := server.New(application)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Str("error", err.Error()).Msg("server failed to start")
		}
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Str("error", err.Error()).Msg("server shutdown failed")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
