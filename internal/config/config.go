package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/codrag/codrag-mcp/internal/common"
)

// Transport names accepted by ServerConfig.Transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config represents the proxy configuration. It is resolved once at startup
// and passed by pointer to everything that needs it.
type Config struct {
	Server  ServerConfig         `toml:"server" yaml:"server"`
	API     APIConfig            `toml:"api" yaml:"api"`
	Logging common.LoggingConfig `toml:"logging" yaml:"logging"`
}

// ServerConfig contains MCP server settings.
type ServerConfig struct {
	Name      string `toml:"name" yaml:"name"`
	Transport string `toml:"transport" yaml:"transport"`
	Host      string `toml:"host" yaml:"host"`
	Port      int    `toml:"port" yaml:"port"`
}

// APIConfig describes the CoDRAG backend the tools forward to.
type APIConfig struct {
	BaseURL   string `toml:"base_url" yaml:"base_url"`
	TimeoutMS int    `toml:"timeout_ms" yaml:"timeout_ms"`
}

// maxTimeoutMS is the largest timeout that still fits in a time.Duration.
const maxTimeoutMS = math.MaxInt64 / int64(time.Millisecond)

// Timeout returns the per-request timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. Files ending in .yaml or .yml are
// parsed as YAML, everything else as TOML.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := decode(path, data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	config.API.BaseURL = NormalizeBaseURL(config.API.BaseURL)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func decode(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return toml.Unmarshal(data, config)
	}
}

// applyEnvOverrides applies RAG_* and CODRAG_* environment variable overrides.
func applyEnvOverrides(config *Config) error {
	if base := os.Getenv("RAG_API_BASE"); base != "" {
		config.API.BaseURL = base
	}
	if raw := os.Getenv("RAG_TIMEOUT_MS"); raw != "" {
		ms, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid RAG_TIMEOUT_MS %q: must be an integer number of milliseconds", raw)
		}
		config.API.TimeoutMS = ms
	}
	if level := os.Getenv("CODRAG_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if transport := os.Getenv("CODRAG_MCP_TRANSPORT"); transport != "" {
		config.Server.Transport = strings.ToLower(transport)
	}
	if port := os.Getenv("CODRAG_MCP_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid CODRAG_MCP_PORT %q: %w", port, err)
		}
		config.Server.Port = p
	}
	return nil
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, transport string, port int) {
	if transport != "" {
		config.Server.Transport = transport
	}
	if port > 0 {
		config.Server.Port = port
	}
}

// NormalizeBaseURL strips every trailing slash so that paths, which always
// start with "/", can be appended directly.
func NormalizeBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

// Validate rejects configurations the proxy cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL %q: %w", c.API.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API base URL %q: must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.TimeoutMS <= 0 {
		return fmt.Errorf("invalid API timeout %dms: must be positive", c.API.TimeoutMS)
	}
	if int64(c.API.TimeoutMS) > maxTimeoutMS {
		return fmt.Errorf("invalid API timeout %dms: must not exceed %dms", c.API.TimeoutMS, maxTimeoutMS)
	}
	switch c.Server.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return fmt.Errorf("invalid server port %d", c.Server.Port)
		}
	default:
		return fmt.Errorf("unknown transport %q (want %q or %q)", c.Server.Transport, TransportStdio, TransportHTTP)
	}
	return nil
}
