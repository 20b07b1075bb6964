package config

import "github.com/codrag/codrag-mcp/internal/common"

// DefaultAPIBase is the backend used when RAG_API_BASE is unset.
const DefaultAPIBase = "http://localhost:5000/api/self-rag"

// DefaultTimeoutMS is the backend request timeout used when RAG_TIMEOUT_MS is unset.
const DefaultTimeoutMS = 30000

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "CoDRAG",
			Transport: TransportStdio,
			Host:      "localhost",
			Port:      4250,
		},
		API: APIConfig{
			BaseURL:   DefaultAPIBase,
			TimeoutMS: DefaultTimeoutMS,
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Outputs: []string{"console"},
		},
	}
}
