// Package tools defines the CoDRAG tool set: descriptors, typed argument
// records, validation, and the dispatch from an invocation to one backend call.
package tools

import "net/http"

// ParamType is the primitive type of a tool parameter.
type ParamType string

const (
	ParamString      ParamType = "string"
	ParamInteger     ParamType = "integer"
	ParamNumber      ParamType = "number"
	ParamBoolean     ParamType = "boolean"
	ParamStringArray ParamType = "string_array"
)

// Param describes one tool argument.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
}

// Descriptor is the immutable definition of a tool.
type Descriptor struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Method      string  `json:"method"`
	Path        string  `json:"path"`
	ReadOnly    bool    `json:"read_only"`
	Params      []Param `json:"params"`
}

// Tool names.
const (
	ToolStatus  = "status"
	ToolBuild   = "build"
	ToolSearch  = "search"
	ToolContext = "context"
)

// InputSchema returns the JSON Schema object for the tool's arguments.
func (d Descriptor) InputSchema() map[string]any {
	props := make(map[string]any, len(d.Params))
	required := []string{}
	for _, p := range d.Params {
		props[p.Name] = p.schema()
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (p Param) schema() map[string]any {
	s := map[string]any{}
	switch p.Type {
	case ParamStringArray:
		s["type"] = "array"
		s["items"] = map[string]any{"type": "string"}
	default:
		s["type"] = string(p.Type)
	}
	if p.Description != "" {
		s["description"] = p.Description
	}
	return s
}

// Descriptors returns the four CoDRAG tools in registration order.
func Descriptors() []Descriptor {
	return []Descriptor{
		{
			Name:        ToolStatus,
			Title:       "CoDRAG Status",
			Description: "Get the status of the local CoDRAG index: whether it is built, what it covers, and when it was last updated.",
			Method:      http.MethodGet,
			Path:        "/status",
			ReadOnly:    true,
		},
		{
			Name:        ToolBuild,
			Title:       "CoDRAG Build",
			Description: "Build or rebuild the CoDRAG index for a project. All arguments are optional; the server falls back to its configured project.",
			Method:      http.MethodPost,
			Path:        "/build",
			Params: []Param{
				{Name: "project_root", Type: ParamString, Description: "Absolute path of the project to index"},
				{Name: "roots", Type: ParamStringArray, Description: "Sub-directories to index, relative to the project root"},
				{Name: "repo_root", Type: ParamString, Description: "Repository root used to resolve relative paths"},
				{Name: "include_globs", Type: ParamStringArray, Description: "Glob patterns of files to include"},
				{Name: "exclude_globs", Type: ParamStringArray, Description: "Glob patterns of files to exclude"},
				{Name: "max_file_bytes", Type: ParamInteger, Description: "Skip files larger than this many bytes"},
			},
		},
		{
			Name:        ToolSearch,
			Title:       "CoDRAG Search",
			Description: "Semantic search over the CoDRAG index. Returns ranked chunks with file paths and scores.",
			Method:      http.MethodPost,
			Path:        "/search",
			ReadOnly:    true,
			Params: []Param{
				{Name: "query", Type: ParamString, Description: "Natural-language search query", Required: true},
				{Name: "k", Type: ParamInteger, Description: "Maximum number of results"},
				{Name: "min_score", Type: ParamNumber, Description: "Drop results scoring below this threshold"},
			},
		},
		{
			Name:        ToolContext,
			Title:       "CoDRAG Context",
			Description: "Assemble a context block for a query from the CoDRAG index, ready to paste into a prompt. Set structured to get the full JSON response instead of the bare context text.",
			Method:      http.MethodPost,
			Path:        "/context",
			ReadOnly:    true,
			Params: []Param{
				{Name: "query", Type: ParamString, Description: "Natural-language query the context should answer", Required: true},
				{Name: "k", Type: ParamInteger, Description: "Maximum number of chunks to include"},
				{Name: "max_chars", Type: ParamInteger, Description: "Upper bound on the context length in characters"},
				{Name: "include_sources", Type: ParamBoolean, Description: "Annotate chunks with their source file"},
				{Name: "include_scores", Type: ParamBoolean, Description: "Annotate chunks with their relevance score"},
				{Name: "min_score", Type: ParamNumber, Description: "Drop chunks scoring below this threshold"},
				{Name: "structured", Type: ParamBoolean, Description: "Return the full JSON response instead of only the context text"},
			},
		},
	}
}
