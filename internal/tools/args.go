package tools

import "errors"

// Validator is implemented by argument records with checks beyond the schema.
type Validator interface {
	Validate() error
}

// StatusArgs is the (empty) argument record of the status tool.
type StatusArgs struct{}

// BuildArgs is the argument record of the build tool.
type BuildArgs struct {
	ProjectRoot  *string  `json:"project_root,omitempty"`
	Roots        []string `json:"roots,omitempty"`
	RepoRoot     *string  `json:"repo_root,omitempty"`
	IncludeGlobs []string `json:"include_globs,omitempty"`
	ExcludeGlobs []string `json:"exclude_globs,omitempty"`
	MaxFileBytes *int     `json:"max_file_bytes,omitempty"`
}

func (a BuildArgs) Validate() error {
	if a.MaxFileBytes != nil && *a.MaxFileBytes < 1 {
		return &fieldError{field: "max_file_bytes", err: errors.New("must be at least 1")}
	}
	return nil
}

// SearchArgs is the argument record of the search tool.
type SearchArgs struct {
	Query    string   `json:"query"`
	K        *int     `json:"k,omitempty"`
	MinScore *float64 `json:"min_score,omitempty"`
}

func (a SearchArgs) Validate() error {
	if a.Query == "" {
		return &fieldError{field: "query", err: errors.New("must not be empty")}
	}
	if a.K != nil && *a.K < 1 {
		return &fieldError{field: "k", err: errors.New("must be at least 1")}
	}
	return nil
}

// ContextArgs is the argument record of the context tool.
type ContextArgs struct {
	Query          string   `json:"query"`
	K              *int     `json:"k,omitempty"`
	MaxChars       *int     `json:"max_chars,omitempty"`
	IncludeSources *bool    `json:"include_sources,omitempty"`
	IncludeScores  *bool    `json:"include_scores,omitempty"`
	MinScore       *float64 `json:"min_score,omitempty"`
	Structured     *bool    `json:"structured,omitempty"`
}

func (a ContextArgs) Validate() error {
	if a.Query == "" {
		return &fieldError{field: "query", err: errors.New("must not be empty")}
	}
	if a.K != nil && *a.K < 1 {
		return &fieldError{field: "k", err: errors.New("must be at least 1")}
	}
	if a.MaxChars != nil && *a.MaxChars < 1 {
		return &fieldError{field: "max_chars", err: errors.New("must be at least 1")}
	}
	return nil
}

// WantsStructured reports whether the caller asked for the full JSON response.
func (a ContextArgs) WantsStructured() bool {
	return a.Structured != nil && *a.Structured
}

type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string { return e.field + ": " + e.err.Error() }
