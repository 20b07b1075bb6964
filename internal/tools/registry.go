package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/codrag/codrag-mcp/internal/rag"
)

// Caller performs one backend request. *rag.Client satisfies it.
type Caller interface {
	Do(ctx context.Context, r rag.Request) (*rag.Response, error)
}

// Result is what a tool call hands back: a text rendering for humans and
// models, and the structured value for programs.
type Result struct {
	Text string
	Data any
}

// prepared is a validated invocation ready to send.
type prepared struct {
	request rag.Request
	render  func(rag.ParsedBody) string
}

type entry struct {
	desc    Descriptor
	schema  *jsonschema.Schema
	prepare func(doc any) (*prepared, error)
}

// Registry holds the fixed tool set and dispatches invocations.
// It holds no per-call state and is safe for concurrent use.
type Registry struct {
	caller  Caller
	entries map[string]*entry
	order   []string
}

// NewRegistry compiles the tool schemas and binds each tool to caller.
func NewRegistry(caller Caller) (*Registry, error) {
	r := &Registry{
		caller:  caller,
		entries: make(map[string]*entry),
	}

	for _, d := range Descriptors() {
		sch, err := compileSchema(d)
		if err != nil {
			return nil, err
		}
		e := &entry{desc: d, schema: sch}
		switch d.Name {
		case ToolStatus:
			e.prepare = bind(d, func(StatusArgs) func(rag.ParsedBody) string { return renderPretty })
		case ToolBuild:
			e.prepare = bind(d, func(BuildArgs) func(rag.ParsedBody) string { return renderPretty })
		case ToolSearch:
			e.prepare = bind(d, func(SearchArgs) func(rag.ParsedBody) string { return renderPretty })
		case ToolContext:
			e.prepare = bind(d, func(a ContextArgs) func(rag.ParsedBody) string {
				if a.WantsStructured() {
					return renderPretty
				}
				return renderContextText
			})
		default:
			return nil, fmt.Errorf("no handler for tool %q", d.Name)
		}
		if _, dup := r.entries[d.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", d.Name)
		}
		r.entries[d.Name] = e
		r.order = append(r.order, d.Name)
	}

	return r, nil
}

// bind builds the prepare step for a tool whose arguments decode into A.
// GET tools send no body; POST tools send the record itself.
func bind[A any](d Descriptor, renderer func(A) func(rag.ParsedBody) string) func(any) (*prepared, error) {
	return func(doc any) (*prepared, error) {
		args, err := decodeArgs[A](d.Name, doc)
		if err != nil {
			return nil, err
		}
		req := rag.Request{Method: d.Method, Path: d.Path}
		if d.Method != http.MethodGet {
			req.Body = args
		}
		return &prepared{request: req, render: renderer(args)}, nil
	}
}

// Descriptors returns the registered descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].desc)
	}
	return out
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// Validate checks args against the tool's schema and typed record without
// calling the backend.
func (r *Registry) Validate(name string, args map[string]any) error {
	_, err := r.prepare(name, args)
	return err
}

func (r *Registry) prepare(name string, args map[string]any) (*prepared, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	doc, err := normalizeArgs(name, args)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(name, e.schema, doc); err != nil {
		return nil, err
	}
	return e.prepare(doc)
}

// Call validates args, performs exactly one backend request and renders the
// response. Validation failures never reach the backend.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (*Result, error) {
	p, err := r.prepare(name, args)
	if err != nil {
		return nil, err
	}

	resp, err := r.caller.Do(ctx, p.request)
	if err != nil {
		return nil, err
	}

	return &Result{
		Text: p.render(resp.Body),
		Data: resp.Body.Value(),
	}, nil
}

func renderPretty(body rag.ParsedBody) string {
	return body.Pretty()
}

// renderContextText projects the response onto its "context" field.
func renderContextText(body rag.ParsedBody) string {
	obj, ok := body.Value().(map[string]any)
	if !ok {
		return ""
	}
	if _, isRaw := body.(rag.RawBody); isRaw {
		return ""
	}
	switch v := obj["context"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
