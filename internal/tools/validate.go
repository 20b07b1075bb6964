package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// compileSchema compiles the descriptor's input schema once.
func compileSchema(d Descriptor) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(d.InputSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s schema: %w", d.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s schema: %w", d.Name, err)
	}

	url := "codrag://tools/" + d.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("schema %s: %w", d.Name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema compile error for %s: %w", d.Name, err)
	}
	return sch, nil
}

// normalizeArgs converts arbitrary Go values into plain JSON values
// (map[string]any, []any, float64, ...) so both the schema validator and
// mapstructure see the same shapes a host would send on the wire.
func normalizeArgs(tool string, args map[string]any) (any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, &ValidationError{Tool: tool, Reason: fmt.Sprintf("arguments are not JSON-serializable: %v", err)}
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, &ValidationError{Tool: tool, Reason: fmt.Sprintf("arguments are not valid JSON: %v", err)}
	}
	return doc, nil
}

// checkSchema validates doc and converts the first failure into a ValidationError.
func checkSchema(tool string, sch *jsonschema.Schema, doc any) error {
	err := sch.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &ValidationError{Tool: tool, Reason: err.Error()}
	}
	return leafError(tool, verr)
}

// leafError walks to the deepest cause, which names the offending field.
func leafError(tool string, verr *jsonschema.ValidationError) *ValidationError {
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	field := strings.Join(leaf.InstanceLocation, ".")
	switch k := leaf.ErrorKind.(type) {
	case *kind.Required:
		missing := append([]string(nil), k.Missing...)
		sort.Strings(missing)
		if field != "" {
			field += "."
		}
		return &ValidationError{Tool: tool, Field: field + strings.Join(missing, ", "), Reason: "missing required property"}
	case *kind.Type:
		return &ValidationError{Tool: tool, Field: field, Reason: fmt.Sprintf("expected %s, got %s", strings.Join(k.Want, " or "), k.Got)}
	default:
		return &ValidationError{Tool: tool, Field: field, Reason: leaf.ErrorKind.LocalizedString(printer)}
	}
}

// decodeArgs decodes validated JSON arguments into the typed record A and
// runs its Validate method if it has one.
func decodeArgs[A any](tool string, doc any) (A, error) {
	var out A
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     &out,
		DecodeHook: jsonNumberHook,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(doc); err != nil {
		return out, &ValidationError{Tool: tool, Reason: err.Error()}
	}
	if v, ok := any(out).(Validator); ok {
		if err := v.Validate(); err != nil {
			var fe *fieldError
			if errors.As(err, &fe) {
				return out, &ValidationError{Tool: tool, Field: fe.field, Reason: fe.err.Error()}
			}
			return out, &ValidationError{Tool: tool, Reason: err.Error()}
		}
	}
	return out, nil
}

// jsonNumberHook turns json.Number into float64 so integral values written
// as 3.0 still decode into int fields.
func jsonNumberHook(_ reflect.Type, _ reflect.Type, data any) (any, error) {
	n, ok := data.(json.Number)
	if !ok {
		return data, nil
	}
	return n.Float64()
}
