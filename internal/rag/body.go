package rag

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParsedBody is the decoded form of a backend response body: either valid
// JSON (JSONBody) or text that failed to parse (RawBody).
type ParsedBody interface {
	// Value returns the structured value handed back to tool callers.
	Value() any
	// Pretty renders the body as two-space indented JSON.
	Pretty() string
	isParsedBody()
}

// JSONBody is a response body that parsed as JSON. Raw keeps the backend's
// bytes so rendering can preserve its key order.
type JSONBody struct {
	Raw  json.RawMessage
	Data any
}

// RawBody is a response body that was not valid JSON.
type RawBody struct {
	Text string
}

func (JSONBody) isParsedBody() {}
func (RawBody) isParsedBody()  {}

// Value returns the decoded JSON value.
func (b JSONBody) Value() any { return b.Data }

// Pretty renders the same value as Data in the backend's key order.
// Duplicate keys collapse to the last value and numbers are re-encoded,
// exactly as they are in Data.
func (b JSONBody) Pretty() string {
	v, err := decodeOrdered(json.NewDecoder(bytes.NewReader(b.Raw)))
	if err != nil {
		return prettyJSON(b.Data)
	}
	return prettyJSON(v)
}

// Value wraps the text as {"raw": text} so malformed output is preserved.
func (b RawBody) Value() any { return map[string]any{"raw": b.Text} }

// Pretty renders the {"raw": text} wrapper.
func (b RawBody) Pretty() string { return prettyJSON(b.Value()) }

// ParseBody decodes text as JSON, falling back to RawBody.
func ParseBody(text []byte) ParsedBody {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return RawBody{Text: string(text)}
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return RawBody{Text: string(text)}
	}
	return JSONBody{Raw: json.RawMessage(trimmed), Data: v}
}

// orderedObject is a decoded JSON object that remembers key order.
type orderedObject struct {
	keys []string
	vals map[string]any
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := encodeCompact(k)
		if err != nil {
			return nil, err
		}
		vb, err := encodeCompact(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeOrdered reads one JSON value, keeping object key order. Scalars
// decode to the same Go types json.Unmarshal produces for Data.
func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := &orderedObject{vals: make(map[string]any)}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", kt)
			}
			v, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			if _, seen := obj.vals[key]; !seen {
				obj.keys = append(obj.keys, key)
			}
			obj.vals[key] = v
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// encodeCompact encodes v without HTML escaping or a trailing newline.
func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// prettyJSON encodes v with two-space indentation and without HTML escaping.
func prettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// PrettyJSON is prettyJSON for callers outside the package.
func PrettyJSON(v any) string { return prettyJSON(v) }
