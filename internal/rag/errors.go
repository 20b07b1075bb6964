package rag

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RequestError reports a failed backend call. Status is 0 when the request
// never produced an HTTP response (connection refused, timeout, cancel).
type RequestError struct {
	Method  string
	URL     string
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s failed: %s", e.Method, e.URL, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Remote reports whether the backend answered with a non-2xx status.
func (e *RequestError) Remote() bool { return e.Status != 0 }

// remoteMessage picks the failure message for a non-2xx response: the body's
// "error" field when the body is a JSON object carrying one, else "HTTP <status>".
func remoteMessage(status int, body ParsedBody) string {
	if jb, ok := body.(JSONBody); ok {
		if obj, ok := jb.Data.(map[string]any); ok {
			switch v := obj["error"].(type) {
			case nil:
			case string:
				if v != "" {
					return v
				}
			default:
				if b, err := json.Marshal(v); err == nil {
					return string(b)
				}
			}
		}
	}
	return "HTTP " + strconv.Itoa(status)
}
