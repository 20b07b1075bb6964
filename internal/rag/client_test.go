package rag

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codrag/codrag-mcp/internal/common"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, common.NewSilentLogger())
}

func TestClient_Get_Success(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/self-rag/status" {
			t.Errorf("Expected /api/self-rag/status, got %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "" {
			t.Errorf("Expected no Content-Type on bodyless request, got %q", ct)
		}
		if r.ContentLength > 0 {
			t.Errorf("Expected no body, got %d bytes", r.ContentLength)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"indexed":true,"files":12}`))
	}))
	defer mockServer.Close()

	client := testClient(mockServer.URL + "/api/self-rag")
	resp, err := client.Get(context.Background(), "/status")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Status)
	}

	jb, ok := resp.Body.(JSONBody)
	if !ok {
		t.Fatalf("Expected JSONBody, got %T", resp.Body)
	}
	obj := jb.Value().(map[string]any)
	if obj["indexed"] != true || obj["files"] != float64(12) {
		t.Errorf("Unexpected parsed body: %v", obj)
	}
}

func TestClient_Post_SendsJSONBody(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("Request body is not valid JSON: %v", err)
		}
		if req["query"] != "token bucket" {
			t.Errorf("Expected query=token bucket, got %v", req["query"])
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer mockServer.Close()

	client := testClient(mockServer.URL)
	if _, err := client.Post(context.Background(), "/search", map[string]any{"query": "token bucket"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestClient_Do_DefaultsToGet(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		w.Write([]byte(`{}`))
	}))
	defer mockServer.Close()

	if _, err := testClient(mockServer.URL).Do(context.Background(), Request{Path: "/status"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestClient_Do_RejectsPathWithoutSlash(t *testing.T) {
	var hits int32
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer mockServer.Close()

	_, err := testClient(mockServer.URL).Do(context.Background(), Request{Method: "GET", Path: "status"})
	if err == nil {
		t.Fatal("Expected error for path without leading slash")
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Error("No request should be sent for an invalid path")
	}
}

func TestClient_ErrorField(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"index not found"}`))
	}))
	defer mockServer.Close()

	_, err := testClient(mockServer.URL).Post(context.Background(), "/search", map[string]any{"query": "x"})
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "index not found") {
		t.Errorf("Expected message to contain remote error, got %q", err.Error())
	}
	want := "POST " + mockServer.URL + "/search failed: index not found"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected *RequestError, got %T", err)
	}
	if reqErr.Status != http.StatusNotFound || !reqErr.Remote() {
		t.Errorf("Expected remote 404, got status %d", reqErr.Status)
	}
}

func TestClient_EmptyErrorBody(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer mockServer.Close()

	_, err := testClient(mockServer.URL).Get(context.Background(), "/status")
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("Expected message to contain HTTP 500, got %q", err.Error())
	}
}

func TestClient_ErrorStatusVariants(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"non-json body", http.StatusBadGateway, "upstream down", "HTTP 502"},
		{"object without error", http.StatusBadRequest, `{"detail":"bad"}`, "HTTP 400"},
		{"empty error string", http.StatusConflict, `{"error":""}`, "HTTP 409"},
		{"array body", http.StatusTeapot, `["error"]`, "HTTP 418"},
		{"structured error", http.StatusUnprocessableEntity, `{"error":{"code":7}}`, `{"code":7}`},
		{"3xx is a failure", http.StatusNotModified, "", "HTTP 304"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer mockServer.Close()

			_, err := testClient(mockServer.URL).Get(context.Background(), "/status")
			if err == nil {
				t.Fatalf("Expected error for status %d", tt.status)
			}
			if !strings.HasSuffix(err.Error(), "failed: "+tt.want) {
				t.Errorf("Expected message ending in %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestClient_MalformedJSONIsPreserved(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json{"))
	}))
	defer mockServer.Close()

	resp, err := testClient(mockServer.URL).Get(context.Background(), "/status")
	if err != nil {
		t.Fatalf("Malformed body must not fail the call: %v", err)
	}
	rb, ok := resp.Body.(RawBody)
	if !ok {
		t.Fatalf("Expected RawBody, got %T", resp.Body)
	}
	if rb.Text != "not json{" {
		t.Errorf("Expected raw text preserved, got %q", rb.Text)
	}
	obj := resp.Body.Value().(map[string]any)
	if obj["raw"] != "not json{" {
		t.Errorf("Expected {raw: not json{}, got %v", obj)
	}
}

func TestClient_ServerUnavailable(t *testing.T) {
	_, err := testClient("http://127.0.0.1:1").Get(context.Background(), "/status")
	if err == nil {
		t.Fatal("Expected error when server is unavailable")
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected *RequestError, got %T", err)
	}
	if reqErr.Remote() {
		t.Error("Connection failure must not be reported as a remote error")
	}
	if !strings.HasPrefix(err.Error(), "GET http://127.0.0.1:1/status failed: ") {
		t.Errorf("Expected method and URL in message, got %q", err.Error())
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer mockServer.Close()
	defer close(release)

	client := NewClient(mockServer.URL, 100*time.Millisecond, common.NewSilentLogger())

	start := time.Now()
	_, err := client.Post(context.Background(), "/context", map[string]any{"query": "slow"})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded in chain, got %v", err)
	}
	if !strings.Contains(err.Error(), "aborted") {
		t.Errorf("Expected abort-style message, got %q", err.Error())
	}
	if elapsed < 100*time.Millisecond || elapsed > 3*time.Second {
		t.Errorf("Expected failure after ~100ms, took %s", elapsed)
	}
}

func TestClient_CallerCancel(t *testing.T) {
	release := make(chan struct{})
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer mockServer.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := testClient(mockServer.URL).Get(ctx, "/status")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// Each call owns its timeout: a slow call must not affect a fast one.
func TestClient_ConcurrentCallsAreIndependent(t *testing.T) {
	release := make(chan struct{})
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer mockServer.Close()
	defer close(release)

	client := NewClient(mockServer.URL, 200*time.Millisecond, common.NewSilentLogger())

	slowErr := make(chan error, 1)
	go func() {
		_, err := client.Get(context.Background(), "/slow")
		slowErr <- err
	}()

	for i := 0; i < 5; i++ {
		if _, err := client.Get(context.Background(), "/fast"); err != nil {
			t.Fatalf("fast call %d failed: %v", i, err)
		}
	}

	if err := <-slowErr; !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected slow call to time out, got %v", err)
	}
}

func TestClient_WithHTTPClient(t *testing.T) {
	var used int32
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer mockServer.Close()

	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&used, 1)
		return http.DefaultTransport.RoundTrip(r)
	})}

	client := NewClient(mockServer.URL, time.Second, common.NewSilentLogger(), WithHTTPClient(hc))
	if _, err := client.Get(context.Background(), "/status"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if atomic.LoadInt32(&used) != 1 {
		t.Errorf("Expected custom transport to be used once, got %d", used)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
