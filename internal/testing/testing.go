// package testing contains shared testing utilities
package testing

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

// MockRoundTripper returns a fixed response (or error) for every request.
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// RouteTripper dispatches requests to handlers by URL path. Unrouted paths
// get a 404. Requests are recorded for assertion.
type RouteTripper struct {
	mu       sync.Mutex
	routes   map[string]func(*http.Request) *http.Response
	Requests []*http.Request
}

func NewRouteTripper() *RouteTripper {
	return &RouteTripper{routes: make(map[string]func(*http.Request) *http.Response)}
}

func (rt *RouteTripper) Handle(path string, fn func(*http.Request) *http.Response) {
	rt.routes[path] = fn
}

// HandleStatic registers a fixed status/body response for a path.
func (rt *RouteTripper) HandleStatic(path string, status int, body string) {
	rt.Handle(path, func(*http.Request) *http.Response {
		return NewResponse(status, body)
	})
}

func (rt *RouteTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.Requests = append(rt.Requests, req)
	fn, ok := rt.routes[req.URL.Path]
	rt.mu.Unlock()

	if !ok {
		return NewResponse(http.StatusNotFound, ""), nil
	}
	return fn(req), nil
}

// NewResponse builds an *http.Response with a readable body.
func NewResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
