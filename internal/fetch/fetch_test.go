package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

// zeroWaits retries immediately so tests never sleep.
func zeroWaits(n int) []time.Duration {
	return make([]time.Duration, n)
}

func TestGetSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent/1.0" {
			t.Errorf("User-Agent = %q, want test-agent/1.0", got)
		}
		if got := r.Header.Get("Authorization"); got != "Token abc" {
			t.Errorf("Authorization = %q, want Token abc", got)
		}
		if got := r.URL.Query().Get("count"); got != "5" {
			t.Errorf("count param = %q, want 5", got)
		}
		w.Write([]byte(`{"value": 42}`))
	}))
	defer srv.Close()

	client := NewClient(TransportConfig{UserAgent: "test-agent/1.0", Schedule: zeroWaits(0)}, nil)
	resp, err := client.Get(context.Background(), srv.URL,
		map[string]string{"Authorization": "Token abc"},
		url.Values{"count": []string{"5"}})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	var payload struct {
		Value int `json:"value"`
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if payload.Value != 42 {
		t.Errorf("value = %d, want 42", payload.Value)
	}
}

func TestGetRetriesTransientStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	// Three 503s burn exactly three schedule slots; the fourth attempt lands.
	client := NewClient(TransportConfig{Schedule: zeroWaits(3)}, nil)
	resp, err := client.Get(context.Background(), srv.URL, nil, nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if calls != 4 {
		t.Errorf("server saw %d calls, want 4", calls)
	}
}

func TestGetFatalStatusFailsImmediately(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(TransportConfig{Schedule: zeroWaits(3)}, nil)
	_, err := client.Get(context.Background(), srv.URL, nil, nil)
	if err == nil {
		t.Fatal("expected error for 404")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fetchErr.LastStatus != http.StatusNotFound {
		t.Errorf("LastStatus = %d, want 404", fetchErr.LastStatus)
	}
	if fetchErr.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", fetchErr.Attempts)
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1", calls)
	}
}

func TestGetExhaustsSchedule(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(TransportConfig{Schedule: zeroWaits(2)}, nil)
	_, err := client.Get(context.Background(), srv.URL, nil, nil)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fetchErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", fetchErr.Attempts)
	}
	if fetchErr.LastStatus != http.StatusTooManyRequests {
		t.Errorf("LastStatus = %d, want 429", fetchErr.LastStatus)
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
}

func TestGetNoContentIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(TransportConfig{Schedule: zeroWaits(0)}, nil)
	resp, err := client.Get(context.Background(), srv.URL, nil, nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if len(resp.Body) != 0 {
		t.Errorf("body = %q, want empty", resp.Body)
	}
}

func TestGetCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(TransportConfig{Schedule: zeroWaits(3)}, nil)
	if _, err := client.Get(ctx, srv.URL, nil, nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		if got := Retryable(tt.status); got != tt.want {
			t.Errorf("Retryable(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestScheduleBackOffStops(t *testing.T) {
	sched := &scheduleBackOff{waits: []time.Duration{time.Second, 2 * time.Second}}

	if got := sched.NextBackOff(); got != time.Second {
		t.Errorf("first wait = %v, want 1s", got)
	}
	if got := sched.NextBackOff(); got != 2*time.Second {
		t.Errorf("second wait = %v, want 2s", got)
	}
	if got := sched.NextBackOff(); got >= 0 {
		t.Errorf("exhausted schedule returned %v, want Stop", got)
	}

	sched.Reset()
	if got := sched.NextBackOff(); got != time.Second {
		t.Errorf("wait after Reset = %v, want 1s", got)
	}
}
