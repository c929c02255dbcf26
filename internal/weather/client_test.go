package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(url string) *Client {
	c := NewClient(45.5, -73.6)
	c.BaseURL = url
	c.RetryDelay = time.Millisecond
	c.MaxRetryDelay = 4 * time.Millisecond
	return c
}

func TestOutdoorTemperature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("latitude") != "45.5000" || q.Get("longitude") != "-73.6000" || q.Get("current") != "temperature_2m" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"current":{"time":"2024-03-04T12:30","temperature_2m":-3.4}}`))
	}))
	defer server.Close()

	got, err := testClient(server.URL).OutdoorTemperature(context.Background())
	if err != nil {
		t.Fatalf("OutdoorTemperature() error = %v", err)
	}
	if got != -3.4 {
		t.Errorf("OutdoorTemperature() = %v, want -3.4", got)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":12}}`))
	}))
	defer server.Close()

	got, err := testClient(server.URL).OutdoorTemperature(context.Background())
	if err != nil || got != 12 {
		t.Fatalf("OutdoorTemperature() = %v, %v", got, err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":true,"reason":"bad latitude"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := testClient(server.URL).OutdoorTemperature(context.Background())
	if err == nil {
		t.Fatal("OutdoorTemperature() expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestMissingTemperature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{}}`))
	}))
	defer server.Close()

	if _, err := testClient(server.URL).OutdoorTemperature(context.Background()); err == nil {
		t.Error("OutdoorTemperature() expected error")
	}
}

func TestCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":5.5}}`))
	}))
	defer server.Close()

	c := testClient(server.URL)
	for i := 0; i < 3; i++ {
		if _, err := c.OutdoorTemperature(context.Background()); err != nil {
			t.Fatalf("OutdoorTemperature() error = %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 with cache", calls.Load())
	}

	c.CacheDuration = 0
	if _, err := c.OutdoorTemperature(context.Background()); err != nil {
		t.Fatalf("OutdoorTemperature() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 without cache", calls.Load())
	}
}

func TestContextCancelStopsRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := testClient(server.URL)
	c.RetryDelay = time.Hour
	c.MaxRetryDelay = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := c.OutdoorTemperature(ctx); err == nil {
		t.Fatal("OutdoorTemperature() expected error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("retry did not honour context")
	}
}
