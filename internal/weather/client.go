// Package weather fetches the outdoor temperature shown on thermostats from
// the Open-Meteo forecast API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sinopehome/gt125/internal/logging"
	"github.com/sinopehome/gt125/internal/version"
)

const (
	// DefaultBaseURL is the Open-Meteo forecast endpoint
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultCacheDuration is how long a reading is reused
	DefaultCacheDuration = 10 * time.Minute
)

// HTTPError is an unexpected response status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("open-meteo: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the server may answer differently later.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client reads the current temperature at one location.
type Client struct {
	// BaseURL is the forecast endpoint
	BaseURL string

	Latitude  float64
	Longitude float64

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// CacheDuration is how long to reuse a reading (0 = no cache)
	CacheDuration time.Duration

	cacheMutex  sync.Mutex
	cachedValue float64
	cacheTime   time.Time
}

// NewClient creates a client for the given coordinates.
func NewClient(lat, lon float64) *Client {
	return &Client{
		BaseURL:       DefaultBaseURL,
		Latitude:      lat,
		Longitude:     lon,
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		CacheDuration: DefaultCacheDuration,
	}
}

type forecast struct {
	Current struct {
		Time          string   `json:"time"`
		Temperature2m *float64 `json:"temperature_2m"`
	} `json:"current"`
}

// OutdoorTemperature returns the current temperature in °C, retrying with
// exponential backoff on network errors and 5xx or 429 responses.
func (c *Client) OutdoorTemperature(ctx context.Context) (float64, error) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	if c.CacheDuration > 0 && !c.cacheTime.IsZero() && time.Since(c.cacheTime) < c.CacheDuration {
		return c.cachedValue, nil
	}

	var lastErr error
	delay := c.RetryDelay
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug("Retrying outdoor temperature", zap.Int("attempt", attempt), zap.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			delay *= 2
			if delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}
		}

		temp, err := c.fetch(ctx)
		if err == nil {
			c.cachedValue, c.cacheTime = temp, time.Now()
			return temp, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return 0, fmt.Errorf("outdoor temperature: %w", lastErr)
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(c.Longitude, 'f', 4, 64))
	q.Set("current", "temperature_2m")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var f forecast
	if err := json.Unmarshal(body, &f); err != nil {
		return 0, fmt.Errorf("decode forecast: %w", err)
	}
	if f.Current.Temperature2m == nil {
		return 0, errors.New("forecast has no current temperature_2m")
	}
	logging.Debug("Outdoor temperature fetched",
		zap.Float64("celsius", *f.Current.Temperature2m), zap.String("time", f.Current.Time))
	return *f.Current.Temperature2m, nil
}

func retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
