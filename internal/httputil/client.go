// SPDX-License-Identifier: MIT
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type (
	// Client performs cached JSON GET requests with retries.
	Client struct {
		http   *http.Client
		cache  *Cache
		logger logrus.FieldLogger

		attempts int
		delay    time.Duration
	}

	// ClientOption defines the Client functional option type.
	ClientOption func(*Client)
)

// Request errors.
var (
	ErrNetwork = errors.New("network error")
	ErrStatus  = errors.New("unexpected status")
)

const defaultTimeout = 30 * time.Second

// NewClient instantiates a Client; a nil cache disables caching.
func NewClient(cache *Cache, options ...ClientOption) *Client {
	c := &Client{
		http:     &http.Client{Timeout: defaultTimeout},
		cache:    cache,
		logger:   logrus.StandardLogger(),
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// WithHTTPClient configures the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithLogger configures the logger option.
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithRetry configures the attempt count & the initial delay between attempts.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) { c.attempts, c.delay = attempts, delay }
}

// Cached decodes the entry stored under key into v, running fetch to populate v on a miss.
//
// Failing cache reads & writes are logged, never returned.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) (err error) {
	logger := c.logger.WithField("key", key)

	if c.cache != nil && !refresh {
		ok, cacheErr := c.cache.Get(key, v)
		switch {
		case ok:
			logger.Debug("cache hit")
			return
		case cacheErr != nil:
			logger.WithError(cacheErr).Debug("cache miss")
		}
	}

	if err = Retry(ctx, c.attempts, c.delay, fetch); err != nil {
		return
	}

	if c.cache != nil {
		if cacheErr := c.cache.Set(key, v); cacheErr != nil {
			logger.WithError(cacheErr).Warn("failed to cache response")
		}
	}

	return
}

// GetJSON performs a GET request, decoding the JSON response body into v.
//
// Transport failures & 5xx responses are returned as a [RetryableError].
func (c *Client) GetJSON(ctx context.Context, url string, v any) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", "application/json")

	c.logger.WithField("url", url).Debug("GET")

	resp, err := c.http.Do(req)
	if err != nil {
		return &RetryableError{Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
	case code >= http.StatusInternalServerError || code == http.StatusTooManyRequests:
		return &RetryableError{Err: fmt.Errorf("%w: %d", ErrStatus, code)}
	default:
		return fmt.Errorf("%w: %d", ErrStatus, code)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
