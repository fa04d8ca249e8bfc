// Package client talks to the remote tax tracker API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"taxtracker/internal/model"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Envelope is the response shape shared by every endpoint
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Token   string          `json:"token,omitempty"`
	User    model.Fields    `json:"user,omitempty"`
}

// RetryConfig configures retries of idempotent requests
type RetryConfig struct {
	MaxRetries           int
	InitialInterval      time.Duration
	MaxInterval          time.Duration
	RetryableStatusCodes []int
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:           3,
		InitialInterval:      200 * time.Millisecond,
		MaxInterval:          5 * time.Second,
		RetryableStatusCodes: []int{408, 429, 500, 502, 503, 504},
	}
}

// Option modifies the client
type Option func(*Client)

// Client is a JSON API client. Writes are never retried.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	tokenSource    func() string
	onUnauthorized func()
	retry          *RetryConfig
	log            *zap.Logger
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		retry:      DefaultRetryConfig(),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource sets where Request reads the bearer token from
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.tokenSource = fn }
}

// WithUnauthorizedHandler registers fn to run when the API answers 401
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithRetry replaces the retry config; nil disables retries
func WithRetry(cfg *RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// Request performs one API call. When authRequired is set the bearer token
// comes from the configured token source.
func (c *Client) Request(ctx context.Context, method, path string, body any, authRequired bool) (*Envelope, error) {
	token := ""
	if authRequired && c.tokenSource != nil {
		token = c.tokenSource()
	}
	return c.call(ctx, method, path, body, token)
}

func (c *Client) call(ctx context.Context, method, path string, body any, token string) (*Envelope, error) {
	if method != http.MethodGet || c.retry == nil || c.retry.MaxRetries <= 0 {
		return c.do(ctx, method, path, body, token)
	}

	var env *Envelope
	operation := func() error {
		var err error
		env, err = c.do(ctx, method, path, body, token)
		if err == nil {
			return nil
		}
		if c.retryable(err) {
			c.log.Debug("retrying request", zap.String("path", path), zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retry.InitialInterval
	exp.MaxInterval = c.retry.MaxInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.retry.MaxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, err
	}
	return env, nil
}

func (c *Client) retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return slices.Contains(c.retry.RetryableStatusCodes, apiErr.StatusCode)
	}
	return errors.Is(err, ErrNetwork)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string) (*Envelope, error) {
	start := time.Now()
	url := c.baseURL + "/" + strings.TrimPrefix(path, "/")

	var reader io.Reader
	if body != nil && method != http.MethodGet {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("%w: undecodable response: %v", ErrNetwork, err)
	}

	c.log.Debug("API request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized && !env.Success {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, ErrUnauthorized
	}
	if !env.Success || resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &env, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// decodeData unmarshals the envelope's data field, keeping numbers exact
func decodeData(env *Envelope, target any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.UseNumber()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: unexpected data shape: %v", ErrNetwork, err)
	}
	return nil
}
