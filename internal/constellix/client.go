package constellix

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	pkgerrors "github.com/hugovk/constellix-dns-sync/pkg/errors"
)

const (
	// DefaultBaseURL is the Constellix DNS v1 API endpoint.
	DefaultBaseURL = "https://api.dns.constellix.com/v1"

	defaultMaxAttempts  = 5
	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 30 * time.Second
	defaultPageSize     = 500
)

// Config configures the Constellix API client. APIKey and APISecret are
// required; everything else has working defaults.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string

	// MaxAttempts caps retries of a single logical request, first try
	// included. Only transient and rate-limit failures are retried.
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// PageSize controls how many records are requested per page when
	// draining list endpoints.
	PageSize int

	HTTPClient *http.Client
}

// Client is a low-level Constellix DNS v1 API client. Every request carries
// the HMAC-SHA1 signature headers the API requires; transient failures are
// retried with exponential backoff and jitter.
type Client struct {
	apiKey       string
	apiSecret    string
	baseURL      string
	maxAttempts  uint
	initialDelay time.Duration
	maxDelay     time.Duration
	pageSize     int
	httpClient   *http.Client
	logger       *zap.Logger

	mu      sync.Mutex
	domains map[string]int64 // zone fqdn -> domain id
}

// NewClient creates a Constellix API client from the given configuration.
func NewClient(logger *zap.Logger, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, pkgerrors.ErrMissingAPIKey
	}
	if cfg.APISecret == "" {
		return nil, pkgerrors.ErrMissingAPISecret
	}

	c := &Client{
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		baseURL:      cfg.BaseURL,
		maxAttempts:  cfg.MaxAttempts,
		initialDelay: cfg.InitialDelay,
		maxDelay:     cfg.MaxDelay,
		pageSize:     cfg.PageSize,
		httpClient:   cfg.HTTPClient,
		logger:       logger,
		domains:      make(map[string]int64),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.maxAttempts == 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.initialDelay == 0 {
		c.initialDelay = defaultInitialDelay
	}
	if c.maxDelay == 0 {
		c.maxDelay = defaultMaxDelay
	}
	if c.pageSize == 0 {
		c.pageSize = defaultPageSize
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return c, nil
}

// sign computes the x-cnsdns-hmac header value: base64 of the HMAC-SHA1 of
// the millisecond request timestamp, keyed with the API secret.
func (c *Client) sign(requestDate string) string {
	mac := hmac.New(sha1.New, []byte(c.apiSecret))
	mac.Write([]byte(requestDate))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// do performs one logical API request, retrying transient and rate-limit
// failures. The signature headers are recomputed on every attempt so the
// request date stays fresh across backoff waits. Returns the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		return c.doOnce(ctx, method, path, query, payload, attempt)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.initialDelay
	expo.MaxInterval = c.maxDelay

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(c.maxAttempts),
	)
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, payload []byte, attempt int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}

	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-cnsdns-apiKey", c.apiKey)
	req.Header.Set("x-cnsdns-hmac", c.sign(now))
	req.Header.Set("x-cnsdns-requestDate", now)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		c.logger.Warn("Request failed, will retry",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	apiErr := newAPIError(method, path, resp.StatusCode, data)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs := retryAfterSeconds(resp); secs > 0 {
			c.logger.Debug("Rate limited, honoring Retry-After",
				zap.String("path", path),
				zap.Int("seconds", secs))
			// Both halves stay on the chain: backoff finds the Retry-After
			// hint, callers that exhaust retries still see the APIError.
			return nil, fmt.Errorf("%w: %w", apiErr, backoff.RetryAfter(secs))
		}
		c.logger.Debug("Rate limited, backing off", zap.String("path", path))
		return nil, apiErr
	case resp.StatusCode >= 500:
		c.logger.Warn("Server error, will retry",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt))
		return nil, apiErr
	default:
		// 400/401/403/404/422: retrying cannot help.
		return nil, backoff.Permanent(apiErr)
	}
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		apiErr.Kind = KindAuth
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		apiErr.Kind = KindValidation
	case status == http.StatusNotFound:
		apiErr.Kind = KindNotFound
	case status == http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimit
	default:
		apiErr.Kind = KindTransient
	}

	var parsed struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Messages = parsed.Errors
	}
	return apiErr
}

func retryAfterSeconds(resp *http.Response) int {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}
