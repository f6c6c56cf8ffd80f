package discogs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/crate/internal/metrics"
	"github.com/desertthunder/crate/internal/shared"
)

const (
	DefaultBaseURL      = "https://api.discogs.com"
	DefaultAuthorizeURL = "https://www.discogs.com/oauth/authorize"
	DefaultUserAgent    = "crate/0.1"
	DefaultTimeout      = 10 * time.Second

	defaultFetchConcurrency = 4
	maxResponseBytes        = 32 << 20
	breakerName             = "discogs-api"
)

// RetryPolicy bounds how transient failures are retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries three times, waiting 1s, 2s and 4s.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second}

// Delay returns the wait before retry number attempt (0-based): BaseDelay doubled per attempt, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		return p.MaxDelay
	}
	return d
}

// BreakerSettings configures the circuit breaker. Only transient failures count against it.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Options configures a [Client]. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	AuthorizeURL      string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerMinute int
	FetchConcurrency  int
	Retry             *RetryPolicy
	Breaker           *BreakerSettings
	HTTPClient        *http.Client
	Logger            *log.Logger
	Metrics           *metrics.Metrics

	// Sleep waits between retries; tests replace it to record delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client talks to the Discogs API on behalf of one consumer application.
type Client struct {
	baseURL          string
	authorizeURL     string
	userAgent        string
	signer           *Signer
	httpClient       *http.Client
	limiter          *rate.Limiter
	breaker          *gobreaker.CircuitBreaker[[]byte]
	retry            RetryPolicy
	fetchConcurrency int
	sleep            func(ctx context.Context, d time.Duration) error
	logger           *log.Logger
	metrics          *metrics.Metrics
}

// NewClient creates a [Client] that signs requests with signer.
func NewClient(signer *Signer, opts Options) *Client {
	c := &Client{
		baseURL:          strings.TrimRight(opts.BaseURL, "/"),
		authorizeURL:     opts.AuthorizeURL,
		userAgent:        opts.UserAgent,
		signer:           signer,
		httpClient:       opts.HTTPClient,
		retry:            DefaultRetryPolicy,
		fetchConcurrency: opts.FetchConcurrency,
		sleep:            opts.Sleep,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
	}

	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.authorizeURL == "" {
		c.authorizeURL = DefaultAuthorizeURL
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if opts.Retry != nil {
		c.retry = *opts.Retry
	}
	if c.fetchConcurrency <= 0 {
		c.fetchConcurrency = defaultFetchConcurrency
	}
	if c.sleep == nil {
		c.sleep = sleepWithContext
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}

	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 5)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	}

	if opts.Breaker != nil {
		c.breaker = c.newBreaker(*opts.Breaker)
	}

	return c
}

// NewClientFromConfig builds a [Client] from the [shared.Config] sections for the API, sync and breaker.
func NewClientFromConfig(cfg *shared.Config, logger *log.Logger, m *metrics.Metrics) *Client {
	opts := Options{
		BaseURL:           cfg.Discogs.BaseURL,
		AuthorizeURL:      cfg.Discogs.AuthorizeURL,
		UserAgent:         cfg.Discogs.UserAgent,
		Timeout:           cfg.Discogs.Timeout.Duration,
		RequestsPerMinute: cfg.Discogs.RequestsPerMinute,
		FetchConcurrency:  cfg.Sync.FetchConcurrency,
		Retry: &RetryPolicy{
			MaxRetries: cfg.Sync.MaxRetries,
			BaseDelay:  cfg.Sync.BaseDelay.Duration,
			MaxDelay:   cfg.Sync.MaxDelay.Duration,
		},
		Logger:  logger,
		Metrics: m,
	}

	if b := cfg.Breaker; b.Enabled {
		opts.Breaker = &BreakerSettings{
			MaxRequests:      b.MaxRequests,
			Interval:         b.Interval.Duration,
			Timeout:          b.Timeout.Duration,
			FailureThreshold: b.FailureThreshold,
		}
	}

	return NewClient(NewSigner(cfg.Discogs.ConsumerKey, cfg.Discogs.ConsumerSecret), opts)
}

func (c *Client) newBreaker(s BreakerSettings) *gobreaker.CircuitBreaker[[]byte] {
	threshold := s.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	c.metrics.SetBreakerState(breakerName, float64(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			c.metrics.SetBreakerState(name, float64(to))
		},
	})
}

// request is one logical API call, possibly sent several times.
type request struct {
	method      string
	endpoint    string
	body        []byte
	contentType string
	creds       *Credentials
	auth        []AuthOption
}

// Call performs a signed request and decodes the JSON response into result.
//
// body, when non-nil, is sent JSON-encoded. Transient failures are retried per
// the client's [RetryPolicy]; the last error is returned once retries run out.
func (c *Client) Call(ctx context.Context, method, endpoint string, body any, creds *Credentials, result any) error {
	req := request{method: method, endpoint: endpoint, creds: creds}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		req.body = payload
		req.contentType = "application/json"
	}

	data, err := c.do(ctx, req)
	if err != nil {
		return err
	}

	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return newMalformedError(method, endpoint, err)
	}
	return nil
}

// do runs the retry loop, behind the breaker when one is configured.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	if c.breaker == nil {
		return c.withRetry(ctx, req)
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.withRetry(ctx, req)
	})
	if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		return nil, fmt.Errorf("%w: %s %s: %w", shared.ErrServiceUnavailable, req.method, req.endpoint, err)
	}
	return data, err
}

func (c *Client) withRetry(ctx context.Context, req request) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		data, err := c.attempt(ctx, req)
		if err == nil {
			return data, nil
		}

		if !IsRetryable(err) || attempt >= c.retry.MaxRetries {
			return nil, err
		}

		delay := c.retry.Delay(attempt)
		status := StatusOf(err)
		c.metrics.IncRetry(status)
		c.logger.Warn("retrying request",
			"method", req.method, "endpoint", req.endpoint,
			"status", status, "attempt", attempt+1, "delay", delay)

		if serr := c.sleep(ctx, delay); serr != nil {
			return nil, fmt.Errorf("retry interrupted: %w (last error: %w)", serr, err)
		}
	}
}

// attempt sends req once.
func (c *Client) attempt(ctx context.Context, req request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", c.signer.Authorization(req.creds, req.auth...))
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveAPIRequest(req.method, 0, time.Since(start))
		return nil, newTransportError(req.method, req.endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.metrics.ObserveAPIRequest(req.method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, newTransportError(req.method, req.endpoint, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(req.method, req.endpoint, resp.StatusCode, errorMessage(data))
	}

	c.logger.Debug("request complete", "method", req.method, "endpoint", req.endpoint, "status", resp.StatusCode)
	return data, nil
}

// errorMessage extracts {"message": "..."} from an error body.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return ""
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
