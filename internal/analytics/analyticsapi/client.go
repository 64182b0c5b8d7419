// Package analyticsapi is the HTTP client for the remote weather analytics endpoint.
package analyticsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/weatherdash/weatherdash/internal/analytics"
	"github.com/weatherdash/weatherdash/internal/provider/resilience"
)

const (
	// ProviderName identifies the analytics endpoint in health reports.
	ProviderName = "analytics"

	// DefaultBaseURL is where the analytics service listens in local development.
	DefaultBaseURL = "http://127.0.0.1:5000"

	// AnalyticsPath is the path of the analytics resource.
	AnalyticsPath = "/api/analytics"

	tracerName = "github.com/weatherdash/weatherdash/internal/analytics/analyticsapi"
)

// ClientConfig holds configuration for the analytics client.
type ClientConfig struct {
	// BaseURL is the scheme and host of the analytics service (optional, defaults
	// to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client that never retries.
	HTTPClient *resilience.Client

	// Registry receives success and failure stamps (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client queries the analytics endpoint.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	registry   *resilience.Registry
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewClient creates a new analytics client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(DefaultHTTPConfig(cfg.Registry, cfg.Logger))
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		registry:   cfg.Registry,
		logger:     cfg.Logger,
		tracer:     otel.Tracer(tracerName),
	}
}

// DefaultHTTPConfig returns the resilient client settings for the analytics
// endpoint. Every query is sent exactly once: failures are reported, not retried,
// and the breaker only counts them for the ops endpoints without ever opening.
func DefaultHTTPConfig(registry *resilience.Registry, logger zerolog.Logger) resilience.ClientConfig {
	cfg := resilience.DefaultClientConfig(ProviderName)
	cfg.DisableRetries = true
	cfg.CircuitBreaker.ReadyToTrip = func(gobreaker.Counts) bool { return false }
	cfg.Registry = registry
	cfg.Logger = logger
	return cfg
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// QueryURL returns the request URL for filter. Only non-empty parameters are
// included, and there is no query string at all when the filter is empty.
func (c *Client) QueryURL(filter analytics.Filter) string {
	params := url.Values{}
	if filter.City != "" {
		params.Set("city", filter.City)
	}
	if filter.Start != "" {
		params.Set("start", filter.Start)
	}
	if filter.End != "" {
		params.Set("end", filter.End)
	}

	u := c.baseURL + AnalyticsPath
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// FetchAnalytics issues a single GET for filter. Failures are returned as
// *analytics.QueryError.
func (c *Client) FetchAnalytics(ctx context.Context, filter analytics.Filter) (*analytics.Result, error) {
	ctx, span := c.tracer.Start(ctx, "analytics.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("analytics.city", filter.City),
			attribute.String("analytics.start", filter.Start),
			attribute.String("analytics.end", filter.End),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := c.fetch(ctx, filter)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if c.registry != nil {
			c.registry.RecordFailure(ProviderName, err)
		}
		c.logger.Debug().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("analytics request failed")
		return nil, err
	}

	if c.registry != nil {
		c.registry.RecordSuccess(ProviderName)
	}
	c.logger.Debug().
		Dur("duration", time.Since(start)).
		Msg("analytics request succeeded")
	return result, nil
}

func (c *Client) fetch(ctx context.Context, filter analytics.Filter) (*analytics.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.QueryURL(filter), http.NoBody)
	if err != nil {
		return nil, analytics.NewTransportError(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, analytics.NewTransportError(fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, analytics.NewTransportError(fmt.Errorf("reading error body: %w", err))
		}
		return nil, analytics.NewProtocolError(string(body))
	}

	var payload analyticsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, analytics.NewTransportError(fmt.Errorf("decoding response: %w", err))
	}

	if payload.Error != "" {
		return nil, analytics.NewApplicationError(payload.Error)
	}

	return &payload.Result, nil
}

// analyticsResponse is the 2xx body: either a result or {"error": "..."}.
type analyticsResponse struct {
	analytics.Result
	Error string `json:"error"`
}
