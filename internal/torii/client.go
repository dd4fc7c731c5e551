// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package torii reads the game read-model from the Torii indexer's SQL endpoint.
package torii

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
	"github.com/ManuGH/lootsurvivor/internal/platform/httpx"
	"github.com/ManuGH/lootsurvivor/internal/resilience"
	"github.com/ManuGH/lootsurvivor/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// ErrUpstreamUnavailable marks transport failures, non-200 replies and an open breaker.
var ErrUpstreamUnavailable = errors.New("torii unavailable")

// Client queries one Torii deployment.
type Client struct {
	baseURL    string
	namespace  string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
	logger     zerolog.Logger
}

// Options configures the indexer client.
type Options struct {
	Timeout          time.Duration
	RateLimit        rate.Limit
	RateLimitBurst   int
	BreakerThreshold int
	BreakerReset     time.Duration
	HTTPClient       *http.Client
}

// NewClient creates a client for the Torii instance at baseURL serving namespace.
func NewClient(baseURL, namespace string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 20
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpx.NewTracedClient(opts.Timeout, "torii")
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		namespace:  namespace,
		httpClient: hc,
		limiter:    rate.NewLimiter(opts.RateLimit, opts.RateLimitBurst),
		breaker: resilience.NewCircuitBreaker("torii", opts.BreakerThreshold, opts.BreakerReset,
			resilience.WithIgnore(func(err error) bool {
				return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
			})),
		logger: xglog.WithComponent("torii"),
	}
}

// Query runs a SQL statement and decodes the row array into out.
func (c *Client) Query(ctx context.Context, query string, out any) error {
	tracer := telemetry.Tracer("lootsurvivor.torii")
	ctx, span := tracer.Start(ctx, "torii.sql", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	err := c.breaker.Execute(func() error {
		return c.do(ctx, query, out)
	})
	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, resilience.ErrCircuitOpen) {
			err = fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	metrics.RecordUpstreamAttempt("torii", "sql", result, time.Since(start).Seconds())
	return err
}

func (c *Client) do(ctx context.Context, query string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + "/sql?" + url.Values{"query": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(telemetry.HTTPStatusCodeKey, resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode torii rows: %w", err)
	}
	return nil
}

// table quotes a namespaced model table name.
func (c *Client) table(model string) string {
	return strconv.Quote(c.namespace + "-" + model)
}
