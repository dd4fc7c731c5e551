// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package starknet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
	"github.com/ManuGH/lootsurvivor/internal/platform/httpx"
	"github.com/ManuGH/lootsurvivor/internal/retry"
	"github.com/ManuGH/lootsurvivor/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Client talks JSON-RPC to a Starknet node.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	sleep      retry.Sleeper
	logger     zerolog.Logger
	nextID     atomic.Uint64

	mu  sync.Mutex
	rnd *rand.Rand
}

// Options configures the RPC client.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	Backoff        time.Duration
	MaxBackoff     time.Duration
	RateLimit      rate.Limit
	RateLimitBurst int
	// HTTPClient overrides the traced default client.
	HTTPClient *http.Client
	// Sleep overrides the wait between retries and status polls.
	Sleep retry.Sleeper
}

const (
	defaultTimeout        = 10 * time.Second
	defaultRetries        = 2
	defaultBackoff        = 200 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
	defaultRateLimit      = 20
	defaultRateLimitBurst = 40
)

// NewClient creates an RPC client for endpoint.
func NewClient(endpoint string, opts Options) *Client {
	opts = normalizeOptions(opts)
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpx.NewTracedClient(opts.Timeout, "starknet")
	}
	return &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		httpClient: hc,
		limiter:    rate.NewLimiter(opts.RateLimit, opts.RateLimitBurst),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		maxBackoff: opts.MaxBackoff,
		sleep:      opts.Sleep,
		logger:     xglog.WithComponent("starknet"),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
	}
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	return opts
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// ChainID returns the node's chain id as a felt hex string.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	var out string
	if err := c.call(ctx, "starknet_chainId", []any{}, &out); err != nil {
		return "", err
	}
	return out, nil
}

// GetTransactionStatus reads the finality and execution status of hash.
func (c *Client) GetTransactionStatus(ctx context.Context, hash string) (TransactionStatus, error) {
	var out TransactionStatus
	err := c.call(ctx, "starknet_getTransactionStatus", map[string]string{"transaction_hash": hash}, &out)
	return out, err
}

// GetTransactionReceipt fetches the receipt of an accepted transaction.
func (c *Client) GetTransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var out Receipt
	if err := c.call(ctx, "starknet_getTransactionReceipt", map[string]string{"transaction_hash": hash}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Call executes a read-only entry point against the latest block.
func (c *Client) Call(ctx context.Context, call Call) ([]string, error) {
	calldata := call.Calldata
	if calldata == nil {
		calldata = []string{}
	}
	params := map[string]any{
		"request": map[string]any{
			"contract_address":     call.ContractAddress,
			"entry_point_selector": Selector(call.Entrypoint),
			"calldata":             calldata,
		},
		"block_id": "latest",
	}
	var out []string
	if err := c.call(ctx, "starknet_call", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	tracer := telemetry.Tracer("lootsurvivor.starknet")
	ctx, span := tracer.Start(ctx, "starknet.rpc", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String(telemetry.RPCMethodKey, method))
	defer span.End()

	policy := retry.Policy{MaxRetries: c.maxRetries, Backoff: c.backoffFor, Sleep: c.sleep}
	raw, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (json.RawMessage, error) {
		return c.attempt(ctx, tracer, method, body, attempt)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// attempt performs one HTTP round trip. Transport errors and 5xx replies
// are retried; everything else ends the loop.
func (c *Client) attempt(ctx context.Context, tracer trace.Tracer, method string, body []byte, attempt int) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "starknet.rpc.attempt", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(telemetry.RPCAttributes(method, attempt+1)...)
	defer span.End()

	fail := func(err error, result string, start time.Time) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordUpstreamAttempt("starknet", method, result, time.Since(start).Seconds())
		return err
	}

	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, retry.Permanent(fail(err, "error", start))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fail(err, "error", start))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(fail(ctx.Err(), "error", start))
		}
		c.logger.Debug().Err(err).Str("method", method).Int(xglog.FieldAttempt, attempt+1).Msg("rpc attempt failed")
		return nil, fail(fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err), "retry", start)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(telemetry.HTTPAttributes(http.MethodPost, "", resp.StatusCode)...)

	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fail(fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode), "retry", start)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, retry.Permanent(fail(fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode), "error", start))
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, retry.Permanent(fail(fmt.Errorf("decode %s response: %w", method, err), "error", start))
	}
	if decoded.Error != nil {
		return nil, retry.Permanent(fail(decoded.Error, "error", start))
	}

	metrics.RecordUpstreamAttempt("starknet", method, "ok", time.Since(start).Seconds())
	span.SetStatus(codes.Ok, "")
	return decoded.Result, nil
}

func (c *Client) backoffFor(retryN int) time.Duration {
	wait := c.backoff * time.Duration(1<<(retryN-1))
	if wait > c.maxBackoff || wait <= 0 {
		wait = c.maxBackoff
	}
	jitter := time.Duration(c.randInt63n(int64(wait/5 + 1)))
	return wait + jitter
}

func (c *Client) randInt63n(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Int63n(n)
}

// IsRetryableRead reports whether a status read failure should keep a
// confirmation attempt polling.
func IsRetryableRead(err error) bool {
	return errors.Is(err, ErrTxNotFound)
}
