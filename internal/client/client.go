// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package client wires the action executor and the session handshake from
// one configuration. It is the only package the host shell imports.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/lootsurvivor/internal/bus"
	"github.com/ManuGH/lootsurvivor/internal/cache"
	"github.com/ManuGH/lootsurvivor/internal/config"
	"github.com/ManuGH/lootsurvivor/internal/deeplink"
	"github.com/ManuGH/lootsurvivor/internal/executor"
	"github.com/ManuGH/lootsurvivor/internal/felt"
	"github.com/ManuGH/lootsurvivor/internal/game"
	"github.com/ManuGH/lootsurvivor/internal/kvstore"
	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/platform/capability"
	"github.com/ManuGH/lootsurvivor/internal/session"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
	"github.com/ManuGH/lootsurvivor/internal/telemetry"
	"github.com/ManuGH/lootsurvivor/internal/torii"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrChainMismatch is returned by CheckChain when the RPC node serves a
// different chain than configured.
var ErrChainMismatch = errors.New("rpc node chain mismatch")

const cacheCleanupInterval = time.Minute

// Host holds the collaborators provided by the embedding shell.
type Host struct {
	// Game state and event translation. Required.
	Store      game.Store
	Translator game.Translator

	Notifier  executor.Notifier
	Reloader  executor.Reloader
	Navigator executor.Navigator

	// Registrar, Browser and Launch serve the native redirect handshake.
	Registrar session.Registrar
	Browser   session.Browser
	Launch    session.LaunchURLSource
	// Connector serves the web host.
	Connector session.Connector
}

// Client owns every long-lived component of the core.
type Client struct {
	cfg        config.AppConfig
	network    config.NetworkConfig
	capability capability.Capability
	logger     zerolog.Logger

	telemetry *telemetry.Provider
	store     kvstore.Store
	cache     cache.Cache
	chain     *starknet.Client
	indexer   *torii.Client
	receiver  *deeplink.Receiver

	Session  *session.Session
	Executor *executor.Executor
}

// New builds a Client. cfg is expected to have passed config.Validate.
// On error every component opened so far is closed again.
func New(ctx context.Context, cfg config.AppConfig, host Host) (_ *Client, err error) {
	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: cfg.Version,
		Console: cfg.Log.Format == "console",
	})

	cp, err := capability.Resolve(cfg.Platform)
	if err != nil {
		return nil, err
	}
	network, err := cfg.ResolveNetwork()
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		network:    network,
		capability: cp,
		logger:     xglog.WithComponent("client"),
	}
	defer func() {
		if err != nil {
			_ = c.Close(context.WithoutCancel(ctx))
		}
	}()

	c.telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: cfg.Version,
		Environment:    string(network.ChainID),
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
		c.telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{})
		if err != nil {
			return nil, err
		}
	}

	c.store, err = kvstore.Open(ctx, kvstore.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		Redis:   c.redisStoreConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	if c.cache, err = c.openCache(ctx); err != nil {
		return nil, err
	}

	c.chain = starknet.NewClient(network.RPCURL, starknet.Options{
		Timeout:        cfg.RPC.Timeout,
		MaxRetries:     cfg.RPC.MaxRetries,
		Backoff:        cfg.RPC.Backoff,
		MaxBackoff:     cfg.RPC.MaxBackoff,
		RateLimit:      rate.Limit(cfg.RPC.RateLimit),
		RateLimitBurst: cfg.RPC.Burst,
	})
	c.indexer = torii.NewClient(network.ToriiURL, network.Namespace, torii.Options{
		Timeout:          cfg.RPC.Timeout,
		RateLimit:        rate.Limit(cfg.RPC.RateLimit),
		RateLimitBurst:   cfg.RPC.Burst,
		BreakerThreshold: cfg.RPC.BreakerThreshold,
		BreakerReset:     cfg.RPC.BreakerReset,
	})

	if err := c.buildSession(host); err != nil {
		return nil, err
	}

	c.Executor, err = executor.New(executor.Deps{
		Chain:      c.chain,
		State:      c.indexer,
		Store:      host.Store,
		Translator: host.Translator,
		Accounts:   c.Session,
		Builder:    game.NewBuilder(network.Contracts),
		Names:      c.Session,
		Notifier:   host.Notifier,
		Reloader:   host.Reloader,
		Navigator:  host.Navigator,
		Tokens:     c.indexer,
		Durable:    c.store,
		Cache:      c.cache,
	}, executor.Options{
		Timing:      cfg.Timing,
		ChainID:     string(network.ChainID),
		TokenURITTL: cfg.RPC.TokenURITTL,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str(xglog.FieldChainID, string(network.ChainID)).
		Str("platform", cp.String()).
		Str("provider", c.Session.Kind()).
		Str("store_backend", cfg.Storage.Backend).
		Msg("client core ready")
	return c, nil
}

func (c *Client) redisStoreConfig() kvstore.RedisConfig {
	return kvstore.RedisConfig{
		Addr:     c.cfg.Storage.RedisAddr,
		Password: c.cfg.Storage.RedisPassword,
		DB:       c.cfg.Storage.RedisDB,
		Prefix:   c.cfg.Storage.RedisPrefix,
	}
}

// openCache shares Redis with the session store when that backend is
// selected and keeps token URIs in process otherwise.
func (c *Client) openCache(ctx context.Context) (cache.Cache, error) {
	if c.cfg.Storage.Backend != "redis" {
		return cache.NewMemoryCache(cacheCleanupInterval), nil
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     c.cfg.Storage.RedisAddr,
		Password: c.cfg.Storage.RedisPassword,
		DB:       c.cfg.Storage.RedisDB,
		Prefix:   c.cfg.Storage.RedisPrefix + "cache:",
	}, xglog.WithComponent("cache"))
	if err != nil {
		return nil, fmt.Errorf("open token uri cache: %w", err)
	}
	return rc, nil
}

func (c *Client) buildSession(host Host) error {
	keychain := session.Keychain{
		BaseURL:     c.cfg.KeychainURL,
		RedirectURI: c.cfg.RedirectURI,
		Network:     c.network,
		Signers:     c.capability.SignupOptions(),
	}
	if c.capability.NativeRedirect() && c.capability.LoopbackRedirect() {
		r, err := deeplink.New(c.cfg.Deeplink, c)
		if err != nil {
			return err
		}
		uri, err := r.Listen()
		if err != nil {
			return err
		}
		c.receiver = r
		keychain.RedirectURI = uri
	}

	provider, err := session.Select(c.capability, session.NativeDeps{
		Store:     c.store,
		Registrar: host.Registrar,
		Browser:   host.Browser,
		Launch:    host.Launch,
		Bus:       bus.NewMemoryBus[session.Signal](c.cfg.Deeplink.BufferSize),
	}, session.NativeOptions{
		Keychain: keychain,
		Timing:   c.cfg.Timing,
	}, host.Connector)
	if err != nil {
		return err
	}
	c.Session = session.New(provider, c.store)
	return nil
}

// HandleDeepLink forwards a redirect to the session. The loopback
// receiver calls it too.
func (c *Client) HandleDeepLink(ctx context.Context, raw string) error {
	return c.Session.HandleDeepLink(ctx, raw)
}

// RedirectURI returns the redirect URI handed to the identity provider.
func (c *Client) RedirectURI() string {
	if c.receiver != nil {
		if uri, err := c.receiver.RedirectURI(); err == nil {
			return uri
		}
	}
	return c.cfg.RedirectURI
}

// Network returns the selected chain configuration.
func (c *Client) Network() config.NetworkConfig { return c.network }

// Capability returns the resolved host platform.
func (c *Client) Capability() capability.Capability { return c.capability }

// CheckChain compares the RPC node's chain id with the configured chain.
func (c *Client) CheckChain(ctx context.Context) error {
	return VerifyChain(ctx, c.chain, c.network.ChainID)
}

// VerifyChain reads the chain id served by chain and compares it with want.
func VerifyChain(ctx context.Context, chain *starknet.Client, want config.ChainID) error {
	id, err := chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	name, err := felt.DecodeShortString(id)
	if err != nil {
		return fmt.Errorf("decode chain id %q: %w", id, err)
	}
	if !strings.EqualFold(name, string(want)) {
		return fmt.Errorf("%w: node serves %s, configured %s", ErrChainMismatch, name, want)
	}
	return nil
}

// Run restores a stored session, checks the launch URL and serves the
// loopback receiver until ctx is canceled.
func (c *Client) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if c.receiver != nil {
		g.Go(func() error { return c.receiver.Run(gctx) })
	}
	g.Go(func() error {
		if _, ok, err := c.Session.Probe(gctx); err != nil {
			c.logger.Warn().Err(err).Msg("session restore failed")
		} else if ok {
			c.logger.Info().Msg("stored session restored")
		}
		if err := c.Session.Resume(gctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn().Err(err).Msg("launch url check failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

// Close cancels a running login and releases every component.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.Session != nil {
		c.Session.Close()
	}
	if c.receiver != nil {
		errs = append(errs, c.receiver.Close())
	}
	if c.cache != nil {
		errs = append(errs, c.cache.Close())
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	if c.telemetry != nil {
		errs = append(errs, c.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
