// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/lootsurvivor/internal/validate"
)

var (
	platforms     = []string{"ios", "android", "web", "desktop"}
	storeBackends = []string{"memory", "badger", "sqlite", "redis"}
	exporters     = []string{"grpc", "http"}
	logFormats    = []string{"json", "console"}
)

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := cfg.ResolveNetwork(); err != nil {
		v.AddError("ChainID", err.Error(), cfg.ChainID)
	}
	v.OneOf("Platform", cfg.Platform, platforms)
	v.URL("KeychainURL", cfg.KeychainURL, []string{"https", "http"})
	v.URL("RedirectURI", cfg.RedirectURI, nil)

	if n, err := cfg.ResolveNetwork(); err == nil {
		v.URL("Network.RPCURL", n.RPCURL, []string{"https", "http"})
		v.URL("Network.ToriiURL", n.ToriiURL, []string{"https", "http"})
		for field, addr := range map[string]string{
			"Network.GameSystems":   n.Contracts.GameSystems,
			"Network.GameToken":     n.Contracts.GameToken,
			"Network.Settings":      n.Contracts.Settings,
			"Network.Dungeon":       n.Contracts.Dungeon,
			"Network.DungeonTicket": n.Contracts.DungeonTicket,
			"Network.VRFProvider":   n.Contracts.VRFProvider,
			"Network.Beasts":        n.Contracts.Beasts,
		} {
			if addr != "" {
				v.Felt(field, addr)
			}
		}
	}

	v.OneOf("Storage.Backend", cfg.Storage.Backend, storeBackends)
	switch cfg.Storage.Backend {
	case "badger", "sqlite":
		v.NotEmpty("Storage.Path", cfg.Storage.Path)
		v.Directory("DataDir", cfg.DataDir, false)
	case "redis":
		v.NotEmpty("Storage.RedisAddr", cfg.Storage.RedisAddr)
	}

	v.DurationRange("RPC.Timeout", cfg.RPC.Timeout, 100*time.Millisecond, 2*time.Minute)
	v.Range("RPC.MaxRetries", cfg.RPC.MaxRetries, 0, 10)
	v.Positive("RPC.Burst", cfg.RPC.Burst)
	v.Positive("RPC.BreakerThreshold", cfg.RPC.BreakerThreshold)

	if _, err := validate.ParseLogLevel(cfg.Log.Level); err != nil {
		v.AddError("Log.Level", err.Error(), cfg.Log.Level)
	}
	v.OneOf("Log.Format", cfg.Log.Format, logFormats)
	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, exporters)
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
	}

	v.NotEmpty("Deeplink.ListenAddr", cfg.Deeplink.ListenAddr)
	v.Positive("Deeplink.BufferSize", cfg.Deeplink.BufferSize)

	validateTiming(v, cfg.Timing)
	return v.Err()
}

func validateTiming(v *validate.Validator, t TimingConfig) {
	for field, d := range map[string]time.Duration{
		"Timing.ReconcileInterval":  t.ReconcileInterval,
		"Timing.PreConfirmInterval": t.PreConfirmInterval,
		"Timing.ConfirmInterval":    t.ConfirmInterval,
		"Timing.ClaimPollInterval":  t.ClaimPollInterval,
		"Timing.TokenURIInterval":   t.TokenURIInterval,
		"Timing.LoginPollInterval":  t.LoginPollInterval,
	} {
		v.DurationRange(field, d, time.Millisecond, time.Minute)
	}
	for field, n := range map[string]int{
		"Timing.ReconcileRetries":  t.ReconcileRetries,
		"Timing.PreConfirmRetries": t.PreConfirmRetries,
		"Timing.ConfirmRetries":    t.ConfirmRetries,
		"Timing.ClaimRetries":      t.ClaimRetries,
		"Timing.ClaimPollRetries":  t.ClaimPollRetries,
		"Timing.TokenURIRetries":   t.TokenURIRetries,
	} {
		v.Range(field, n, 0, 100)
	}
	v.Positive("Timing.ReceiptPollLimit", t.ReceiptPollLimit)
	v.Positive("Timing.BulkMintMax", t.BulkMintMax)
	v.Positive("Timing.LoginPollAttempts", t.LoginPollAttempts)
	v.Positive("Timing.LaunchCheckEvery", t.LaunchCheckEvery)
	v.Positive("Timing.BrowserLaunchAttempts", t.BrowserLaunchAttempts)
	v.Positive("Timing.StartupLaunchAttempts", t.StartupLaunchAttempts)
	// Polling starts after the loading timeout; both must fit the pending cap.
	if budget := t.LoginBudget(); budget > t.LoginMaxPending {
		v.AddError("Timing.LoginMaxPending", "must cover loading timeout plus poll budget", budget)
	}
}
