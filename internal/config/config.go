// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the client core configuration.
package config

import "time"

// AppConfig is the effective configuration after defaults, file and environment.
type AppConfig struct {
	ChainID     ChainID `yaml:"chainId" env:"LS_CHAIN_ID"`
	Platform    string  `yaml:"platform" env:"LS_PLATFORM"`
	KeychainURL string  `yaml:"keychainUrl" env:"LS_KEYCHAIN_URL"`
	RedirectURI string  `yaml:"redirectUri" env:"LS_REDIRECT_URI"`
	DataDir     string  `yaml:"dataDir" env:"LS_DATA_DIR"`

	Network   NetworkOverrides `yaml:"network"`
	Storage   StorageConfig    `yaml:"storage"`
	RPC       RPCConfig        `yaml:"rpc"`
	Log       LogConfig        `yaml:"log"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	Deeplink  DeeplinkConfig   `yaml:"deeplink"`
	Timing    TimingConfig     `yaml:"timing"`

	Version string `yaml:"-"`
}

// NetworkOverrides replaces registry values for the selected chain. Empty
// fields keep the registry value.
type NetworkOverrides struct {
	RPCURL        string `yaml:"rpcUrl" env:"LS_RPC_URL"`
	ToriiURL      string `yaml:"toriiUrl" env:"LS_TORII_URL"`
	GameSystems   string `yaml:"gameSystems" env:"LS_GAME_SYSTEMS_ADDRESS"`
	GameToken     string `yaml:"gameToken" env:"LS_GAME_TOKEN_ADDRESS"`
	Settings      string `yaml:"settings" env:"LS_SETTINGS_ADDRESS"`
	Dungeon       string `yaml:"dungeon" env:"LS_DUNGEON_ADDRESS"`
	DungeonTicket string `yaml:"dungeonTicket" env:"LS_DUNGEON_TICKET_ADDRESS"`
	VRFProvider   string `yaml:"vrfProvider" env:"LS_VRF_PROVIDER_ADDRESS"`
	Beasts        string `yaml:"beasts" env:"LS_BEASTS_ADDRESS"`
}

// StorageConfig selects the durable key space backend.
type StorageConfig struct {
	// Backend is one of memory, badger, sqlite, redis.
	Backend       string `yaml:"backend" env:"LS_STORE_BACKEND"`
	Path          string `yaml:"path" env:"LS_STORE_PATH"`
	RedisAddr     string `yaml:"redisAddr" env:"LS_REDIS_ADDR"`
	RedisPassword string `yaml:"-" env:"LS_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redisDb" env:"LS_REDIS_DB"`
	RedisPrefix   string `yaml:"redisPrefix" env:"LS_REDIS_PREFIX"`
}

// RPCConfig tunes the chain and indexer HTTP clients.
type RPCConfig struct {
	Timeout          time.Duration `yaml:"timeout" env:"LS_RPC_TIMEOUT"`
	RateLimit        float64       `yaml:"rateLimit" env:"LS_RPC_RATE_LIMIT"`
	Burst            int           `yaml:"burst" env:"LS_RPC_BURST"`
	MaxRetries       int           `yaml:"maxRetries" env:"LS_RPC_MAX_RETRIES"`
	Backoff          time.Duration `yaml:"backoff" env:"LS_RPC_BACKOFF"`
	MaxBackoff       time.Duration `yaml:"maxBackoff" env:"LS_RPC_MAX_BACKOFF"`
	BreakerThreshold int           `yaml:"breakerThreshold" env:"LS_RPC_BREAKER_THRESHOLD"`
	BreakerReset     time.Duration `yaml:"breakerReset" env:"LS_RPC_BREAKER_RESET"`
	TokenURITTL      time.Duration `yaml:"tokenUriTtl" env:"LS_TOKEN_URI_TTL"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level   string `yaml:"level" env:"LOG_LEVEL"`
	Service string `yaml:"service" env:"LOG_SERVICE"`
	// Format is "json" or "console".
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"LS_TELEMETRY_ENABLED"`
	Exporter     string  `yaml:"exporter" env:"LS_TELEMETRY_EXPORTER"`
	Endpoint     string  `yaml:"endpoint" env:"LS_TELEMETRY_ENDPOINT"`
	SamplingRate float64 `yaml:"samplingRate" env:"LS_TELEMETRY_SAMPLING_RATE"`
	Insecure     bool    `yaml:"insecure" env:"LS_TELEMETRY_INSECURE"`
}

// DeeplinkConfig configures the loopback redirect receiver used on desktop.
type DeeplinkConfig struct {
	ListenAddr string `yaml:"listenAddr" env:"LS_DEEPLINK_LISTEN"`
	RateLimit  int    `yaml:"rateLimit" env:"LS_DEEPLINK_RATE_LIMIT"`
	BufferSize int    `yaml:"bufferSize" env:"LS_DEEPLINK_BUFFER"`
	// Metrics exposes Prometheus metrics on the receiver at /metrics.
	Metrics bool `yaml:"metrics" env:"LS_DEEPLINK_METRICS"`
}

// TimingConfig holds every bounded wait of the executor and the handshake.
// Retry counts are retries after the first attempt.
type TimingConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcileInterval" env:"LS_RECONCILE_INTERVAL"`
	ReconcileRetries  int           `yaml:"reconcileRetries" env:"LS_RECONCILE_RETRIES"`

	PreConfirmInterval time.Duration `yaml:"preConfirmInterval" env:"LS_PRECONFIRM_INTERVAL"`
	PreConfirmRetries  int           `yaml:"preConfirmRetries" env:"LS_PRECONFIRM_RETRIES"`
	ConfirmInterval    time.Duration `yaml:"confirmInterval" env:"LS_CONFIRM_INTERVAL"`
	ConfirmRetries     int           `yaml:"confirmRetries" env:"LS_CONFIRM_RETRIES"`
	// ConfirmBackoff is the pause between failed confirmation waits.
	ConfirmBackoff     time.Duration `yaml:"confirmBackoff" env:"LS_CONFIRM_BACKOFF"`
	// ReceiptPollLimit bounds status reads inside one confirmation wait.
	ReceiptPollLimit   int           `yaml:"receiptPollLimit" env:"LS_RECEIPT_POLL_LIMIT"`
	FatalReloadDelay   time.Duration `yaml:"fatalReloadDelay" env:"LS_FATAL_RELOAD_DELAY"`

	ClaimRetries      int           `yaml:"claimRetries" env:"LS_CLAIM_RETRIES"`
	ClaimRetryDelay   time.Duration `yaml:"claimRetryDelay" env:"LS_CLAIM_RETRY_DELAY"`
	ClaimWarmup       time.Duration `yaml:"claimWarmup" env:"LS_CLAIM_WARMUP"`
	ClaimPollInterval time.Duration `yaml:"claimPollInterval" env:"LS_CLAIM_POLL_INTERVAL"`
	ClaimPollRetries  int           `yaml:"claimPollRetries" env:"LS_CLAIM_POLL_RETRIES"`
	TokenURIInterval  time.Duration `yaml:"tokenUriInterval" env:"LS_TOKEN_URI_INTERVAL"`
	TokenURIRetries   int           `yaml:"tokenUriRetries" env:"LS_TOKEN_URI_RETRIES"`
	EnterDungeonDelay time.Duration `yaml:"enterDungeonDelay" env:"LS_ENTER_DUNGEON_DELAY"`
	BulkMintMax       int           `yaml:"bulkMintMax" env:"LS_BULK_MINT_MAX"`

	LoginMaxPending       time.Duration `yaml:"loginMaxPending" env:"LS_LOGIN_MAX_PENDING"`
	LoginLoadingTimeout   time.Duration `yaml:"loginLoadingTimeout" env:"LS_LOGIN_LOADING_TIMEOUT"`
	LoginPollInterval     time.Duration `yaml:"loginPollInterval" env:"LS_LOGIN_POLL_INTERVAL"`
	LoginPollAttempts     int           `yaml:"loginPollAttempts" env:"LS_LOGIN_POLL_ATTEMPTS"`
	LaunchCheckEvery      int           `yaml:"launchCheckEvery" env:"LS_LAUNCH_CHECK_EVERY"`
	BrowserSettle         time.Duration `yaml:"browserSettle" env:"LS_BROWSER_SETTLE"`
	BrowserLaunchAttempts int           `yaml:"browserLaunchAttempts" env:"LS_BROWSER_LAUNCH_ATTEMPTS"`
	BrowserBackoffStep    time.Duration `yaml:"browserBackoffStep" env:"LS_BROWSER_BACKOFF_STEP"`
	BrowserBackoffMax     time.Duration `yaml:"browserBackoffMax" env:"LS_BROWSER_BACKOFF_MAX"`
	StartupLaunchAttempts int           `yaml:"startupLaunchAttempts" env:"LS_STARTUP_LAUNCH_ATTEMPTS"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		ChainID:     ChainMainnet,
		Platform:    "desktop",
		KeychainURL: "https://x.cartridge.gg",
		RedirectURI: "lootsurvivor://open",
		DataDir:     "data",
		Storage: StorageConfig{
			Backend:     "badger",
			RedisPrefix: "ls:",
		},
		RPC: RPCConfig{
			Timeout:          10 * time.Second,
			RateLimit:        10,
			Burst:            20,
			MaxRetries:       2,
			Backoff:          200 * time.Millisecond,
			MaxBackoff:       2 * time.Second,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
			TokenURITTL:      10 * time.Minute,
		},
		Log: LogConfig{
			Level:   "info",
			Service: "lootsurvivor",
			Format:  "json",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		Deeplink: DeeplinkConfig{
			ListenAddr: "127.0.0.1:0",
			RateLimit:  30,
			BufferSize: 8,
		},
		Timing: DefaultTiming(),
	}
}

// DefaultTiming returns the production wait budgets.
func DefaultTiming() TimingConfig {
	return TimingConfig{
		ReconcileInterval: 500 * time.Millisecond,
		ReconcileRetries:  10,

		PreConfirmInterval: 275 * time.Millisecond,
		PreConfirmRetries:  5,
		ConfirmInterval:    350 * time.Millisecond,
		ConfirmRetries:     9,
		ConfirmBackoff:     500 * time.Millisecond,
		ReceiptPollLimit:   120,
		FatalReloadDelay:   3 * time.Second,

		ClaimRetries:      2,
		ClaimRetryDelay:   time.Second,
		ClaimWarmup:       3 * time.Second,
		ClaimPollInterval: time.Second,
		ClaimPollRetries:  20,
		TokenURIInterval:  time.Second,
		TokenURIRetries:   10,
		EnterDungeonDelay: 2 * time.Second,
		BulkMintMax:       50,

		LoginMaxPending:       55 * time.Second,
		LoginLoadingTimeout:   30 * time.Second,
		LoginPollInterval:     500 * time.Millisecond,
		LoginPollAttempts:     40,
		LaunchCheckEvery:      5,
		BrowserSettle:         1500 * time.Millisecond,
		BrowserLaunchAttempts: 10,
		BrowserBackoffStep:    time.Second,
		BrowserBackoffMax:     3 * time.Second,
		StartupLaunchAttempts: 3,
	}
}

// LoginBudget is the worst case time to the final storage check of a login:
// the loading timeout followed by the full poll phase.
func (t TimingConfig) LoginBudget() time.Duration {
	return t.LoginLoadingTimeout + time.Duration(t.LoginPollAttempts)*t.LoginPollInterval
}

// ResolveNetwork returns the registry entry for ChainID with overrides applied.
func (c AppConfig) ResolveNetwork() (NetworkConfig, error) {
	n, err := Network(c.ChainID)
	if err != nil {
		return NetworkConfig{}, err
	}
	o := c.Network
	override(&n.RPCURL, o.RPCURL)
	override(&n.ToriiURL, o.ToriiURL)
	override(&n.Contracts.GameSystems, o.GameSystems)
	override(&n.Contracts.GameToken, o.GameToken)
	override(&n.Contracts.Settings, o.Settings)
	override(&n.Contracts.Dungeon, o.Dungeon)
	override(&n.Contracts.DungeonTicket, o.DungeonTicket)
	override(&n.Contracts.VRFProvider, o.VRFProvider)
	override(&n.Contracts.Beasts, o.Beasts)
	return n, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
