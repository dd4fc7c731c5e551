// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// lsctl inspects a Loot Survivor client core configuration.
//
// Usage:
//
//	lsctl validate -f config.yaml
//	lsctl chain -f config.yaml
//	lsctl logout -f config.yaml
//
// Exit codes:
//   - 0: success
//   - 1: configuration, network or storage error
//   - 2: usage error
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/lootsurvivor/internal/client"
	"github.com/ManuGH/lootsurvivor/internal/config"
	"github.com/ManuGH/lootsurvivor/internal/kvstore"
	"github.com/ManuGH/lootsurvivor/internal/session"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
	"golang.org/x/time/rate"
)

var Version = "dev"

const usage = `Usage:
  lsctl validate [-f config.yaml]   check configuration
  lsctl chain    [-f config.yaml]   compare the RPC node chain id with the configuration
  lsctl logout   [-f config.yaml]   remove stored session material
  lsctl version`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Environ(), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args, environ []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	cmd, rest := args[0], args[1:]
	if cmd == "version" || cmd == "--version" {
		fmt.Fprintln(stdout, Version)
		return 0
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	timeout := fs.Duration("timeout", 10*time.Second, "network timeout")
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	var action func(context.Context, config.AppConfig, io.Writer) error
	switch cmd {
	case "validate":
		action = func(context.Context, config.AppConfig, io.Writer) error { return nil }
	case "chain":
		action = checkChain
	case "logout":
		action = logout
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s\n", cmd, usage)
		return 2
	}

	cfg, err := config.NewLoader(file, Version).WithEnvironment(envMap(environ)).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", sourceName(file), err)
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if err := action(ctx, cfg, stdout); err != nil {
		fmt.Fprintf(stderr, "%s failed: %v\n", cmd, err)
		return 1
	}
	if cmd == "validate" {
		fmt.Fprintf(stdout, "✓ %s is valid\n", sourceName(file))
	}
	return 0
}

func checkChain(ctx context.Context, cfg config.AppConfig, stdout io.Writer) error {
	network, err := cfg.ResolveNetwork()
	if err != nil {
		return err
	}
	rpc := starknet.NewClient(network.RPCURL, starknet.Options{
		Timeout:        cfg.RPC.Timeout,
		MaxRetries:     cfg.RPC.MaxRetries,
		RateLimit:      rate.Limit(cfg.RPC.RateLimit),
		RateLimitBurst: cfg.RPC.Burst,
	})
	if err := client.VerifyChain(ctx, rpc, network.ChainID); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ %s serves %s\n", network.RPCURL, network.ChainID)
	return nil
}

func logout(ctx context.Context, cfg config.AppConfig, stdout io.Writer) (err error) {
	store, err := kvstore.Open(ctx, kvstore.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		Redis: kvstore.RedisConfig{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
			Prefix:   cfg.Storage.RedisPrefix,
		},
	})
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, store.Close()) }()

	removed, err := session.ClearStorage(ctx, store)
	for _, k := range removed {
		fmt.Fprintf(stdout, "removed %s\n", k)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ %d session keys removed\n", len(removed))
	return nil
}

func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

func sourceName(file string) string {
	if file == "" {
		return "defaults"
	}
	return file
}
