package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/artpar/raincast/internal/core/manifest"
	"github.com/artpar/raincast/internal/shell/cloudrun"
	"github.com/artpar/raincast/internal/shell/deploy"
	"github.com/artpar/raincast/internal/shell/docker"
	"github.com/artpar/raincast/internal/shell/store"
)

// runDeploy wires the deploy pipeline and executes it.
func runDeploy(ctx context.Context, cfg *Config, logger *slog.Logger) int {
	// The execution context resolves first: a missing project identity
	// must abort before any client exists or side effect happens.
	ec, err := deploy.ResolveExecutionContext(cfg.Project.ID, cfg.Project.Region)
	if err != nil {
		logger.Error("configuration error", "error", err)
		return ExitFailure
	}
	defer ec.Release()

	data, err := os.ReadFile(cfg.Deploy.Manifest)
	if err != nil {
		logger.Error("failed to read deploy manifest", "manifest", cfg.Deploy.Manifest, "error", err)
		return ExitFailure
	}
	specs, err := manifest.Parse(string(data), cfg.Registry.Host, ec.Project)
	if err != nil {
		logger.Error("invalid deploy manifest", "manifest", cfg.Deploy.Manifest, "error", err)
		return ExitFailure
	}

	dockerClient, err := docker.NewClient(cfg.Docker.Host, cfg.Registry.Auth, logger)
	if err != nil {
		logger.Error("failed to create docker client", "error", err)
		return ExitFailure
	}
	defer dockerClient.Close()

	runClient, err := cloudrun.NewClient(ctx, ec.Project, ec.Region, cfg.Deploy.ServicePort, cfg.Deploy.Timeout, logger)
	if err != nil {
		logger.Error("failed to create platform client", "error", err)
		return ExitFailure
	}
	defer runClient.Close()

	st := openStore(cfg, logger)
	if st != nil {
		defer st.Close()
	}

	orch := deploy.NewOrchestrator(ec, dockerClient, runClient, st, logger, deploy.Options{
		Specs:            specs,
		ProxyServiceName: cfg.Proxy.ServiceName,
		ProxyImage:       manifest.DefaultImage(cfg.Registry.Host, ec.Project, cfg.Proxy.ServiceName),
		ProxyListenPort:  cfg.Proxy.ListenPort,
		ProxyBaseImage:   cfg.Proxy.BaseImage,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		return ExitFailure
	}

	fmt.Printf("deployed: %s\n", result.ProxyURL)
	for _, r := range result.Routes {
		fmt.Printf("  %s -> %s\n", r.Prefix, r.Target)
	}
	return ExitSuccess
}

// openStore opens the run-history store. History is additive: any
// failure here downgrades to a warning and the deploy proceeds.
func openStore(cfg *Config, logger *slog.Logger) store.Store {
	if cfg.Database.DSN == "" {
		return nil
	}
	if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Warn("failed to create database directory", "dir", dir, "error", err)
			return nil
		}
	}
	st, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		logger.Warn("run history disabled", "error", err)
		return nil
	}
	return st
}
