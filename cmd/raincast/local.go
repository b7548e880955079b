package main

import (
	"context"
	"log/slog"

	"github.com/artpar/raincast/internal/shell/docker"
	"github.com/artpar/raincast/internal/shell/local"
)

// runLocal brings the stack up in Docker and blocks until interrupted.
func runLocal(ctx context.Context, cfg *Config, logger *slog.Logger) int {
	cli, err := docker.NewClient(cfg.Docker.Host, "", logger)
	if err != nil {
		logger.Error("failed to create docker client", "error", err)
		return ExitFailure
	}
	defer cli.Close()

	if err := cli.Ping(ctx); err != nil {
		logger.Error("docker daemon unreachable", "error", err)
		return ExitFailure
	}

	executor := local.NewExecutor(cli, logger, cfg.Local.Project)
	if err := executor.Up(ctx, cfg.Local.StackFile); err != nil {
		logger.Error("local stack failed", "error", err)
		return ExitFailure
	}
	return ExitSuccess
}
