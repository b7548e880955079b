// Package local runs the whole stack in Docker from a static compose
// file. No address resolution happens here: the proxy ships a static,
// pre-written config and reaches the backends by container name on a
// private network.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/artpar/raincast/internal/core/compose"
	"github.com/artpar/raincast/internal/shell/docker"
)

const stopTimeoutSeconds = 10

// =============================================================================
// Executor
// =============================================================================

// Executor brings a compose stack up, blocks until the context is
// cancelled, and tears everything down again.
type Executor struct {
	docker  *docker.Client
	logger  *slog.Logger
	project string
}

// NewExecutor creates a local executor. project prefixes every
// container and network name.
func NewExecutor(cli *docker.Client, logger *slog.Logger, project string) *Executor {
	return &Executor{docker: cli, logger: logger, project: project}
}

// Up builds all services from the stack file, attaches them to one
// private network, publishes only the ports the stack file declares
// (the proxy's listen port), and blocks in the foreground until
// interrupted. Teardown runs on the way out.
func (e *Executor) Up(ctx context.Context, stackPath string) error {
	content, err := os.ReadFile(stackPath)
	if err != nil {
		return fmt.Errorf("read stack file %s: %w", stackPath, err)
	}

	stack, err := compose.Parse(string(content))
	if err != nil {
		return err
	}

	baseDir := filepath.Dir(stackPath)

	// Build everything before creating any runtime state.
	images := make(map[string]string, len(stack.Services))
	for _, svc := range stack.Services {
		image, err := e.buildService(ctx, baseDir, svc)
		if err != nil {
			return err
		}
		images[svc.Name] = image
	}

	networkName := e.project + "_default"
	networkID, err := e.docker.CreateNetwork(ctx, networkName)
	if err != nil {
		if !errors.Is(err, docker.ErrNetworkAlreadyExists) {
			return err
		}
		networkID = networkName
		e.logger.Warn("reusing existing network", "network", networkName)
	}

	var started []string
	// Teardown must run however Up exits, including interrupts, so it
	// uses a fresh context: the one that cancelled us is already dead.
	defer func() {
		e.teardown(context.WithoutCancel(ctx), started, networkID)
	}()

	for _, svc := range stack.Services {
		spec := docker.ContainerSpec{
			Name:    fmt.Sprintf("%s_%s", e.project, svc.Name),
			Image:   images[svc.Name],
			Env:     svc.Environment,
			Network: networkName,
		}
		for _, p := range svc.Ports {
			spec.Ports = append(spec.Ports, docker.PortBinding{
				ContainerPort: int(p.Target),
				HostPort:      int(p.Published),
				Protocol:      p.Protocol,
			})
		}

		id, err := e.docker.RunContainer(ctx, spec)
		if err != nil {
			return err
		}
		started = append(started, id)
		e.logger.Info("container started", "service", svc.Name, "container", spec.Name)
	}

	e.logger.Info("stack is up", "services", len(stack.Services), "network", networkName)
	<-ctx.Done()
	e.logger.Info("shutting down stack")
	return nil
}

// buildService builds a service's image when it declares a build
// context, otherwise returns its pinned image reference.
func (e *Executor) buildService(ctx context.Context, baseDir string, svc compose.Service) (string, error) {
	if svc.Build == nil {
		return svc.Image, nil
	}

	if svc.Build.Dockerfile != "" && svc.Build.Dockerfile != "Dockerfile" {
		e.logger.Warn("custom dockerfile names are not supported, using Dockerfile", "service", svc.Name)
	}

	image := svc.Image
	if image == "" {
		image = fmt.Sprintf("%s/%s", e.project, svc.Name)
	}

	contextDir := svc.Build.Context
	if !filepath.IsAbs(contextDir) {
		contextDir = filepath.Join(baseDir, contextDir)
	}

	e.logger.Info("building service", "service", svc.Name, "context", contextDir, "image", image)
	if err := e.docker.BuildImage(ctx, contextDir, image); err != nil {
		return "", err
	}
	return image, nil
}

// teardown stops and removes the started containers (reverse start
// order) and the private network.
func (e *Executor) teardown(ctx context.Context, containerIDs []string, networkID string) {
	for i := len(containerIDs) - 1; i >= 0; i-- {
		id := containerIDs[i]
		if err := e.docker.StopContainer(ctx, id, stopTimeoutSeconds); err != nil {
			e.logger.Warn("failed to stop container", "container", id, "error", err)
		}
		if err := e.docker.RemoveContainer(ctx, id); err != nil {
			e.logger.Warn("failed to remove container", "container", id, "error", err)
		}
	}

	if networkID != "" {
		if err := e.docker.RemoveNetwork(ctx, networkID); err != nil {
			e.logger.Warn("failed to remove network", "network", networkID, "error", err)
		}
	}
}
