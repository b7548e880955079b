// Package docker wraps the Docker SDK for image build/push and the
// container lifecycle operations the local executor needs.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/go-connections/nat"
)

// =============================================================================
// Client
// =============================================================================

// Client implements image build/push and container operations against
// the Docker daemon.
type Client struct {
	cli          *client.Client
	registryAuth string
	logger       *slog.Logger
}

// NewClient creates a Docker client. If host is empty the default
// daemon socket from the environment is used. registryAuth is the
// base64 auth blob sent with pushes; empty means anonymous.
func NewClient(host, registryAuth string, logger *slog.Logger) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewDockerError("NewClient", "", "", "failed to create client", ErrConnectionFailed)
	}

	if registryAuth == "" {
		// The daemon requires a non-empty auth header on push even for
		// registries that accept anonymous writes.
		registryAuth, err = registry.EncodeAuthConfig(registry.AuthConfig{})
		if err != nil {
			cli.Close()
			return nil, NewDockerError("NewClient", "", "", "failed to encode empty registry auth", err)
		}
	}

	return &Client{cli: cli, registryAuth: registryAuth, logger: logger}, nil
}

// Ping checks if the Docker daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.cli.Ping(ctx); err != nil {
		return NewDockerError("Ping", "", "", fmt.Sprintf("failed to ping docker: %v", err), ErrConnectionFailed)
	}
	return nil
}

// Close closes the Docker client connection.
func (c *Client) Close() error {
	return c.cli.Close()
}

// =============================================================================
// Image Operations
// =============================================================================

// BuildImage builds the image from the given context directory and tags
// it with imageRef. The context is opaque to the pipeline: whatever
// Dockerfile and sources it contains are the daemon's business.
func (c *Client) BuildImage(ctx context.Context, contextDir, imageRef string) error {
	buildCtx, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return NewDockerError("BuildImage", "image", imageRef, fmt.Sprintf("failed to tar build context %s: %v", contextDir, err), ErrBuildFailed)
	}
	defer buildCtx.Close()

	resp, err := c.cli.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:        []string{imageRef},
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return NewDockerError("BuildImage", "image", imageRef, err.Error(), ErrBuildFailed)
	}
	defer resp.Body.Close()

	if err := drainStream(resp.Body, func(line string) {
		c.logger.Debug("build output", "image", imageRef, "line", line)
	}); err != nil {
		return NewDockerError("BuildImage", "image", imageRef, err.Error(), ErrBuildFailed)
	}
	return nil
}

// PushImage publishes a previously built image to its registry.
// Re-pushing overwrites the tag; this layer provides no versioning.
func (c *Client) PushImage(ctx context.Context, imageRef string) error {
	resp, err := c.cli.ImagePush(ctx, imageRef, image.PushOptions{
		RegistryAuth: c.registryAuth,
	})
	if err != nil {
		return NewDockerError("PushImage", "image", imageRef, err.Error(), ErrPushFailed)
	}
	defer resp.Close()

	if err := drainStream(resp, func(line string) {
		c.logger.Debug("push output", "image", imageRef, "line", line)
	}); err != nil {
		return NewDockerError("PushImage", "image", imageRef, err.Error(), ErrPushFailed)
	}
	return nil
}

// =============================================================================
// Network Operations
// =============================================================================

// CreateNetwork creates a private bridge network.
func (c *Client) CreateNetwork(ctx context.Context, name string) (string, error) {
	resp, err := c.cli.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return "", NewDockerError("CreateNetwork", "network", name, "network already exists", ErrNetworkAlreadyExists)
		}
		return "", NewDockerError("CreateNetwork", "network", name, err.Error(), err)
	}
	return resp.ID, nil
}

// RemoveNetwork removes a network by ID or name.
func (c *Client) RemoveNetwork(ctx context.Context, id string) error {
	if err := c.cli.NetworkRemove(ctx, id); err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("RemoveNetwork", "network", id, "network not found", ErrNetworkNotFound)
		}
		return NewDockerError("RemoveNetwork", "network", id, err.Error(), err)
	}
	return nil
}

// =============================================================================
// Container Operations
// =============================================================================

// ContainerSpec describes one container for the local executor.
type ContainerSpec struct {
	Name    string
	Image   string
	Env     map[string]string
	Network string
	Ports   []PortBinding
}

// PortBinding publishes a container port on the host.
type PortBinding struct {
	ContainerPort int
	HostPort      int
	Protocol      string
}

// RunContainer creates and starts a container, returning its ID.
func (c *Client) RunContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	config := &container.Config{
		Image:        spec.Image,
		ExposedPorts: nat.PortSet{},
	}
	for k, v := range spec.Env {
		config.Env = append(config.Env, fmt.Sprintf("%s=%s", k, v))
	}

	hostConfig := &container.HostConfig{}
	if len(spec.Ports) > 0 {
		portBindings := nat.PortMap{}
		for _, p := range spec.Ports {
			proto := p.Protocol
			if proto == "" {
				proto = "tcp"
			}
			containerPort := nat.Port(fmt.Sprintf("%d/%s", p.ContainerPort, proto))
			config.ExposedPorts[containerPort] = struct{}{}

			hostPort := ""
			if p.HostPort != 0 {
				hostPort = fmt.Sprintf("%d", p.HostPort)
			}
			portBindings[containerPort] = []nat.PortBinding{{HostPort: hostPort}}
		}
		hostConfig.PortBindings = portBindings
	}

	var networkConfig *network.NetworkingConfig
	if spec.Network != "" {
		networkConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.Network: {},
			},
		}
	}

	resp, err := c.cli.ContainerCreate(ctx, config, hostConfig, networkConfig, nil, spec.Name)
	if err != nil {
		if strings.Contains(err.Error(), "Conflict") {
			return "", NewDockerError("RunContainer", "container", spec.Name, "container already exists", ErrContainerAlreadyExists)
		}
		return "", NewDockerError("RunContainer", "container", spec.Name, err.Error(), err)
	}

	if err := c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", NewDockerError("RunContainer", "container", spec.Name, err.Error(), err)
	}
	return resp.ID, nil
}

// StopContainer stops a running container.
func (c *Client) StopContainer(ctx context.Context, containerID string, timeoutSeconds int) error {
	opts := container.StopOptions{}
	if timeoutSeconds > 0 {
		opts.Timeout = &timeoutSeconds
	}
	if err := c.cli.ContainerStop(ctx, containerID, opts); err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("StopContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		return NewDockerError("StopContainer", "container", containerID, err.Error(), err)
	}
	return nil
}

// RemoveContainer removes a container.
func (c *Client) RemoveContainer(ctx context.Context, containerID string) error {
	err := c.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return NewDockerError("RemoveContainer", "container", containerID, err.Error(), err)
	}
	return nil
}
