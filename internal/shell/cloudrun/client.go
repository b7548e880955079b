// Package cloudrun deploys published images as Cloud Run services and
// resolves the addresses the platform assigns them. Deploy blocks on
// the platform's own long-running operation; no client-side polling or
// retrying is layered on top.
package cloudrun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	run "cloud.google.com/go/run/apiv2"
	"cloud.google.com/go/run/apiv2/runpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"cloud.google.com/go/iam/apiv1/iampb"
)

// =============================================================================
// Client
// =============================================================================

// Client deploys services to one project/region pair. Every service it
// manages serves HTTP on the same container port.
type Client struct {
	services      *run.ServicesClient
	project       string
	region        string
	containerPort int
	timeout       time.Duration
	logger        *slog.Logger
}

// NewClient creates a Cloud Run client. timeout bounds each blocking
// deploy/resolve call; zero means no client-imposed bound.
func NewClient(ctx context.Context, project, region string, containerPort int, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	services, err := run.NewServicesClient(ctx)
	if err != nil {
		return nil, NewPlatformError("NewClient", "", err.Error(), ErrConnectionFailed)
	}
	return &Client{
		services:      services,
		project:       project,
		region:        region,
		containerPort: containerPort,
		timeout:       timeout,
		logger:        logger,
	}, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.services.Close()
}

// parent returns the location path services are created under.
func (c *Client) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", c.project, c.region)
}

// serviceName returns the fully qualified service resource name.
func (c *Client) serviceName(name string) string {
	return fmt.Sprintf("%s/services/%s", c.parent(), name)
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// =============================================================================
// Deploy
// =============================================================================

// Deploy creates or updates the named service from a published image
// and blocks until the platform reports it live. Every deployed service
// accepts unauthenticated requests: the proxy and public callers reach
// the backends without platform credentials.
func (c *Client) Deploy(ctx context.Context, name, imageRef string) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	desired := &runpb.Service{
		Ingress: runpb.IngressTraffic_INGRESS_TRAFFIC_ALL,
		Template: &runpb.RevisionTemplate{
			Containers: []*runpb.Container{
				{
					Image: imageRef,
					Ports: []*runpb.ContainerPort{
						{ContainerPort: int32(c.containerPort)},
					},
				},
			},
		},
	}

	existing, err := c.services.GetService(ctx, &runpb.GetServiceRequest{Name: c.serviceName(name)})
	switch {
	case err == nil:
		c.logger.Info("updating service", "service", name, "image", imageRef)
		desired.Name = existing.GetName()
		op, err := c.services.UpdateService(ctx, &runpb.UpdateServiceRequest{Service: desired})
		if err != nil {
			return NewPlatformError("Deploy", name, err.Error(), ErrDeployFailed)
		}
		if _, err := op.Wait(ctx); err != nil {
			return NewPlatformError("Deploy", name, err.Error(), ErrDeployFailed)
		}

	case status.Code(err) == codes.NotFound:
		c.logger.Info("creating service", "service", name, "image", imageRef)
		op, err := c.services.CreateService(ctx, &runpb.CreateServiceRequest{
			Parent:    c.parent(),
			ServiceId: name,
			Service:   desired,
		})
		if err != nil {
			return NewPlatformError("Deploy", name, err.Error(), ErrDeployFailed)
		}
		if _, err := op.Wait(ctx); err != nil {
			return NewPlatformError("Deploy", name, err.Error(), ErrDeployFailed)
		}

	default:
		return NewPlatformError("Deploy", name, err.Error(), ErrDeployFailed)
	}

	if err := c.allowUnauthenticated(ctx, name); err != nil {
		return err
	}
	return nil
}

// allowUnauthenticated grants allUsers the invoker role on the service.
func (c *Client) allowUnauthenticated(ctx context.Context, name string) error {
	_, err := c.services.SetIamPolicy(ctx, &iampb.SetIamPolicyRequest{
		Resource: c.serviceName(name),
		Policy: &iampb.Policy{
			Bindings: []*iampb.Binding{
				{
					Role:    "roles/run.invoker",
					Members: []string{"allUsers"},
				},
			},
		},
	})
	if err != nil {
		return NewPlatformError("Deploy", name, fmt.Sprintf("failed to allow unauthenticated access: %v", err), ErrDeployFailed)
	}
	return nil
}

// =============================================================================
// Resolve
// =============================================================================

// ResolveAddress returns the externally reachable URL the platform
// assigned to the service. An empty URL is fatal: an empty proxy target
// would silently misroute all traffic.
func (c *Client) ResolveAddress(ctx context.Context, name string) (string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	svc, err := c.services.GetService(ctx, &runpb.GetServiceRequest{Name: c.serviceName(name)})
	if err != nil {
		return "", NewPlatformError("ResolveAddress", name, err.Error(), ErrResolutionFailed)
	}

	uri := svc.GetUri()
	if uri == "" {
		return "", NewPlatformError("ResolveAddress", name, "service has no URL", ErrEmptyAddress)
	}

	c.logger.Info("resolved service address", "service", name, "address", uri)
	return uri, nil
}
