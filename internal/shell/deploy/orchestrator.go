// Package deploy sequences the deployment pipeline: build, push,
// deploy, and resolve each backend service, then synthesize the proxy
// configuration from the resolved addresses and ship the proxy the same
// way. First failure aborts everything; the scoped workspace is
// destroyed on every exit path; already-deployed services are never
// rolled back.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/raincast/internal/core/domain"
	"github.com/artpar/raincast/internal/core/nginx"
	"github.com/artpar/raincast/internal/core/pipeline"
	"github.com/artpar/raincast/internal/shell/store"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// ImageBuilder builds and publishes container images. Opaque: the
// orchestrator never inspects a build context's contents.
type ImageBuilder interface {
	BuildImage(ctx context.Context, contextDir, imageRef string) error
	PushImage(ctx context.Context, imageRef string) error
}

// ServiceDeployer runs a published image as a named service on the
// managed platform and resolves its assigned address.
type ServiceDeployer interface {
	Deploy(ctx context.Context, name, imageRef string) error
	ResolveAddress(ctx context.Context, name string) (string, error)
}

// =============================================================================
// Orchestrator
// =============================================================================

// Options carries the static inputs of one pipeline run.
type Options struct {
	Specs            []domain.ServiceSpec
	ProxyServiceName string
	ProxyImage       string
	ProxyListenPort  int
	ProxyBaseImage   string
}

// Result is the pipeline's final report.
type Result struct {
	ProxyURL string
	Routes   []nginx.Route
}

// Orchestrator drives the pipeline state machine against the shell
// collaborators.
type Orchestrator struct {
	ec       *ExecutionContext
	builder  ImageBuilder
	deployer ServiceDeployer
	store    store.Store // nil disables run history
	logger   *slog.Logger
	opts     Options
}

// NewOrchestrator wires an orchestrator. st may be nil: run history is
// additive and never blocks a deploy.
func NewOrchestrator(ec *ExecutionContext, builder ImageBuilder, deployer ServiceDeployer, st store.Store, logger *slog.Logger, opts Options) *Orchestrator {
	return &Orchestrator{
		ec:       ec,
		builder:  builder,
		deployer: deployer,
		store:    st,
		logger:   logger.With("run", ec.RunID),
		opts:     opts,
	}
}

// Run executes the full pipeline and returns the proxy's public address
// plus the routing table it was built with.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	// The workspace dies with the run, whatever the exit path.
	defer func() {
		if err := o.ec.Release(); err != nil {
			o.logger.Error("workspace cleanup failed", "error", err)
		}
	}()

	machine := pipeline.NewMachine()
	run := domain.NewPipelineRun(o.ec.RunID, o.ec.Project, o.ec.Region, string(machine.State()))
	o.createRun(ctx, run)

	fail := func(err error) (*Result, error) {
		if abortErr := machine.Abort(); abortErr != nil {
			o.logger.Error("abort transition rejected", "error", abortErr)
		}
		run.Finish(string(pipeline.StateAborted), "", err.Error())
		o.updateRun(ctx, run)
		o.logger.Error("pipeline aborted", "error", err)
		return nil, err
	}

	plan, err := pipeline.BuildPlan(o.opts.Specs, o.opts.ProxyServiceName)
	if err != nil {
		return fail(err)
	}

	if err := machine.Transition(pipeline.StateBuildingServices); err != nil {
		return fail(err)
	}

	// Build, push, deploy, and resolve every backend. The services have
	// no dependency on each other, but all of them must be resolved
	// before proxy synthesis may start.
	deployed := make([]*domain.DeployedService, 0, len(plan.Services()))
	for _, spec := range plan.Services() {
		svc := domain.NewDeployedService(spec)
		deployed = append(deployed, svc)
		if err := o.deployService(ctx, spec, svc); err != nil {
			return fail(err)
		}
	}

	if err := machine.Transition(pipeline.StateServicesDeployed); err != nil {
		return fail(err)
	}

	if err := machine.Transition(pipeline.StateSynthesizingProxy); err != nil {
		return fail(err)
	}

	routes, err := o.routesFor(plan.Services(), deployed)
	if err != nil {
		return fail(err)
	}

	proxyName := o.opts.ProxyServiceName
	if err := o.runStage(ctx, pipeline.StageSynthesize, proxyName, func() error {
		return o.synthesizeProxyContext(routes)
	}); err != nil {
		return fail(err)
	}

	if err := o.runStage(ctx, pipeline.StageBuild, proxyName, func() error {
		return o.builder.BuildImage(ctx, o.ec.Workspace.Dir(), o.opts.ProxyImage)
	}); err != nil {
		return fail(err)
	}

	if err := o.runStage(ctx, pipeline.StagePush, proxyName, func() error {
		return o.builder.PushImage(ctx, o.opts.ProxyImage)
	}); err != nil {
		return fail(err)
	}

	if err := o.runStage(ctx, pipeline.StageDeploy, proxyName, func() error {
		return o.deployer.Deploy(ctx, proxyName, o.opts.ProxyImage)
	}); err != nil {
		return fail(err)
	}

	if err := machine.Transition(pipeline.StateProxyDeployed); err != nil {
		return fail(err)
	}

	var proxyURL string
	if err := o.runStage(ctx, pipeline.StageResolve, proxyName, func() error {
		url, err := o.deployer.ResolveAddress(ctx, proxyName)
		if err != nil {
			return err
		}
		proxyURL = url
		return nil
	}); err != nil {
		return fail(err)
	}

	if err := machine.Transition(pipeline.StateDone); err != nil {
		return fail(err)
	}

	run.Finish(string(pipeline.StateDone), proxyURL, "")
	o.updateRun(ctx, run)

	o.logger.Info("pipeline done", "public_url", proxyURL)
	for _, r := range routes {
		o.logger.Info("route", "prefix", r.Prefix, "target", r.Target)
	}

	return &Result{ProxyURL: proxyURL, Routes: routes}, nil
}

// deployService runs the four per-service stages in order, tracking the
// service's own state machine alongside.
func (o *Orchestrator) deployService(ctx context.Context, spec domain.ServiceSpec, svc *domain.DeployedService) error {
	fail := func(err error) error {
		svc.MarkFailed(err.Error())
		return err
	}

	if err := o.runStage(ctx, pipeline.StageBuild, spec.Name, func() error {
		return o.builder.BuildImage(ctx, spec.ContextPath, spec.Image)
	}); err != nil {
		return fail(err)
	}

	if err := o.runStage(ctx, pipeline.StagePush, spec.Name, func() error {
		return o.builder.PushImage(ctx, spec.Image)
	}); err != nil {
		return fail(err)
	}
	if err := svc.Transition(domain.StatePushed); err != nil {
		return fail(err)
	}

	if err := o.runStage(ctx, pipeline.StageDeploy, spec.Name, func() error {
		return o.deployer.Deploy(ctx, spec.Name, spec.Image)
	}); err != nil {
		return fail(err)
	}
	if err := svc.Transition(domain.StateDeployed); err != nil {
		return fail(err)
	}

	if err := o.runStage(ctx, pipeline.StageResolve, spec.Name, func() error {
		address, err := o.deployer.ResolveAddress(ctx, spec.Name)
		if err != nil {
			return err
		}
		return svc.MarkResolved(address)
	}); err != nil {
		return fail(err)
	}

	return nil
}

// routesFor maps each spec's route prefix to its service's resolved
// address, preserving manifest order. Address() fails for anything not
// fully resolved, so synthesis can never observe a missing address.
func (o *Orchestrator) routesFor(specs []domain.ServiceSpec, deployed []*domain.DeployedService) ([]nginx.Route, error) {
	routes := make([]nginx.Route, 0, len(specs))
	for i, spec := range specs {
		address, err := deployed[i].Address()
		if err != nil {
			return nil, fmt.Errorf("route for %s: %w", spec.Name, err)
		}
		routes = append(routes, nginx.Route{Prefix: spec.RoutePrefix, Target: address})
	}
	return routes, nil
}

// synthesizeProxyContext renders the proxy config and image definition
// into the scoped workspace, which then serves as the proxy's build
// context.
func (o *Orchestrator) synthesizeProxyContext(routes []nginx.Route) error {
	text, err := nginx.Render(nginx.Config{
		ListenPort: o.opts.ProxyListenPort,
		Routes:     routes,
	})
	if err != nil {
		return err
	}

	if _, err := o.ec.Workspace.WriteFile("nginx.conf", text, 0o644); err != nil {
		return err
	}
	dockerfile := nginx.RenderDockerfile(o.opts.ProxyBaseImage, "nginx.conf")
	if _, err := o.ec.Workspace.WriteFile("Dockerfile", dockerfile, 0o644); err != nil {
		return err
	}
	return nil
}

// runStage executes one stage, logging and recording its outcome. A
// failure comes back as a StageError naming the stage and target.
func (o *Orchestrator) runStage(ctx context.Context, kind pipeline.StageKind, target string, fn func() error) error {
	o.logger.Info("stage started", "stage", string(kind), "target", target)
	o.recordStage(ctx, kind, target, "started", "")

	if err := fn(); err != nil {
		o.recordStage(ctx, kind, target, "failed", err.Error())
		return pipeline.NewStageError(kind, target, err)
	}

	o.logger.Info("stage completed", "stage", string(kind), "target", target)
	o.recordStage(ctx, kind, target, "completed", "")
	return nil
}

// =============================================================================
// Run History
// =============================================================================

func (o *Orchestrator) createRun(ctx context.Context, run *domain.PipelineRun) {
	if o.store == nil {
		return
	}
	if err := o.store.CreateRun(ctx, run); err != nil {
		o.logger.Warn("failed to record run", "error", err)
	}
}

func (o *Orchestrator) updateRun(ctx context.Context, run *domain.PipelineRun) {
	if o.store == nil {
		return
	}
	if err := o.store.UpdateRun(ctx, run); err != nil {
		o.logger.Warn("failed to update run record", "error", err)
	}
}

func (o *Orchestrator) recordStage(ctx context.Context, kind pipeline.StageKind, target, status, errMsg string) {
	if o.store == nil {
		return
	}
	event := &domain.StageEvent{
		RunID:     o.ec.RunID,
		Stage:     string(kind),
		Target:    target,
		Status:    status,
		Error:     errMsg,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.CreateStageEvent(ctx, event); err != nil {
		o.logger.Warn("failed to record stage event", "error", err)
	}
}
