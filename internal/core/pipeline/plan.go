package pipeline

import (
	"fmt"

	"github.com/artpar/raincast/internal/core/domain"
)

// =============================================================================
// Stages
// =============================================================================

// StageKind names one unit of pipeline work.
type StageKind string

const (
	StageBuild      StageKind = "build"
	StagePush       StageKind = "push"
	StageDeploy     StageKind = "deploy"
	StageResolve    StageKind = "resolve"
	StageSynthesize StageKind = "synthesize"
)

// Stage is one planned unit of work against a single target.
type Stage struct {
	Kind StageKind

	// Target is the service (or proxy) name the stage acts on.
	Target string

	// Spec is set for per-service stages; zero for the proxy stages,
	// whose build context is synthesized into the workspace at runtime.
	Spec domain.ServiceSpec

	// Proxy marks the trailing proxy stages that may only run after
	// every service stage has completed.
	Proxy bool
}

// =============================================================================
// Plan
// =============================================================================

// Plan is the ordered stage list for one run. It is built once at
// pipeline start and read-only afterwards.
type Plan struct {
	stages []Stage
}

// BuildPlan expands the service specs into the fixed stage sequence:
// build/push/deploy/resolve per service in manifest order, then
// synthesize/build/push/deploy/resolve for the proxy. The services have
// no ordering dependency between each other, but all of them strictly
// precede the proxy stages because the synthesized config consumes
// their resolved addresses.
func BuildPlan(specs []domain.ServiceSpec, proxyName string) (*Plan, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("plan requires at least one service")
	}
	if proxyName == "" {
		return nil, fmt.Errorf("plan requires a proxy service name")
	}

	var stages []Stage
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if spec.Name == proxyName {
			return nil, fmt.Errorf("service name %q collides with the proxy service", spec.Name)
		}
		for _, kind := range []StageKind{StageBuild, StagePush, StageDeploy, StageResolve} {
			stages = append(stages, Stage{Kind: kind, Target: spec.Name, Spec: spec})
		}
	}

	stages = append(stages,
		Stage{Kind: StageSynthesize, Target: proxyName, Proxy: true},
		Stage{Kind: StageBuild, Target: proxyName, Proxy: true},
		Stage{Kind: StagePush, Target: proxyName, Proxy: true},
		Stage{Kind: StageDeploy, Target: proxyName, Proxy: true},
		Stage{Kind: StageResolve, Target: proxyName, Proxy: true},
	)

	return &Plan{stages: stages}, nil
}

// Stages returns a copy of the planned stage sequence.
func (p *Plan) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Services returns the planned service specs in order, without the proxy.
func (p *Plan) Services() []domain.ServiceSpec {
	var specs []domain.ServiceSpec
	for _, st := range p.stages {
		if !st.Proxy && st.Kind == StageBuild {
			specs = append(specs, st.Spec)
		}
	}
	return specs
}
