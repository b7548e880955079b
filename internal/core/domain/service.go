// Package domain contains the pure deployment domain types.
// No I/O here; everything is values in, values out.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Service Errors
// =============================================================================

var (
	ErrInvalidTransition = errors.New("invalid service state transition")
	ErrEmptyAddress      = errors.New("resolved address is empty")
	ErrNotResolved       = errors.New("service address is not resolved")
	ErrInvalidSpec       = errors.New("invalid service spec")
)

// =============================================================================
// Service Spec
// =============================================================================

// ServiceSpec identifies one deployable unit. Built once from the deploy
// manifest at pipeline start and never mutated afterwards.
type ServiceSpec struct {
	// Name is the platform service name (also used for the image tag).
	Name string

	// ContextPath is the build context directory. The pipeline never
	// inspects its contents; it is handed to the builder as-is.
	ContextPath string

	// Image is the full image reference the build publishes to.
	Image string

	// RoutePrefix is the path prefix the proxy forwards to this service.
	RoutePrefix string
}

// Validate checks that the spec is complete enough to deploy.
func (s ServiceSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	if strings.TrimSpace(s.ContextPath) == "" {
		return fmt.Errorf("%w: %s: build context is required", ErrInvalidSpec, s.Name)
	}
	if strings.TrimSpace(s.Image) == "" {
		return fmt.Errorf("%w: %s: image reference is required", ErrInvalidSpec, s.Name)
	}
	if !strings.HasPrefix(s.RoutePrefix, "/") {
		return fmt.Errorf("%w: %s: route prefix must start with /", ErrInvalidSpec, s.Name)
	}
	return nil
}

// =============================================================================
// Deployed Service State Machine
// =============================================================================

// ServiceState tracks how far a service has progressed through the pipeline.
type ServiceState string

const (
	StateBuilding ServiceState = "building"
	StatePushed   ServiceState = "pushed"
	StateDeployed ServiceState = "deployed"
	StateResolved ServiceState = "resolved"
	StateFailed   ServiceState = "failed"
)

// validServiceTransitions defines the allowed state transitions.
// Failed is reachable from every non-terminal state; Resolved and
// Failed are terminal.
var validServiceTransitions = map[ServiceState][]ServiceState{
	StateBuilding: {StatePushed, StateFailed},
	StatePushed:   {StateDeployed, StateFailed},
	StateDeployed: {StateResolved, StateFailed},
	StateResolved: {},
	StateFailed:   {},
}

// ValidateServiceTransition checks if a state transition is valid.
func ValidateServiceTransition(from, to ServiceState) error {
	allowed, exists := validServiceTransitions[from]
	if !exists {
		return ErrInvalidTransition
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// DeployedService is the mutable per-service pipeline record. Only the
// deploy stage that owns it mutates it; downstream stages receive it by
// reference and may only read the address once resolved.
type DeployedService struct {
	Name  string
	Image string
	State ServiceState

	// resolvedAddress is unexported on purpose: it is set if and only
	// if State == StateResolved, and Address enforces that invariant
	// for every reader.
	resolvedAddress string

	// ErrorMessage holds the failure cause when State == StateFailed.
	ErrorMessage string
}

// NewDeployedService starts tracking a service at the building stage.
func NewDeployedService(spec ServiceSpec) *DeployedService {
	return &DeployedService{
		Name:  spec.Name,
		Image: spec.Image,
		State: StateBuilding,
	}
}

// Transition attempts to advance the service to a new state.
// Use MarkResolved for the transition into StateResolved.
func (d *DeployedService) Transition(to ServiceState) error {
	if to == StateResolved {
		return fmt.Errorf("%w: resolved requires an address, use MarkResolved", ErrInvalidTransition)
	}
	if err := ValidateServiceTransition(d.State, to); err != nil {
		return fmt.Errorf("%w: %s: %s -> %s", ErrInvalidTransition, d.Name, d.State, to)
	}
	d.State = to
	return nil
}

// MarkResolved records the platform-assigned address and moves the
// service into its terminal resolved state. An empty address is
// rejected: an empty proxy target would silently misroute all traffic.
func (d *DeployedService) MarkResolved(address string) error {
	if err := ValidateServiceTransition(d.State, StateResolved); err != nil {
		return fmt.Errorf("%w: %s: %s -> %s", ErrInvalidTransition, d.Name, d.State, StateResolved)
	}
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyAddress, d.Name)
	}
	d.resolvedAddress = address
	d.State = StateResolved
	return nil
}

// MarkFailed records the failure cause and moves the service into the
// terminal failed state, from whatever state it was in.
func (d *DeployedService) MarkFailed(cause string) {
	d.State = StateFailed
	d.ErrorMessage = cause
}

// Address returns the resolved address. It fails unless the service
// reached StateResolved, so no caller can observe a half-deployed
// service's address.
func (d *DeployedService) Address() (string, error) {
	if d.State != StateResolved {
		return "", fmt.Errorf("%w: %s is %s", ErrNotResolved, d.Name, d.State)
	}
	return d.resolvedAddress, nil
}
