// Package pipeline models the deployment pipeline as a small explicit
// state machine with a read-only plan. The package is pure: the shell
// orchestrator drives it and performs the actual side effects.
package pipeline

import (
	"errors"
	"fmt"
)

// =============================================================================
// Pipeline States
// =============================================================================

// State is the coarse pipeline state.
type State string

const (
	StateInit              State = "init"
	StateBuildingServices  State = "building_services"
	StateServicesDeployed  State = "services_deployed"
	StateSynthesizingProxy State = "synthesizing_proxy"
	StateProxyDeployed     State = "proxy_deployed"
	StateDone              State = "done"
	StateAborted           State = "aborted"
)

var ErrInvalidTransition = errors.New("invalid pipeline transition")

// validTransitions defines the allowed pipeline transitions. Aborted is
// reachable from every non-terminal state; Done and Aborted are terminal.
var validTransitions = map[State][]State{
	StateInit:              {StateBuildingServices, StateAborted},
	StateBuildingServices:  {StateServicesDeployed, StateAborted},
	StateServicesDeployed:  {StateSynthesizingProxy, StateAborted},
	StateSynthesizingProxy: {StateProxyDeployed, StateAborted},
	StateProxyDeployed:     {StateDone, StateAborted},
	StateDone:              {},
	StateAborted:           {},
}

// ValidateTransition checks whether from -> to is an allowed transition.
func ValidateTransition(from, to State) error {
	allowed, exists := validTransitions[from]
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

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// =============================================================================
// Machine
// =============================================================================

// Machine tracks the pipeline's current state and enforces the
// transition table. The zero value is not usable; use NewMachine.
type Machine struct {
	state State
}

// NewMachine returns a machine in StateInit.
func NewMachine() *Machine {
	return &Machine{state: StateInit}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Transition advances the machine or fails without changing state.
func (m *Machine) Transition(to State) error {
	if err := ValidateTransition(m.state, to); err != nil {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	m.state = to
	return nil
}

// Abort moves the machine into the terminal aborted state. Aborting is
// always legal from a non-terminal state; aborting twice is an error.
func (m *Machine) Abort() error {
	return m.Transition(StateAborted)
}
