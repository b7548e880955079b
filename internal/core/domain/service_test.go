package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ServiceSpec Tests
// =============================================================================

func TestServiceSpecValidate(t *testing.T) {
	valid := ServiceSpec{
		Name:        "raincast-api",
		ContextPath: "./api",
		Image:       "gcr.io/demo/raincast-api",
		RoutePrefix: "/api/",
	}

	tests := []struct {
		name    string
		mutate  func(*ServiceSpec)
		wantErr bool
	}{
		{"valid", func(s *ServiceSpec) {}, false},
		{"missing name", func(s *ServiceSpec) { s.Name = "" }, true},
		{"missing context", func(s *ServiceSpec) { s.ContextPath = " " }, true},
		{"missing image", func(s *ServiceSpec) { s.Image = "" }, true},
		{"unrooted prefix", func(s *ServiceSpec) { s.RoutePrefix = "api/" }, true},
		{"root prefix ok", func(s *ServiceSpec) { s.RoutePrefix = "/" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)
			err := spec.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSpec)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// =============================================================================
// Deployed Service State Machine Tests
// =============================================================================

func TestValidateServiceTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    ServiceState
		to      ServiceState
		wantErr bool
	}{
		{"building to pushed", StateBuilding, StatePushed, false},
		{"pushed to deployed", StatePushed, StateDeployed, false},
		{"deployed to resolved", StateDeployed, StateResolved, false},
		{"building to failed", StateBuilding, StateFailed, false},
		{"pushed to failed", StatePushed, StateFailed, false},
		{"building to deployed skips push", StateBuilding, StateDeployed, true},
		{"resolved is terminal", StateResolved, StateFailed, true},
		{"failed is terminal", StateFailed, StateBuilding, true},
		{"unknown state", ServiceState("bogus"), StatePushed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceTransition(tt.from, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeployedServiceLifecycle(t *testing.T) {
	spec := ServiceSpec{
		Name:        "raincast-api",
		ContextPath: "./api",
		Image:       "gcr.io/demo/raincast-api",
		RoutePrefix: "/api/",
	}

	svc := NewDeployedService(spec)
	assert.Equal(t, StateBuilding, svc.State)

	// Address is unreadable before resolution.
	_, err := svc.Address()
	assert.ErrorIs(t, err, ErrNotResolved)

	require.NoError(t, svc.Transition(StatePushed))
	require.NoError(t, svc.Transition(StateDeployed))

	_, err = svc.Address()
	assert.ErrorIs(t, err, ErrNotResolved)

	require.NoError(t, svc.MarkResolved("https://api-xyz.example"))
	assert.Equal(t, StateResolved, svc.State)

	addr, err := svc.Address()
	require.NoError(t, err)
	assert.Equal(t, "https://api-xyz.example", addr)
}

func TestDeployedServiceMarkResolvedRejectsEmpty(t *testing.T) {
	svc := NewDeployedService(ServiceSpec{Name: "web", ContextPath: ".", Image: "img", RoutePrefix: "/"})
	require.NoError(t, svc.Transition(StatePushed))
	require.NoError(t, svc.Transition(StateDeployed))

	err := svc.MarkResolved("   ")
	assert.ErrorIs(t, err, ErrEmptyAddress)

	// The failed resolution leaves state untouched and address unset.
	assert.Equal(t, StateDeployed, svc.State)
	_, err = svc.Address()
	assert.ErrorIs(t, err, ErrNotResolved)
}

func TestDeployedServiceResolvedRequiresMarkResolved(t *testing.T) {
	svc := NewDeployedService(ServiceSpec{Name: "web", ContextPath: ".", Image: "img", RoutePrefix: "/"})
	require.NoError(t, svc.Transition(StatePushed))
	require.NoError(t, svc.Transition(StateDeployed))

	err := svc.Transition(StateResolved)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeployedServiceMarkFailed(t *testing.T) {
	svc := NewDeployedService(ServiceSpec{Name: "web", ContextPath: ".", Image: "img", RoutePrefix: "/"})
	svc.MarkFailed("push exploded")

	assert.Equal(t, StateFailed, svc.State)
	assert.Equal(t, "push exploded", svc.ErrorMessage)

	_, err := svc.Address()
	assert.ErrorIs(t, err, ErrNotResolved)
}
