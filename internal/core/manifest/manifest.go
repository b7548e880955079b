// Package manifest parses the deploy manifest into service specs.
// Pure parse: raw YAML in, decoupled domain values out.
package manifest

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artpar/raincast/internal/core/domain"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrEmptyInput    = errors.New("manifest is empty")
	ErrInvalidYAML   = errors.New("manifest is not valid YAML")
	ErrNoServices    = errors.New("manifest defines no services")
	ErrDuplicateName = errors.New("duplicate service name")
	ErrRootRoute     = errors.New("root route must belong to the last service")
)

// ParseError carries the manifest field that failed to parse.
type ParseError struct {
	Field   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("manifest: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Manifest Types
// =============================================================================

type manifestFile struct {
	Services []manifestService `yaml:"services"`
}

type manifestService struct {
	Name    string `yaml:"name"`
	Context string `yaml:"context"`
	Image   string `yaml:"image"`
	Route   string `yaml:"route"`
}

// =============================================================================
// Parsing
// =============================================================================

// Parse reads the deploy manifest and returns the service specs in file
// order. When a service omits image, DefaultImage(registry, project,
// name) fills it in; registry and project come from the execution
// context so manifests stay portable across projects.
func Parse(content string, registryHost, project string) ([]domain.ServiceSpec, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyInput
	}

	var mf manifestFile
	if err := yaml.Unmarshal([]byte(content), &mf); err != nil {
		return nil, &ParseError{Message: err.Error(), Err: ErrInvalidYAML}
	}
	if len(mf.Services) == 0 {
		return nil, ErrNoServices
	}

	seen := make(map[string]bool, len(mf.Services))
	specs := make([]domain.ServiceSpec, 0, len(mf.Services))
	for i, svc := range mf.Services {
		field := fmt.Sprintf("services[%d]", i)
		if seen[svc.Name] {
			return nil, &ParseError{Field: field, Message: svc.Name, Err: ErrDuplicateName}
		}
		seen[svc.Name] = true

		image := svc.Image
		if image == "" {
			image = DefaultImage(registryHost, project, svc.Name)
		}

		spec := domain.ServiceSpec{
			Name:        svc.Name,
			ContextPath: svc.Context,
			Image:       image,
			RoutePrefix: svc.Route,
		}
		if err := spec.Validate(); err != nil {
			return nil, &ParseError{Field: field, Message: err.Error(), Err: err}
		}
		specs = append(specs, spec)
	}

	if err := validateRoutes(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// validateRoutes checks that at most one service claims "/" and that it
// is the last manifest entry, mirroring the proxy-config invariant so
// bad manifests fail before anything is built.
func validateRoutes(specs []domain.ServiceSpec) error {
	for i, spec := range specs {
		if spec.RoutePrefix == "/" && i != len(specs)-1 {
			return &ParseError{
				Field:   fmt.Sprintf("services[%d]", i),
				Message: fmt.Sprintf("%s claims the root route but is not last", spec.Name),
				Err:     ErrRootRoute,
			}
		}
	}
	return nil
}

// DefaultImage builds the conventional image reference for a service:
// {registry}/{project}/{name}.
func DefaultImage(registryHost, project, name string) string {
	return fmt.Sprintf("%s/%s/%s", registryHost, project, name)
}
