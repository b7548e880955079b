package compose

// =============================================================================
// Stack - Main Output Type
// =============================================================================

// Stack is the parsed local stack definition, decoupled from compose-go
// types so callers never depend on the loader's representation.
type Stack struct {
	Services []Service `json:"services"`
}

// =============================================================================
// Service Types
// =============================================================================

// Service is a single local service definition.
type Service struct {
	Name        string            `json:"name"`
	Image       string            `json:"image,omitempty"`
	Build       *BuildConfig      `json:"build,omitempty"`
	Ports       []Port            `json:"ports,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	DependsOn   []string          `json:"depends_on,omitempty"`
}

// BuildConfig is the service build configuration.
type BuildConfig struct {
	Context    string `json:"context"`
	Dockerfile string `json:"dockerfile,omitempty"`
}

// Port is a published port mapping.
type Port struct {
	Target    uint32 `json:"target"`              // Container port
	Published uint32 `json:"published,omitempty"` // Host port (0 = dynamic)
	Protocol  string `json:"protocol,omitempty"`  // tcp, udp
}
