package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Parser Tests
// =============================================================================

func TestParseBasicStack(t *testing.T) {
	content := `
services:
  api:
    build:
      context: ./api
    ports:
      - "8001:8000"
    environment:
      LOG_LEVEL: debug
  web:
    image: nginx:alpine
    ports:
      - "8080:80"
    depends_on:
      - api
`
	stack, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, stack.Services, 2)

	// depends_on ordering: api before web.
	api := stack.Services[0]
	web := stack.Services[1]
	assert.Equal(t, "api", api.Name)
	assert.Equal(t, "web", web.Name)

	require.NotNil(t, api.Build)
	assert.Equal(t, "./api", api.Build.Context)
	require.Len(t, api.Ports, 1)
	assert.Equal(t, uint32(8000), api.Ports[0].Target)
	assert.Equal(t, uint32(8001), api.Ports[0].Published)
	assert.Equal(t, "debug", api.Environment["LOG_LEVEL"])

	assert.Equal(t, "nginx:alpine", web.Image)
	assert.Equal(t, []string{"api"}, web.DependsOn)
}

func TestParseIsDeterministic(t *testing.T) {
	content := `
services:
  zeta:
    image: img-z
  alpha:
    image: img-a
  mid:
    image: img-m
`
	first, err := Parse(content)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Parse(content)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// Independent services come out in name order.
	assert.Equal(t, "alpha", first.Services[0].Name)
	assert.Equal(t, "mid", first.Services[1].Name)
	assert.Equal(t, "zeta", first.Services[2].Name)
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"empty", "  \n ", ErrEmptyInput},
		{"no services", "services: {}", ErrNoServices},
		{"invalid yaml", "services: [broken", ErrInvalidYAML},
		{
			"no image or build",
			`
services:
  ghost:
    environment:
      A: b
`,
			ErrServiceNoImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// =============================================================================
// Ordering Tests
// =============================================================================

func TestSortByDependenciesChain(t *testing.T) {
	services := []Service{
		{Name: "web", DependsOn: []string{"api"}},
		{Name: "api", DependsOn: []string{"db"}},
		{Name: "db"},
	}

	sorted := SortByDependencies(services)
	require.Len(t, sorted, 3)
	assert.Equal(t, "db", sorted[0].Name)
	assert.Equal(t, "api", sorted[1].Name)
	assert.Equal(t, "web", sorted[2].Name)
}

func TestSortByDependenciesKeepsIndependentOrder(t *testing.T) {
	services := []Service{
		{Name: "a"},
		{Name: "b"},
		{Name: "c"},
	}

	sorted := SortByDependencies(services)
	assert.Equal(t, services, sorted)
}

func TestSortByDependenciesCycleFallback(t *testing.T) {
	services := []Service{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	}

	// Cycles should not drop services.
	sorted := SortByDependencies(services)
	assert.Len(t, sorted, 2)
}
