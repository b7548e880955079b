package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/raincast/internal/core/domain"
)

func testSpecs() []domain.ServiceSpec {
	return []domain.ServiceSpec{
		{Name: "raincast-api", ContextPath: "./api", Image: "gcr.io/demo/raincast-api", RoutePrefix: "/api/"},
		{Name: "raincast-web", ContextPath: "./web", Image: "gcr.io/demo/raincast-web", RoutePrefix: "/"},
	}
}

// =============================================================================
// Plan Tests
// =============================================================================

func TestBuildPlanStageOrder(t *testing.T) {
	plan, err := BuildPlan(testSpecs(), "raincast-proxy")
	require.NoError(t, err)

	stages := plan.Stages()
	require.Len(t, stages, 13)

	// Per-service stages in manifest order, fixed kind sequence.
	wantKinds := []StageKind{StageBuild, StagePush, StageDeploy, StageResolve}
	for i, kind := range wantKinds {
		assert.Equal(t, kind, stages[i].Kind)
		assert.Equal(t, "raincast-api", stages[i].Target)
		assert.False(t, stages[i].Proxy)
	}
	for i, kind := range wantKinds {
		assert.Equal(t, kind, stages[4+i].Kind)
		assert.Equal(t, "raincast-web", stages[4+i].Target)
	}

	// Proxy stages strictly after every service stage, synthesis first.
	proxyKinds := []StageKind{StageSynthesize, StageBuild, StagePush, StageDeploy, StageResolve}
	for i, kind := range proxyKinds {
		st := stages[8+i]
		assert.Equal(t, kind, st.Kind)
		assert.Equal(t, "raincast-proxy", st.Target)
		assert.True(t, st.Proxy)
	}
}

func TestBuildPlanServices(t *testing.T) {
	plan, err := BuildPlan(testSpecs(), "raincast-proxy")
	require.NoError(t, err)

	specs := plan.Services()
	require.Len(t, specs, 2)
	assert.Equal(t, "raincast-api", specs[0].Name)
	assert.Equal(t, "raincast-web", specs[1].Name)
}

func TestBuildPlanRejectsBadInput(t *testing.T) {
	t.Run("no services", func(t *testing.T) {
		_, err := BuildPlan(nil, "raincast-proxy")
		assert.Error(t, err)
	})

	t.Run("no proxy name", func(t *testing.T) {
		_, err := BuildPlan(testSpecs(), "")
		assert.Error(t, err)
	})

	t.Run("invalid spec", func(t *testing.T) {
		specs := testSpecs()
		specs[0].Image = ""
		_, err := BuildPlan(specs, "raincast-proxy")
		assert.ErrorIs(t, err, domain.ErrInvalidSpec)
	})

	t.Run("service name collides with proxy", func(t *testing.T) {
		specs := testSpecs()
		specs[1].Name = "raincast-proxy"
		_, err := BuildPlan(specs, "raincast-proxy")
		assert.Error(t, err)
	})
}

func TestPlanStagesReturnsCopy(t *testing.T) {
	plan, err := BuildPlan(testSpecs(), "raincast-proxy")
	require.NoError(t, err)

	stages := plan.Stages()
	stages[0].Target = "mutated"

	assert.Equal(t, "raincast-api", plan.Stages()[0].Target)
}

// =============================================================================
// Stage Error Tests
// =============================================================================

func TestStageErrorIdentifiesStageAndTarget(t *testing.T) {
	cause := assert.AnError
	err := NewStageError(StagePush, "raincast-api", cause)

	assert.Contains(t, err.Error(), "push")
	assert.Contains(t, err.Error(), "raincast-api")
	assert.ErrorIs(t, err, cause)
}
