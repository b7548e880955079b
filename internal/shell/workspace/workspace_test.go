package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Workspace Tests
// =============================================================================

func TestCreateWriteCleanup(t *testing.T) {
	ws, err := Create("raincast-test")
	require.NoError(t, err)

	info, err := os.Stat(ws.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Contains(t, filepath.Base(ws.Dir()), "raincast-test")

	path, err := ws.WriteFile("nginx.conf", "server {}\n", 0o644)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Dir(), "nginx.conf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "server {}\n", string(data))

	require.NoError(t, ws.Cleanup())
	_, err = os.Stat(ws.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupIsIdempotent(t *testing.T) {
	ws, err := Create("raincast-test")
	require.NoError(t, err)

	require.NoError(t, ws.Cleanup())
	require.NoError(t, ws.Cleanup())
	require.NoError(t, ws.Cleanup())
}

func TestWriteAfterCleanupFails(t *testing.T) {
	ws, err := Create("raincast-test")
	require.NoError(t, err)
	require.NoError(t, ws.Cleanup())

	_, err = ws.WriteFile("late.conf", "data", 0o644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already cleaned up")
}

func TestWorkspacesDoNotCollide(t *testing.T) {
	a, err := Create("raincast-run")
	require.NoError(t, err)
	defer a.Cleanup()

	b, err := Create("raincast-run")
	require.NoError(t, err)
	defer b.Cleanup()

	assert.NotEqual(t, a.Dir(), b.Dir())
	assert.True(t, strings.HasPrefix(filepath.Base(a.Dir()), "raincast-run-"))
}
