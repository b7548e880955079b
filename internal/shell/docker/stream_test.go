package docker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Daemon Stream Tests
// =============================================================================

func TestDrainStreamForwardsProgress(t *testing.T) {
	body := strings.NewReader(`
{"stream":"Step 1/2 : FROM alpine\n"}
{"stream":"Step 2/2 : COPY . /app\n"}
{"status":"Pushing","id":"abc123"}
{"status":"Pushed"}
`)

	var lines []string
	err := drainStream(body, func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Step 1/2 : FROM alpine",
		"Step 2/2 : COPY . /app",
		"abc123 Pushing",
		"Pushed",
	}, lines)
}

func TestDrainStreamDetectsInStreamError(t *testing.T) {
	// The daemon reports build failures with a 200 response and an error
	// message embedded in the stream.
	body := strings.NewReader(`
{"stream":"Step 1/2 : FROM alpine\n"}
{"errorDetail":{"message":"executor failed running"},"error":"executor failed running"}
{"stream":"never reached\n"}
`)

	var lines []string
	err := drainStream(body, func(line string) {
		lines = append(lines, line)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executor failed running")
	assert.Equal(t, []string{"Step 1/2 : FROM alpine"}, lines)
}

func TestDrainStreamErrorDetailFallback(t *testing.T) {
	body := strings.NewReader(`{"errorDetail":{"message":"denied: access forbidden"}}`)

	err := drainStream(body, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied: access forbidden")
}

func TestDrainStreamMalformedJSON(t *testing.T) {
	body := strings.NewReader(`{"stream":"ok"}{not json`)

	err := drainStream(body, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode daemon stream")
}

func TestDrainStreamEmptyBody(t *testing.T) {
	err := drainStream(strings.NewReader(""), nil)
	assert.NoError(t, err)
}
