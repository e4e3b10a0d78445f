package stroke

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testArtifactsDir = "testdata/artifacts"

func loadTestArtifacts(t *testing.T) *Artifacts {
	t.Helper()
	artifacts, err := LoadArtifacts(DefaultArtifactPaths(testArtifactsDir))
	require.NoError(t, err)
	return artifacts
}

func validPayload(t *testing.T) Payload {
	t.Helper()
	payload, err := ParsePayload([]byte(validBody))
	require.NoError(t, err)
	return payload
}
