package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairWatertightCube(t *testing.T) {
	model, err := FromTriangles("cube", cubeTriangles(20))
	require.NoError(t, err)

	result, err := Repair(model)
	require.NoError(t, err)

	assert.False(t, result.Repaired)
	assert.Empty(t, result.Warnings)
	assert.Len(t, result.Model.Triangles, 12)
	assert.InDelta(t, model.Volume(), result.Model.Volume(), 1e-3)
}

func TestRepairReorientsInvertedTriangle(t *testing.T) {
	triangles := cubeTriangles(20)

	// Flip the winding of one triangle; the surface stays closed but one
	// normal points inward.
	triangles[0].Vertices[1], triangles[0].Vertices[2] = triangles[0].Vertices[2], triangles[0].Vertices[1]

	model, err := FromTriangles("cube", triangles)
	require.NoError(t, err)

	result, err := Repair(model)
	require.NoError(t, err)

	assert.Greater(t, result.FlippedNormals, 0)
	assert.InDelta(t, 8000, result.Model.Volume(), 1e-3)
}

func TestRepairOpenMeshFails(t *testing.T) {
	// Drop one face: two triangles missing leaves a square hole that
	// vertex merging cannot close.
	triangles := cubeTriangles(20)[:10]

	model, err := FromTriangles("open", triangles)
	require.NoError(t, err)

	_, err = Repair(model)
	assert.ErrorIs(t, err, ErrNotWatertight)
}
