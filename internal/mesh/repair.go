package mesh

import (
	"errors"
	"fmt"

	"github.com/hschendel/stl"
	"github.com/unixpickle/model3d/model3d"
)

// ErrNotWatertight is returned when repair could not close the mesh.
// Callers should advise repairing in an external mesh editor.
var ErrNotWatertight = errors.New("mesh is not watertight and could not be repaired automatically")

const (
	// fineEpsilon merges vertices that differ only by export rounding.
	fineEpsilon = 1e-8
	// coarseEpsilon is the fallback for sloppier exports.
	coarseEpsilon = 1e-5
)

// RepairResult carries the repaired model and what was done to it.
type RepairResult struct {
	Model          *Model
	Repaired       bool     // vertices were merged to close the surface
	FlippedNormals int      // triangles whose normals were reoriented
	Warnings       []string // non-fatal findings, e.g. singular vertices
}

// Repair runs the fixed repair sequence against the mesh library: close the
// surface by merging near-duplicate vertices (fine epsilon first, coarse as
// the one fallback attempt), then reorient inward-facing normals. Singular
// vertices are reported as warnings. If the surface still is not closed after
// both attempts, ErrNotWatertight is returned.
func Repair(m *Model) (*RepairResult, error) {
	mesh := model3d.NewMeshTriangles(toModel3D(m.Triangles))

	result := &RepairResult{}

	if mesh.NeedsRepair() {
		mesh = mesh.Repair(fineEpsilon)
		result.Repaired = true
	}

	if mesh.NeedsRepair() {
		mesh = mesh.Repair(coarseEpsilon)
	}

	if mesh.NeedsRepair() {
		return nil, ErrNotWatertight
	}

	mesh, flipped := mesh.RepairNormals(fineEpsilon)
	result.FlippedNormals = flipped

	if singular := mesh.SingularVertices(); len(singular) > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("mesh has %d singular vertices; the hollowed result may need manual inspection", len(singular)))
	}

	repaired, err := FromTriangles(m.Name, fromModel3D(mesh))
	if err != nil {
		return nil, fmt.Errorf("repair produced an unusable mesh: %w", err)
	}

	result.Model = repaired

	return result, nil
}

func toModel3D(triangles []stl.Triangle) []*model3d.Triangle {
	out := make([]*model3d.Triangle, 0, len(triangles))

	for _, t := range triangles {
		tri := &model3d.Triangle{}
		for i, v := range t.Vertices {
			tri[i] = model3d.Coord3D{
				X: float64(v[0]),
				Y: float64(v[1]),
				Z: float64(v[2]),
			}
		}

		out = append(out, tri)
	}

	return out
}

func fromModel3D(mesh *model3d.Mesh) []stl.Triangle {
	var out []stl.Triangle

	mesh.Iterate(func(t *model3d.Triangle) {
		n := t.Normal()

		var st stl.Triangle

		st.Normal = stl.Vec3{float32(n.X), float32(n.Y), float32(n.Z)}
		for i, c := range t {
			st.Vertices[i] = stl.Vec3{float32(c.X), float32(c.Y), float32(c.Z)}
		}

		out = append(out, st)
	})

	return out
}
