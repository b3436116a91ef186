package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/hschendel/stl"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrEmptyMesh is returned when an STL file contains no triangles.
var ErrEmptyMesh = errors.New("mesh contains no triangles")

// Model is a loaded triangulated surface together with its measurements.
type Model struct {
	Name      string
	Triangles []stl.Triangle

	bounds r3.Box
}

// Load reads a binary or ASCII STL file.
func Load(path string) (*Model, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL file %s: %w", path, err)
	}

	return FromTriangles(solid.Name, solid.Triangles)
}

// FromTriangles builds a Model and computes its bounding box.
func FromTriangles(name string, triangles []stl.Triangle) (*Model, error) {
	if len(triangles) == 0 {
		return nil, ErrEmptyMesh
	}

	bounds := r3.Box{
		Min: r3.Vec{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64},
		Max: r3.Vec{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64},
	}

	for _, t := range triangles {
		for _, v := range t.Vertices {
			bounds.Min.X = math.Min(bounds.Min.X, float64(v[0]))
			bounds.Min.Y = math.Min(bounds.Min.Y, float64(v[1]))
			bounds.Min.Z = math.Min(bounds.Min.Z, float64(v[2]))
			bounds.Max.X = math.Max(bounds.Max.X, float64(v[0]))
			bounds.Max.Y = math.Max(bounds.Max.Y, float64(v[1]))
			bounds.Max.Z = math.Max(bounds.Max.Z, float64(v[2]))
		}
	}

	return &Model{
		Name:      name,
		Triangles: triangles,
		bounds:    bounds,
	}, nil
}

// Bounds returns the axis-aligned bounding box.
func (m *Model) Bounds() r3.Box {
	return m.bounds
}

// Dims returns the extent along each axis.
func (m *Model) Dims() r3.Vec {
	return r3.Sub(m.bounds.Max, m.bounds.Min)
}

// Center returns the center of the bounding box.
func (m *Model) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(m.bounds.Min, m.bounds.Max))
}

// MinDim returns the smallest axis extent.
func (m *Model) MinDim() float64 {
	d := m.Dims()
	return math.Min(d.X, math.Min(d.Y, d.Z))
}

// MaxDim returns the largest axis extent.
func (m *Model) MaxDim() float64 {
	d := m.Dims()
	return math.Max(d.X, math.Max(d.Y, d.Z))
}

// UnitScale reports the corrective scale factor for meshes exported in the
// wrong unit. A model whose largest extent is below 1 is assumed to be in
// meters and gets scaled by 1000 to millimeters.
func (m *Model) UnitScale() float64 {
	if m.MaxDim() < 1 {
		return 1000
	}

	return 1
}

// Volume returns the enclosed volume as the sum of signed tetrahedra
// against the origin. Meaningful for closed meshes with consistent
// outward normals, which repair guarantees.
func (m *Model) Volume() float64 {
	var total float64

	for _, t := range m.Triangles {
		a := toVec(t.Vertices[0])
		b := toVec(t.Vertices[1])
		c := toVec(t.Vertices[2])
		total += r3.Dot(a, r3.Cross(b, c)) / 6
	}

	return math.Abs(total)
}

// Save writes the model as a binary STL file.
func (m *Model) Save(path string) error {
	solid := stl.Solid{
		Name:      m.Name,
		Triangles: m.Triangles,
	}

	if err := solid.WriteFile(path); err != nil {
		return fmt.Errorf("failed to write STL file %s: %w", path, err)
	}

	return nil
}

// Degenerate reports whether any axis extent is too small to hollow.
func (m *Model) Degenerate() bool {
	const minExtent = 1e-6
	return m.MinDim() < minExtent
}

func toVec(v stl.Vec3) r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}
