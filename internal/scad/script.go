package scad

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"gonum.org/v1/gonum/spatial/r3"
)

// Params describes one hollowing job. Dims and Center are in output units,
// i.e. already multiplied by Scale when a unit correction applies.
type Params struct {
	InputPath string
	Scale     float64 // unit-correction factor applied around the import
	Dims      r3.Vec
	Center    r3.Vec
	Thickness float64 // wall thickness in output units
}

// scriptTemplate builds the difference of the part and an inner copy scaled
// down per axis, with a thin plate cut at the bottom face so the cavity
// stays open. Everything is centered at the origin first so the inner copy
// shrinks toward the part's own center.
const scriptTemplate = `module part() {
    scale([{{.Scale}}, {{.Scale}}, {{.Scale}}])
        import("{{.Input}}", convexity = 10);
}

module centered() {
    translate([{{neg .Center.X}}, {{neg .Center.Y}}, {{neg .Center.Z}}])
        part();
}

difference() {
    centered();
    scale([{{.InnerX}}, {{.InnerY}}, {{.InnerZ}}])
        centered();
    translate([0, 0, {{.CutZ}}])
        cube([{{add .Dims.X 1}}, {{add .Dims.Y 1}}, {{.CutH}}], center = true);
}
`

type scriptData struct {
	Input                  string
	Scale                  float64
	Center                 r3.Vec
	Dims                   r3.Vec
	InnerX, InnerY, InnerZ float64
	CutZ, CutH             float64
}

var scriptTmpl = template.Must(template.New("scad").Funcs(template.FuncMap{
	"neg": func(v float64) float64 { return -v },
	"add": func(a, b float64) float64 { return a + b },
}).Parse(scriptTemplate))

// Script renders the CSG script for the given job.
func Script(p Params) (string, error) {
	if p.Thickness <= 0 {
		return "", fmt.Errorf("thickness must be positive, got %g", p.Thickness)
	}

	for _, d := range []float64{p.Dims.X, p.Dims.Y, p.Dims.Z} {
		if 2*p.Thickness >= d {
			return "", fmt.Errorf("thickness %g leaves no cavity on a %g unit axis", p.Thickness, d)
		}
	}

	data := scriptData{
		// OpenSCAD wants forward slashes regardless of platform.
		Input:  filepath.ToSlash(p.InputPath),
		Scale:  p.Scale,
		Center: p.Center,
		Dims:   p.Dims,
		InnerX: (p.Dims.X - 2*p.Thickness) / p.Dims.X,
		InnerY: (p.Dims.Y - 2*p.Thickness) / p.Dims.Y,
		InnerZ: (p.Dims.Z - 2*p.Thickness) / p.Dims.Z,
		CutZ:   -p.Dims.Z / 2,
		CutH:   0.02,
	}

	var out strings.Builder
	if err := scriptTmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render CSG script: %w", err)
	}

	return out.String(), nil
}
