package scad

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func testParams() Params {
	return Params{
		InputPath: "/tmp/model.stl",
		Scale:     1,
		Dims:      r3.Vec{X: 30, Y: 30, Z: 30},
		Center:    r3.Vec{X: 15, Y: 15, Z: 15},
		Thickness: 0.4,
	}
}

// fakeEngine writes a shell stub standing in for the OpenSCAD binary.
func fakeEngine(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "openscad")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))

	return path
}

func TestEngineHollow(t *testing.T) {
	// The stub copies the script it was given to the output path, so the
	// test can assert both on invocation and on the rendered script.
	engine := &Engine{
		Binary:  fakeEngine(t, `cp "$3" "$2"`),
		Timeout: 10 * time.Second,
	}

	outputPath := filepath.Join(t.TempDir(), "out.stl")
	require.NoError(t, engine.Hollow(context.Background(), testParams(), outputPath))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	assert.Contains(t, string(data), "difference() {")
	assert.Contains(t, string(data), `import("/tmp/model.stl"`)
}

func TestEngineFailure(t *testing.T) {
	engine := &Engine{
		Binary:  fakeEngine(t, `echo "ERROR: CGAL assertion" >&2; exit 1`),
		Timeout: 10 * time.Second,
	}

	err := engine.Hollow(context.Background(), testParams(), filepath.Join(t.TempDir(), "out.stl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSG engine failed")
	assert.Contains(t, err.Error(), "CGAL assertion")
}

func TestEngineNoOutput(t *testing.T) {
	// Engine exits 0 without producing the output file.
	engine := &Engine{
		Binary:  fakeEngine(t, `exit 0`),
		Timeout: 10 * time.Second,
	}

	err := engine.Hollow(context.Background(), testParams(), filepath.Join(t.TempDir(), "out.stl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced no output")
}

func TestEngineTimeout(t *testing.T) {
	engine := &Engine{
		Binary:  fakeEngine(t, `sleep 5`),
		Timeout: 100 * time.Millisecond,
	}

	err := engine.Hollow(context.Background(), testParams(), filepath.Join(t.TempDir(), "out.stl"))
	assert.ErrorIs(t, err, ErrEngineTimeout)
}

func TestEngineRemovesTempScript(t *testing.T) {
	tmpDir := os.TempDir()

	before, err := filepath.Glob(filepath.Join(tmpDir, "printfast-*.scad"))
	require.NoError(t, err)

	engine := &Engine{
		Binary:  fakeEngine(t, `cp "$3" "$2"`),
		Timeout: 10 * time.Second,
	}
	require.NoError(t, engine.Hollow(context.Background(), testParams(), filepath.Join(t.TempDir(), "out.stl")))

	after, err := filepath.Glob(filepath.Join(tmpDir, "printfast-*.scad"))
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}
