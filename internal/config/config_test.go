package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "openscad", cfg.Scad.Binary)
	assert.False(t, cfg.Slicer.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.ScadTimeout())
	assert.Equal(t, 3*time.Minute, cfg.SlicerTimeout())
}

func TestLoadOverrides(t *testing.T) {
	content := `
[server]
listen = ":9090"

[scad]
binary = "/opt/openscad/bin/openscad"
timeout_sec = 300

[slicer]
enabled = true
binary = "/usr/bin/CuraEngine"
definitions_dir = "/usr/share/cura/definitions"
timeout_sec = 60
`

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "/opt/openscad/bin/openscad", cfg.Scad.Binary)
	assert.Equal(t, 5*time.Minute, cfg.ScadTimeout())
	assert.True(t, cfg.Slicer.Enabled)
	assert.Equal(t, "/usr/share/cura/definitions", cfg.Slicer.DefinitionsDir)

	// Untouched sections keep their defaults.
	assert.Equal(t, "files/uploads", cfg.Files.Uploads)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad TOML", "[scad\nbinary = openscad"},
		{"zero timeout", "[scad]\ntimeout_sec = 0"},
		{"empty scad binary", `[scad]` + "\n" + `binary = ""`},
		{"slicer enabled without binary", "[slicer]\nenabled = true\nbinary = \"\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
