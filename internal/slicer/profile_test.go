package slicer

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrinterDefinition(t *testing.T) {
	def, err := LoadPrinterDefinition("anycubic-kobra-max")
	require.NoError(t, err)

	assert.Equal(t, "Anycubic Kobra Max", def.Name)
	assert.Equal(t, "anycubic_kobra_max", def.Definition)
	assert.Equal(t, "pla", def.Metadata.QualityType)
	assert.Equal(t, int64(24), def.Metadata.SettingVersion)

	// Parameters are normalized to float64 for template compatibility.
	assert.Equal(t, float64(2000), def.Parameters["acceleration_print"])
	assert.Equal(t, 0.2, def.Parameters["layer_height"])

	assert.NotEmpty(t, def.Template.Global)
	assert.NotEmpty(t, def.Template.Extruder)
}

func TestLoadPrinterDefinitionNormalizesName(t *testing.T) {
	def, err := LoadPrinterDefinition("Anycubic Kobra Max")
	require.NoError(t, err)
	assert.Equal(t, "anycubic_kobra_max", def.Definition)
}

func TestLoadPrinterDefinitionErrors(t *testing.T) {
	tests := []struct {
		name    string
		printer string
	}{
		{"unknown printer", "does-not-exist"},
		{"empty name", ""},
		{"path traversal", "../secrets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPrinterDefinition(tt.printer)
			assert.Error(t, err)
		})
	}
}

func TestPrinters(t *testing.T) {
	names := Printers()
	assert.Contains(t, names, "anycubic-kobra-max")
	assert.Contains(t, names, "creality-ender3")
}

func TestProfileName(t *testing.T) {
	req := ProfileRequest{Mode: "fast", Thickness: 0.4, MaxSpeed: 150}
	assert.Equal(t, "PrintFast_fast_t0.4", req.ProfileName())
}

func TestRenderProfileExtruder(t *testing.T) {
	def, err := LoadPrinterDefinition("anycubic-kobra-max")
	require.NoError(t, err)

	req := ProfileRequest{Mode: "fast", Thickness: 0.4, MaxSpeed: 150}

	body, err := RenderProfile(def, def.Template.Extruder, req)
	require.NoError(t, err)

	assert.Contains(t, body, "name = PrintFast_fast_t0.4")
	assert.Contains(t, body, "definition = anycubic_kobra_max")
	assert.Contains(t, body, "speed_print = 150")
	assert.Contains(t, body, "speed_wall_0 = 150")
	assert.Contains(t, body, "wall_thickness = 0.4")
	assert.Contains(t, body, "acceleration_print = 2000")
	assert.Contains(t, body, "infill_sparse_density = 2")
	assert.Contains(t, body, "position = 0")
}

func TestRenderProfileUnknownParameter(t *testing.T) {
	def, err := LoadPrinterDefinition("anycubic-kobra-max")
	require.NoError(t, err)

	_, err = RenderProfile(def, `{{param "no_such_setting"}}`, ProfileRequest{Mode: "fast"})
	assert.Error(t, err)
}

func TestWriteCuraProfile(t *testing.T) {
	def, err := LoadPrinterDefinition("anycubic-kobra-max")
	require.NoError(t, err)

	req := ProfileRequest{Mode: "balanced", Thickness: 0.8, MaxSpeed: 100}

	var buf bytes.Buffer
	require.NoError(t, WriteCuraProfile(&buf, def, req))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	assert.Equal(t, "anycubic_kobra_max_PrintFast_balanced_t0.8", zr.File[0].Name)
	assert.Equal(t, "anycubic_kobra_max_extruder_0_#2_PrintFast_balanced_t0.8", zr.File[1].Name)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()

	var body bytes.Buffer
	_, err = body.ReadFrom(rc)
	require.NoError(t, err)

	assert.Contains(t, body.String(), "speed_print = 100")
	assert.Contains(t, body.String(), "wall_thickness = 0.8")
}
