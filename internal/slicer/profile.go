package slicer

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
	"text/template"
)

// ProfileRequest holds the print settings a profile is rendered with.
type ProfileRequest struct {
	Mode      string
	Thickness float64
	MaxSpeed  int64
}

// ProfileName builds the profile name shown in the slicer UI,
// e.g. "PrintFast_fast_t0.4".
func (r ProfileRequest) ProfileName() string {
	return fmt.Sprintf("PrintFast_%s_t%g", r.Mode, r.Thickness)
}

type profileData struct {
	ProfileName    string
	Definition     string
	QualityType    string
	IntentCategory string
	SettingVersion int64
	Speed          int64
	Thickness      float64
}

// RenderProfile renders one of the definition's INI templates (global or
// extruder) for the given request.
func RenderProfile(def *PrinterDefinition, code string, req ProfileRequest) (string, error) {
	tmpl, err := template.New("profile").Funcs(template.FuncMap{
		"param": func(key string) (any, error) {
			v, ok := def.Parameters[key]
			if !ok {
				return nil, fmt.Errorf("printer %s has no parameter %q", def.Name, key)
			}

			return v, nil
		},
	}).Parse(code)
	if err != nil {
		return "", fmt.Errorf("failed to parse profile template: %w", err)
	}

	data := profileData{
		ProfileName:    req.ProfileName(),
		Definition:     def.Definition,
		QualityType:    def.Metadata.QualityType,
		IntentCategory: def.Metadata.IntentCategory,
		SettingVersion: def.Metadata.SettingVersion,
		Speed:          req.MaxSpeed,
		Thickness:      req.Thickness,
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render profile template: %w", err)
	}

	return out.String(), nil
}

// WriteCuraProfile writes the .curaprofile archive: a ZIP with the global
// profile entry and the paired extruder entry, named the way the slicer
// expects them.
func WriteCuraProfile(w io.Writer, def *PrinterDefinition, req ProfileRequest) error {
	global, err := RenderProfile(def, def.Template.Global, req)
	if err != nil {
		return err
	}

	extruder, err := RenderProfile(def, def.Template.Extruder, req)
	if err != nil {
		return err
	}

	name := req.ProfileName()

	zw := zip.NewWriter(w)

	entries := []struct {
		name string
		body string
	}{
		{fmt.Sprintf("%s_%s", def.Definition, name), global},
		{fmt.Sprintf("%s_extruder_0_#2_%s", def.Definition, name), extruder},
	}

	for _, e := range entries {
		fw, err := zw.Create(e.name)
		if err != nil {
			return fmt.Errorf("failed to create profile entry %s: %w", e.name, err)
		}

		if _, err := fw.Write([]byte(e.body)); err != nil {
			return fmt.Errorf("failed to write profile entry %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize profile archive: %w", err)
	}

	return nil
}
