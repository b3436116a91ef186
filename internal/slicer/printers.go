package slicer

import (
	"embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// PrinterDefinition represents the complete printer configuration from a
// TOML file: identity, profile metadata, default print parameters, and the
// INI templates the profile is rendered from.
type PrinterDefinition struct {
	Name       string
	Definition string
	Metadata   struct {
		QualityType    string
		IntentCategory string
		SettingVersion int64
	}
	Parameters map[string]any
	Template   struct {
		Global   string
		Extruder string
	}
}

//go:embed printers/*.toml
var printerConfigs embed.FS

// LoadPrinterDefinition loads the embedded definition for a printer name.
// Names are normalized the same way the UI presents them: spaces become
// dashes, everything lowercased.
func LoadPrinterDefinition(printerName string) (*PrinterDefinition, error) {
	printerName = strings.ReplaceAll(printerName, " ", "-")
	printerName = strings.ToLower(printerName)

	if !isValidPrinterName(printerName) {
		return nil, fmt.Errorf("invalid printer name: %s", printerName)
	}

	data, err := printerConfigs.ReadFile("printers/" + printerName + ".toml")
	if err != nil {
		return nil, fmt.Errorf("printer definition not found: %s", printerName)
	}

	var def PrinterDefinition
	if err := toml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse printer definition %s: %w", printerName, err)
	}

	if def.Definition == "" {
		return nil, fmt.Errorf("printer definition %s is missing a Definition id", printerName)
	}

	normalizeParameters(&def)

	return &def, nil
}

// RawPrinterDefinition returns the embedded TOML source for a printer, for
// the template download endpoint.
func RawPrinterDefinition(printerName string) ([]byte, error) {
	printerName = strings.ReplaceAll(printerName, " ", "-")
	printerName = strings.ToLower(printerName)

	if !isValidPrinterName(printerName) {
		return nil, fmt.Errorf("invalid printer name: %s", printerName)
	}

	return printerConfigs.ReadFile("printers/" + printerName + ".toml")
}

// Printers lists the names of all embedded printer definitions.
func Printers() []string {
	entries, err := printerConfigs.ReadDir("printers")
	if err != nil {
		return nil
	}

	var names []string

	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".toml") {
			names = append(names, strings.TrimSuffix(name, ".toml"))
		}
	}

	return names
}

func isValidPrinterName(name string) bool {
	if len(name) == 0 {
		return false
	}

	for _, r := range name {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'

		if !isLetter && !isDigit && r != '-' && r != '_' {
			return false
		}
	}

	return true
}

// normalizeParameters converts all numeric values in Parameters to float64
// for template compatibility.
func normalizeParameters(def *PrinterDefinition) {
	if def.Parameters == nil {
		return
	}

	for key, value := range def.Parameters {
		switch v := value.(type) {
		case int:
			def.Parameters[key] = float64(v)
		case int32:
			def.Parameters[key] = float64(v)
		case int64:
			def.Parameters[key] = float64(v)
		case float32:
			def.Parameters[key] = float64(v)
		}
	}
}
