package optimizer

import (
	"fmt"
)

// Optimization modes and their preset wall thicknesses.
const (
	ModeFast     = "fast"
	ModeBalanced = "balanced"

	presetFast     = 0.2
	presetBalanced = 0.8

	// thicknessFloor is the thinnest wall worth printing; thinner walls
	// come out porous on FDM printers.
	thicknessFloor = 0.4

	// cavityFraction is the share of the smallest axis that must remain
	// as cavity. It keeps the thickness ceiling strictly below half the
	// smallest dimension, so the inner copy of the hollowing script never
	// collapses to a zero-width solid.
	cavityFraction = 0.1
)

// PresetThickness returns the wall thickness preset for a mode.
func PresetThickness(mode string) (float64, error) {
	switch mode {
	case ModeFast:
		return presetFast, nil
	case ModeBalanced:
		return presetBalanced, nil
	default:
		return 0, fmt.Errorf("unknown mode: %s", mode)
	}
}

// DeriveThickness produces the effective wall thickness in output units.
// Preset values are clamped silently to [floor, ceiling], where the
// ceiling stays strictly below half the smallest dimension so a clamped
// value always leaves a cavity for the hollowing step to carve. An
// explicit override above the ceiling is rejected instead of clamped,
// since the user asked for something the model cannot hold.
func DeriveThickness(mode string, override, minDim float64) (float64, error) {
	ceiling := (1 - cavityFraction) * minDim / 2

	if override > 0 {
		if override > ceiling {
			return 0, fmt.Errorf("thickness %g exceeds the maximum %.2f for a smallest dimension of %.2f", override, ceiling, minDim)
		}

		return clampThickness(override, ceiling), nil
	}

	preset, err := PresetThickness(mode)
	if err != nil {
		return 0, err
	}

	return clampThickness(preset, ceiling), nil
}

// clampThickness applies the floor first; the ceiling wins when the model
// is too small to hold even the floor thickness.
func clampThickness(t, ceiling float64) float64 {
	if t < thicknessFloor {
		t = thicknessFloor
	}

	if t > ceiling {
		t = ceiling
	}

	return t
}
