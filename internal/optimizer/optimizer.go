package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"printfast/internal/config"
	"printfast/internal/mesh"
	"printfast/internal/scad"
	"printfast/internal/slicer"
)

// Request describes one optimization job.
type Request struct {
	InputPath    string
	SourceName   string // original filename for output naming; InputPath base if empty
	OutputDir    string
	Mode         string  // fast or balanced
	MaxSpeed     int64   // mm/s
	Thickness    float64 // optional explicit wall thickness, 0 = use mode preset
	Printer      string
	EstimateTime bool
}

// Result is everything the caller needs to bundle a response.
type Result struct {
	OutputMesh  string // path to the hollowed STL
	ProfilePath string // path to the .curaprofile archive

	Dims            r3.Vec
	UnitScale       float64
	Thickness       float64
	OriginalVolume  float64 // mm^3
	OptimizedVolume float64 // mm^3

	OriginalTime  time.Duration
	OptimizedTime time.Duration
	TimeSource    string // "slicer" or "heuristic"

	Warnings []string
}

// Optimizer drives the pipeline: load, repair, derive parameters, hollow
// through the CSG engine, generate the slicer profile, estimate time.
type Optimizer struct {
	scad          *scad.Engine
	slicer        *slicer.Engine
	slicerEnabled bool
}

func New(cfg config.Config) *Optimizer {
	return &Optimizer{
		scad: &scad.Engine{
			Binary:  cfg.Scad.Binary,
			Timeout: cfg.ScadTimeout(),
		},
		slicer: &slicer.Engine{
			Binary:         cfg.Slicer.Binary,
			DefinitionsDir: cfg.Slicer.DefinitionsDir,
			Timeout:        cfg.SlicerTimeout(),
		},
		slicerEnabled: cfg.Slicer.Enabled,
	}
}

func (o *Optimizer) Run(ctx context.Context, req Request) (*Result, error) {
	log := slog.With("input", filepath.Base(req.InputPath))

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	model, err := mesh.Load(req.InputPath)
	if err != nil {
		return nil, err
	}

	if model.Degenerate() {
		return nil, fmt.Errorf("mesh has a zero-extent axis and cannot be hollowed")
	}

	repair, err := mesh.Repair(model)
	if err != nil {
		if errors.Is(err, mesh.ErrNotWatertight) {
			return nil, fmt.Errorf("%w: repair it manually in a mesh editor and retry", err)
		}

		return nil, err
	}

	model = repair.Model

	result := &Result{
		UnitScale: model.UnitScale(),
		Warnings:  repair.Warnings,
	}

	if repair.Repaired {
		result.Warnings = append(result.Warnings, "mesh was not watertight and was repaired automatically")
	}

	if repair.FlippedNormals > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d inward-facing triangles were reoriented", repair.FlippedNormals))
	}

	// All downstream numbers are in output units (mm).
	result.Dims = r3.Scale(result.UnitScale, model.Dims())
	center := r3.Scale(result.UnitScale, model.Center())
	minDim := result.UnitScale * model.MinDim()

	result.Thickness, err = DeriveThickness(req.Mode, req.Thickness, minDim)
	if err != nil {
		return nil, err
	}

	log.Info("derived parameters",
		"dims_x", result.Dims.X, "dims_y", result.Dims.Y, "dims_z", result.Dims.Z,
		"scale", result.UnitScale, "thickness", result.Thickness)

	// The CSG engine imports a file, so the repaired geometry has to be
	// written out even when the repair was a no-op.
	workDir, err := os.MkdirTemp("", "printfast-opt-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	repairedPath := filepath.Join(workDir, "repaired.stl")
	if err = model.Save(repairedPath); err != nil {
		return nil, fmt.Errorf("failed to write intermediate mesh: %w", err)
	}

	sourceName := req.SourceName
	if sourceName == "" {
		sourceName = req.InputPath
	}

	// Outputs land in a fresh directory under OutputDir so concurrent jobs
	// for the same filename and settings cannot overwrite each other. The
	// caller owns the directory once Run succeeds.
	jobDir, err := os.MkdirTemp(req.OutputDir, "job-")
	if err != nil {
		return nil, fmt.Errorf("failed to create job dir: %w", err)
	}

	done := false
	defer func() {
		if !done {
			os.RemoveAll(jobDir)
		}
	}()

	result.OutputMesh = filepath.Join(jobDir, outputName(sourceName, result.Thickness, req.Mode))

	err = o.scad.Hollow(ctx, scad.Params{
		InputPath: repairedPath,
		Scale:     result.UnitScale,
		Dims:      result.Dims,
		Center:    center,
		Thickness: result.Thickness,
	}, result.OutputMesh)
	if err != nil {
		return nil, err
	}

	cube := result.UnitScale * result.UnitScale * result.UnitScale
	result.OriginalVolume = cube * model.Volume()

	hollowed, err := mesh.Load(result.OutputMesh)
	if err != nil {
		return nil, fmt.Errorf("failed to read hollowed mesh: %w", err)
	}

	result.OptimizedVolume = hollowed.Volume()

	def, err := slicer.LoadPrinterDefinition(req.Printer)
	if err != nil {
		return nil, err
	}

	profileReq := slicer.ProfileRequest{
		Mode:      req.Mode,
		Thickness: result.Thickness,
		MaxSpeed:  req.MaxSpeed,
	}

	result.ProfilePath = strings.TrimSuffix(result.OutputMesh, ".stl") + ".curaprofile"
	if err = writeProfile(result.ProfilePath, def, profileReq); err != nil {
		return nil, err
	}

	o.estimateTimes(ctx, req, def, repairedPath, result, log)

	log.Info("optimization complete",
		"output", filepath.Base(result.OutputMesh),
		"volume_before", result.OriginalVolume,
		"volume_after", result.OptimizedVolume)

	done = true

	return result, nil
}

// estimateTimes fills the time fields. Slicer failures downgrade to a
// warning plus the arithmetic fallback; they never fail the job.
func (o *Optimizer) estimateTimes(ctx context.Context, req Request, def *slicer.PrinterDefinition, originalPath string, result *Result, log *slog.Logger) {
	if req.EstimateTime && o.slicerEnabled {
		speed := strconv.FormatInt(req.MaxSpeed, 10)
		overrides := map[string]string{
			"speed_print":  speed,
			"speed_wall_0": speed,
			"speed_wall_x": speed,
		}

		original, err := o.slicer.EstimatePrintTime(ctx, originalPath, def, nil)
		if err == nil {
			var optimized time.Duration

			overrides["wall_thickness"] = strconv.FormatFloat(result.Thickness, 'g', -1, 64)
			overrides["infill_sparse_density"] = "2"

			optimized, err = o.slicer.EstimatePrintTime(ctx, result.OutputMesh, def, overrides)
			if err == nil {
				result.OriginalTime = original
				result.OptimizedTime = optimized
				result.TimeSource = "slicer"

				return
			}
		}

		log.Warn("slicer time estimation failed, falling back to heuristic", "error", err)
		result.Warnings = append(result.Warnings, "print time estimated heuristically: "+err.Error())
	}

	estimate, savings := slicer.HeuristicEstimate(req.MaxSpeed)
	result.OptimizedTime = estimate
	result.OriginalTime = estimate + savings
	result.TimeSource = "heuristic"
}

// Report renders the human-readable summary bundled with the output files.
func (r *Result) Report() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dimensions: X=%.2f, Y=%.2f, Z=%.2f mm\n", r.Dims.X, r.Dims.Y, r.Dims.Z)

	if r.UnitScale != 1 {
		fmt.Fprintf(&b, "Unit correction applied: x%g (mesh appeared to be in meters)\n", r.UnitScale)
	}

	fmt.Fprintf(&b, "Wall thickness: %.2f mm\n", r.Thickness)
	fmt.Fprintf(&b, "Original volume: %.2f mm3\n", r.OriginalVolume)
	fmt.Fprintf(&b, "Optimized volume: %.2f mm3\n", r.OptimizedVolume)

	if r.OriginalVolume > 0 {
		saved := 100 * (1 - r.OptimizedVolume/r.OriginalVolume)
		fmt.Fprintf(&b, "Material saved: %.1f%%\n", saved)
	}

	fmt.Fprintf(&b, "Estimated print time: %s (was %s, source: %s)\n",
		r.OptimizedTime.Round(time.Second), r.OriginalTime.Round(time.Second), r.TimeSource)

	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}

	fmt.Fprintf(&b, "\nInstructions: load %q into your slicer, then import %q (File > Open Profile).\n",
		filepath.Base(r.OutputMesh), filepath.Base(r.ProfilePath))

	return b.String()
}

func validateRequest(req Request) error {
	if req.InputPath == "" {
		return fmt.Errorf("input path cannot be empty")
	}

	if req.Mode != ModeFast && req.Mode != ModeBalanced {
		return fmt.Errorf("unknown mode: %s", req.Mode)
	}

	if req.MaxSpeed < 10 || req.MaxSpeed > 1000 {
		return fmt.Errorf("invalid max speed %d: must be between 10 and 1000", req.MaxSpeed)
	}

	if req.Thickness < 0 {
		return fmt.Errorf("thickness cannot be negative")
	}

	return nil
}

// outputName builds the hollowed mesh filename:
// model.stl -> model_opt_t0.4_mfast.stl
func outputName(inputPath string, thickness float64, mode string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	return fmt.Sprintf("%s_opt_t%g_m%s.stl", base, thickness, mode)
}

func writeProfile(path string, def *slicer.PrinterDefinition, req slicer.ProfileRequest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create profile file: %w", err)
	}
	defer f.Close()

	if err := slicer.WriteCuraProfile(f, def, req); err != nil {
		return err
	}

	return f.Close()
}
