package slicer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// timeMarker is the comment the slicing engine writes near the top of its
// G-code output with the estimated print time in seconds.
const timeMarker = ";TIME:"

// ErrTimeMarkerNotFound is returned when the produced G-code carries no
// time estimate.
var ErrTimeMarkerNotFound = errors.New("no ;TIME: marker found in slicer output")

// ErrSlicerTimeout is returned when the slicing engine exceeds its budget.
var ErrSlicerTimeout = errors.New("slicer timed out")

// Engine invokes an external CuraEngine-compatible binary to slice a mesh
// and read back its print-time estimate.
type Engine struct {
	Binary         string
	DefinitionsDir string
	Timeout        time.Duration
}

// EstimatePrintTime slices meshPath for the given printer and returns the
// engine's time estimate. Overrides are passed through as -s key=value
// settings, the slicer's profile-load mechanism on the command line.
func (e *Engine) EstimatePrintTime(ctx context.Context, meshPath string, def *PrinterDefinition, overrides map[string]string) (time.Duration, error) {
	gcodeDir, err := os.MkdirTemp("", "printfast-slice-")
	if err != nil {
		return 0, fmt.Errorf("failed to create slicer work dir: %w", err)
	}
	defer os.RemoveAll(gcodeDir)

	gcodePath := filepath.Join(gcodeDir, "out.gcode")
	definitionPath := filepath.Join(e.DefinitionsDir, def.Definition+".def.json")

	args := []string{
		"slice",
		"-j", definitionPath,
		"-s", "print_sequence=all_at_once",
	}

	// Stable ordering keeps invocations reproducible in logs.
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		args = append(args, "-s", k+"="+overrides[k])
	}

	args = append(args, "-l", meshPath, "-o", gcodePath)

	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.Binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return 0, fmt.Errorf("%w after %s", ErrSlicerTimeout, e.Timeout)
		}

		return 0, fmt.Errorf("slicer failed: %w: %s", err, lastLines(stderr.String(), 5))
	}

	return ParseTimeMarker(gcodePath)
}

// ParseTimeMarker scans a G-code file for the first ;TIME:<seconds> line.
func ParseTimeMarker(gcodePath string) (time.Duration, error) {
	file, err := os.Open(gcodePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open slicer output: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, timeMarker) {
			continue
		}

		seconds, err := strconv.ParseFloat(strings.TrimSpace(line[len(timeMarker):]), 64)
		if err != nil {
			return 0, fmt.Errorf("malformed time marker %q: %w", line, err)
		}

		return time.Duration(seconds * float64(time.Second)), nil
	}

	if err := scanner.Err(); err != nil {
		return 0, err
	}

	return 0, ErrTimeMarkerNotFound
}

// HeuristicEstimate is the fallback used when no slicing engine is
// configured: a fixed baseline print with savings proportional to the
// requested speed, the estimate the first tool version printed.
func HeuristicEstimate(maxSpeed int64) (estimate, savings time.Duration) {
	const (
		baseline  = 23 * time.Minute
		maxSaving = 6 * time.Minute
		refSpeed  = 200.0
	)

	ratio := float64(maxSpeed) / refSpeed
	if ratio > 1 {
		ratio = 1
	}

	savings = time.Duration(ratio * float64(maxSaving))

	return baseline - savings, savings
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	return strings.Join(lines, "; ")
}
