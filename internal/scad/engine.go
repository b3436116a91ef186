package scad

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// ErrEngineTimeout is returned when the CSG engine exceeds its time budget.
var ErrEngineTimeout = errors.New("CSG engine timed out")

// Engine invokes an external OpenSCAD-compatible binary to perform the
// boolean geometry. The binary is the only part of the system that touches
// the actual solid modeling.
type Engine struct {
	Binary  string
	Timeout time.Duration
}

// Hollow renders the CSG script for p to a temp file and runs the engine
// with `-o <outputPath> <script>`. The temp script is always removed.
func (e *Engine) Hollow(ctx context.Context, p Params, outputPath string) error {
	script, err := Script(p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "printfast-*.scad")
	if err != nil {
		return fmt.Errorf("failed to create temp script: %w", err)
	}

	scriptPath := tmp.Name()
	defer os.Remove(scriptPath)

	if _, err = tmp.WriteString(script); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp script: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write temp script: %w", err)
	}

	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.Binary, "-o", outputPath, scriptPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w after %s", ErrEngineTimeout, e.Timeout)
		}

		return fmt.Errorf("CSG engine failed: %w: %s", err, tail(stderr.String(), 500))
	}

	if _, err = os.Stat(outputPath); err != nil {
		return fmt.Errorf("CSG engine exited cleanly but produced no output: %w", err)
	}

	return nil
}

// tail returns at most n trailing bytes of s, the part where OpenSCAD
// reports its errors.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return "..." + s[len(s)-n:]
}
