// Package testrom provides utilities for running and validating CP/M
// instruction exercisers such as zexdoc, zexall and prelim.
package testrom

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/richardwooding/z80core/internal/emulator"
	"github.com/richardwooding/z80core/internal/loader"
)

// Output that marks the end of a run, and output that marks a failure.
var (
	CompletionMarkers = []string{"Tests complete", "tests complete", "all tests passed"}
	FailureMarker     = "ERROR"
)

// ErrNotCPM indicates the image is not a CP/M program.
var ErrNotCPM = errors.New("test programs must be CP/M .COM images")

// Result represents the result of running a test program.
type Result struct {
	Output  string
	Passed  bool
	Failed  bool
	Timeout bool
	Error   error
}

// Run loads the test program at path and runs it.
func Run(path string, timeout time.Duration, opts ...emulator.Option) *Result {
	img, err := loader.Load(path)
	if err != nil {
		return &Result{Error: fmt.Errorf("failed to load test program: %w", err)}
	}
	return RunImage(img, timeout, opts...)
}

// RunImage runs a CP/M test program under BDOS emulation until it reports
// completion, exits, or produces no output for timeout.
func RunImage(img *loader.Image, timeout time.Duration, opts ...emulator.Option) *Result {
	result := &Result{}
	if img.Format != loader.FormatCOM {
		result.Error = fmt.Errorf("%w: %s is %v", ErrNotCPM, img.Name, img.Format)
		return result
	}

	emu := emulator.New(append(opts, emulator.WithCPM())...)
	if err := emu.LoadProgram(0x0100, img.Data); err != nil {
		result.Error = fmt.Errorf("failed to create emulator: %w", err)
		return result
	}

	output, err := emu.RunUntilOutput(timeout, CompletionMarkers...)
	result.Output = output

	if err != nil {
		if errors.Is(err, emulator.ErrTimeout) {
			result.Timeout = true
		}
		result.Error = err
		return result
	}

	result.classify()
	return result
}

// classify parses the output for pass/fail. Failure wins when both appear:
// exercisers print every failing test and still report completion.
func (r *Result) classify() {
	r.Failed = strings.Contains(r.Output, FailureMarker)
	completed := false
	for _, marker := range CompletionMarkers {
		if strings.Contains(r.Output, marker) {
			completed = true
			break
		}
	}
	r.Passed = completed && !r.Failed
}

// String returns a human-readable representation of the result.
func (r *Result) String() string {
	if r.Error != nil && !r.Timeout {
		return fmt.Sprintf("ERROR: %v", r.Error)
	}

	if r.Timeout {
		return "TIMEOUT"
	}

	if r.Failed {
		return "FAILED"
	}

	if r.Passed {
		return "PASSED"
	}

	return "UNKNOWN"
}

// IsSuccess returns true if the test passed.
func (r *Result) IsSuccess() bool {
	return r.Passed && !r.Failed && r.Error == nil
}
