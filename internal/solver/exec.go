package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"time"
)

const (
	// defaultTimeout is the maximum time the engine may run before being killed.
	defaultTimeout = 2 * time.Hour

	// maxOutputSize caps how much engine stdout/stderr is retained (64MB).
	maxOutputSize = 64 * 1024 * 1024
)

// ExecSolver invokes the engine as a subprocess.
//
// Contract: the bundle is marshalled to JSON and written to the engine's
// stdin, which is then closed. The engine must write exactly one Results JSON
// object to stdout and exit zero. Any nonzero exit, timeout, or unparseable
// output becomes an ExecutionError carrying the captured stderr.
type ExecSolver struct {
	// Command is the engine invocation, argv style (e.g. ["resim", "--quiet"]).
	Command []string

	// Timeout overrides defaultTimeout when positive.
	Timeout time.Duration
}

// NewExecSolver creates a subprocess-backed solver for the given command.
func NewExecSolver(command []string, timeout time.Duration) (*ExecSolver, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("solver command cannot be empty")
	}
	return &ExecSolver{Command: command, Timeout: timeout}, nil
}

// Run executes the engine and parses its results.
func (s *ExecSolver) Run(ctx context.Context, bundle *Bundle) (*Results, error) {
	inputJSON, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal solver bundle: %w", err)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, s.Command[0], s.Command[1:]...)
	cmd.Stdin = bytes.NewReader(inputJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{buf: &stdout, limit: maxOutputSize}
	cmd.Stderr = &limitedWriter{buf: &stderr, limit: maxOutputSize}

	log.Printf("[INFO] Invoking solver: command=%v bundle_bytes=%d", s.Command, len(inputJSON))
	start := time.Now()
	runErr := cmd.Run()
	log.Printf("[INFO] Solver finished: duration=%s", time.Since(start))

	if execCtx.Err() == context.DeadlineExceeded {
		return nil, &ExecutionError{
			ExitCode: -1,
			Stderr:   stderr.String(),
			Reason:   fmt.Sprintf("engine timed out after %s", timeout),
		}
	}

	if runErr != nil {
		exitCode := -1
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, &ExecutionError{
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Reason:   runErr.Error(),
		}
	}

	var results Results
	if err := json.Unmarshal(stdout.Bytes(), &results); err != nil {
		return nil, &ExecutionError{
			ExitCode: 0,
			Stderr:   stderr.String(),
			Reason:   fmt.Sprintf("engine produced unparseable output: %v", err),
		}
	}

	if err := results.Validate(); err != nil {
		return nil, &ExecutionError{
			ExitCode: 0,
			Stderr:   stderr.String(),
			Reason:   err.Error(),
		}
	}

	return &results, nil
}

// limitedWriter discards bytes beyond its limit; an engine that floods stdout
// must not exhaust pipeline memory.
type limitedWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
