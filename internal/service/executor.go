package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Artifact is one image file produced by a run, collected from the working
// directory before it is cleaned up.
type Artifact struct {
	Name string
	Data []byte
}

// RunResult is the raw outcome of one executor invocation.
type RunResult struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Duration  time.Duration
	Artifacts []Artifact
}

// Executor runs assembled source as an isolated OS process. Implementations
// must honor the caller-supplied timeout and be killable; workDir is a
// per-run scratch directory owned by the caller.
type Executor interface {
	Run(ctx context.Context, source, workDir string, timeout time.Duration) (*RunResult, error)
}

// PythonExecutor spawns a Python interpreter per run. Plots render through
// the Agg backend into the working directory, where artifact collection
// picks up plot_* / figure_* files.
type PythonExecutor struct {
	PythonBin string
}

func NewPythonExecutor(pythonBin string) *PythonExecutor {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	return &PythonExecutor{PythonBin: pythonBin}
}

func (e *PythonExecutor) Run(ctx context.Context, source, workDir string, timeout time.Duration) (*RunResult, error) {
	scriptPath := filepath.Join(workDir, "run.py")
	if err := os.WriteFile(scriptPath, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("write source file: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.PythonBin, scriptPath)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"MPLBACKEND=Agg",
		"PYTHONIOENCODING=utf-8",
		"MPLCONFIGDIR="+workDir,
	)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	start := time.Now()
	if err := cmd.Start(); err != nil {
		// Spawn failure is an infrastructure fault, distinct from user
		// code exiting non-zero.
		return nil, fmt.Errorf("spawn %s: %w", e.PythonBin, err)
	}
	slog.Info("executor started", "pid", cmd.Process.Pid, "timeout", timeout)

	waitErr := cmd.Wait()
	duration := time.Since(start)

	exitCode := 0
	if waitErr != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			exitCode = -1
			if stderrBuf.Len() == 0 {
				fmt.Fprintf(&stderrBuf, "execution timed out after %s", timeout)
			}
		} else if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	slog.Info("executor finished",
		"exit_code", exitCode,
		"duration_ms", duration.Milliseconds(),
		"stdout_len", stdoutBuf.Len(),
		"stderr_len", stderrBuf.Len(),
	)

	return &RunResult{
		Stdout:    stdoutBuf.String(),
		Stderr:    stderrBuf.String(),
		ExitCode:  exitCode,
		Duration:  duration,
		Artifacts: collectArtifacts(workDir),
	}, nil
}

// collectArtifacts reads plot files written by the run, in name order.
// Read failures skip the file; the run result is still usable.
func collectArtifacts(workDir string) []Artifact {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".png") && !strings.HasSuffix(name, ".svg") {
			continue
		}
		if !strings.HasPrefix(name, "plot_") && !strings.HasPrefix(name, "figure_") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var artifacts []Artifact
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(workDir, name))
		if err != nil {
			continue
		}
		artifacts = append(artifacts, Artifact{Name: name, Data: data})
	}
	return artifacts
}
