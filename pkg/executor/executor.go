// Package executor runs external processes on behalf of command
// backends. It is a thin, stateless wrapper: elevation, success
// checking, and output capture are per-call options, and dry-run turns
// every invocation into a log line.
package executor

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/logging"
	"github.com/arthur-debert/hostup/pkg/types"
	"github.com/rs/zerolog"
)

// ProcessRunner executes processes with optional sudo elevation and
// output capture. It implements types.Runner.
type ProcessRunner struct {
	logger zerolog.Logger
	dryRun bool
}

// NewProcessRunner creates a runner. With dryRun set, Run logs the argv
// and returns a zero RunResult without spawning anything.
func NewProcessRunner(dryRun bool) *ProcessRunner {
	return &ProcessRunner{
		logger: logging.GetLogger("executor"),
		dryRun: dryRun,
	}
}

// DryRun reports whether this runner elides process execution.
func (r *ProcessRunner) DryRun() bool {
	return r.dryRun
}

// Run executes argv and returns the exit code plus captured streams.
// With opts.Check set, a non-zero exit becomes a COMMAND_FAILED error
// embedding the captured stderr.
func (r *ProcessRunner) Run(argv []string, opts types.RunOpts) (types.RunResult, error) {
	if len(argv) == 0 {
		return types.RunResult{}, errors.New(errors.ErrInvalidInput, "run requires a non-empty argv")
	}

	full := argv
	if opts.Sudo {
		full = append([]string{"sudo"}, argv...)
	}

	// Low-level process logs stay at debug so the run report can remain
	// one line per declarative command.
	logging.LogCommand(full[0], full[1:])
	if opts.Dir != "" {
		r.logger.Debug().Str("dir", opts.Dir).Msg("Working directory set")
	}

	if r.dryRun {
		r.logger.Info().Str("cmd", strings.Join(full, " ")).Msg("Dry run, command not executed")
		return types.RunResult{Argv: full, ExitCode: 0}, nil
	}

	cmd := exec.Command(full[0], full[1:]...)
	if opts.Dir != "" {
		if _, err := os.Stat(opts.Dir); os.IsNotExist(err) {
			return types.RunResult{}, errors.Newf(errors.ErrFileAccess,
				"working directory does not exist: %s", opts.Dir)
		}
		cmd.Dir = opts.Dir
	}

	cmd.Env = os.Environ()
	for key, value := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	var stdout, stderr bytes.Buffer
	if opts.Capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Stdin = os.Stdin
	}

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		ok := false
		if exitErr, ok = err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			// Process never started (binary missing, permission denied).
			return types.RunResult{}, errors.Wrapf(err, errors.ErrCommandFailed,
				"failed to start %s", full[0])
		}
	}

	result := types.RunResult{
		Argv:     full,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if opts.Check && exitCode != 0 {
		return result, errors.Newf(errors.ErrCommandFailed,
			"command failed (%d): %s\n%s", exitCode, strings.Join(full, " "), result.Stderr).
			WithDetail("argv", full).
			WithDetail("exitCode", exitCode)
	}

	return result, nil
}
