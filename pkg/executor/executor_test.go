package executor_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/executor"
	"github.com/arthur-debert/hostup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	r := executor.NewProcessRunner(false)
	res, err := r.Run([]string{"sh", "-c", "echo out; echo err >&2"}, types.RunOpts{Capture: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRun_NonZeroExitWithoutCheck(t *testing.T) {
	r := executor.NewProcessRunner(false)
	res, err := r.Run([]string{"sh", "-c", "exit 3"}, types.RunOpts{Capture: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRun_CheckFailureEmbedsStderr(t *testing.T) {
	r := executor.NewProcessRunner(false)
	res, err := r.Run([]string{"sh", "-c", "echo broken >&2; exit 1"}, types.RunOpts{
		Capture: true,
		Check:   true,
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 1, res.ExitCode)
}

func TestRun_EmptyArgv(t *testing.T) {
	r := executor.NewProcessRunner(false)
	_, err := r.Run(nil, types.RunOpts{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestRun_MissingBinary(t *testing.T) {
	r := executor.NewProcessRunner(false)
	_, err := r.Run([]string{"hostup-no-such-binary-xyz"}, types.RunOpts{Capture: true})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))
}

func TestRun_DryRunSkipsExecution(t *testing.T) {
	r := executor.NewProcessRunner(true)
	assert.True(t, r.DryRun())

	// The binary does not exist; in dry-run that must not matter.
	res, err := r.Run([]string{"hostup-no-such-binary-xyz", "--flag"}, types.RunOpts{Check: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{"hostup-no-such-binary-xyz", "--flag"}, res.Argv)
}

func TestRun_SudoPrefixesArgv(t *testing.T) {
	r := executor.NewProcessRunner(true)
	res, err := r.Run([]string{"pacman", "-S", "htop"}, types.RunOpts{Sudo: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"sudo", "pacman", "-S", "htop"}, res.Argv)
}

func TestRun_WorkingDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	r := executor.NewProcessRunner(false)
	res, err := r.Run([]string{"sh", "-c", "pwd; printf '%s' \"$HOSTUP_TEST_VAR\""}, types.RunOpts{
		Capture: true,
		Dir:     dir,
		Env:     map[string]string{"HOSTUP_TEST_VAR": "wired"},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, resolved)
	assert.Contains(t, res.Stdout, "wired")
}

func TestRun_MissingWorkingDir(t *testing.T) {
	r := executor.NewProcessRunner(false)
	_, err := r.Run([]string{"sh", "-c", "true"}, types.RunOpts{Dir: "/no/such/dir/hostup"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileAccess))
}
