package backends_test

import (
	"testing"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/plugins/backends"
	"github.com/arthur-debert/hostup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner answers invocations with canned exit codes keyed by the
// leading argv words and records everything it is asked to run.
type stubRunner struct {
	exitCodes map[string]int
	calls     []recordedCall
}

type recordedCall struct {
	argv []string
	opts types.RunOpts
}

func (r *stubRunner) DryRun() bool { return false }

func (r *stubRunner) Run(argv []string, opts types.RunOpts) (types.RunResult, error) {
	r.calls = append(r.calls, recordedCall{argv: argv, opts: opts})

	key := argv[0] + " " + argv[1]
	code := r.exitCodes[key]
	res := types.RunResult{Argv: argv, ExitCode: code}
	if opts.Check && code != 0 {
		return res, errors.Newf(errors.ErrCommandFailed, "command failed (%d)", code)
	}
	return res, nil
}

func TestPacman_IsInstalled(t *testing.T) {
	runner := &stubRunner{exitCodes: map[string]int{"pacman -Qi": 0}}
	assert.True(t, backends.Pacman{Runner: runner}.IsInstalled("htop"))

	runner = &stubRunner{exitCodes: map[string]int{"pacman -Qi": 1}}
	assert.False(t, backends.Pacman{Runner: runner}.IsInstalled("htop"))
	assert.Equal(t, []string{"pacman", "-Qi", "htop"}, runner.calls[0].argv)
	assert.False(t, runner.calls[0].opts.Sudo)
}

func TestPacman_InstallElevates(t *testing.T) {
	runner := &stubRunner{}
	require.NoError(t, backends.Pacman{Runner: runner}.Install("htop"))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"pacman", "-S", "--noconfirm", "--needed", "htop"}, runner.calls[0].argv)
	assert.True(t, runner.calls[0].opts.Sudo)
	assert.True(t, runner.calls[0].opts.Check)
}

func TestYay_InstallDoesNotElevate(t *testing.T) {
	runner := &stubRunner{}
	require.NoError(t, backends.Yay{Runner: runner}.Install("hyprpaper"))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"yay", "-S", "--noconfirm", "--needed", "hyprpaper"}, runner.calls[0].argv)
	assert.False(t, runner.calls[0].opts.Sudo)
}

func TestSystemctl_Enable(t *testing.T) {
	runner := &stubRunner{}
	require.NoError(t, backends.Systemctl{Runner: runner}.Enable("sshd", false))
	assert.Equal(t, []string{"systemctl", "enable", "sshd"}, runner.calls[0].argv)
	assert.True(t, runner.calls[0].opts.Sudo)

	runner = &stubRunner{}
	require.NoError(t, backends.Systemctl{Runner: runner}.Enable("sshd", true))
	assert.Equal(t, []string{"systemctl", "enable", "--now", "sshd"}, runner.calls[0].argv)
}

func TestSystemctl_IsEnabled(t *testing.T) {
	runner := &stubRunner{exitCodes: map[string]int{"systemctl is-enabled": 1}}
	assert.False(t, backends.Systemctl{Runner: runner}.IsEnabled("sshd"))
}

func TestBash_RunScript(t *testing.T) {
	runner := &stubRunner{}
	_, err := backends.Bash{Runner: runner}.RunScript(
		[]string{"cd /tmp", "touch marker"}, "/home/user", false, false)
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "bash", call.argv[0])
	assert.Equal(t, "-lc", call.argv[1])
	assert.Equal(t, "set -euo pipefail\ncd /tmp\ntouch marker\n", call.argv[2])
	assert.Equal(t, "/home/user", call.opts.Dir)
	assert.True(t, call.opts.Capture)
	assert.True(t, call.opts.Check)
}

func TestBash_RunScriptShowOutputDisablesCapture(t *testing.T) {
	runner := &stubRunner{}
	_, err := backends.Bash{Runner: runner}.RunScript([]string{"make install"}, "", true, true)
	require.NoError(t, err)

	call := runner.calls[0]
	assert.False(t, call.opts.Capture)
	assert.True(t, call.opts.Sudo)
}
