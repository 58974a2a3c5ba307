package plugins_test

import (
	"testing"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/plugins"
	"github.com/arthur-debert/hostup/pkg/registry"
	"github.com/arthur-debert/hostup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner answers with canned exit codes keyed by the first two
// argv words.
type stubRunner struct {
	dryRun    bool
	exitCodes map[string]int
	calls     [][]string
}

func (r *stubRunner) DryRun() bool { return r.dryRun }

func (r *stubRunner) Run(argv []string, opts types.RunOpts) (types.RunResult, error) {
	r.calls = append(r.calls, argv)
	if r.dryRun {
		return types.RunResult{Argv: argv}, nil
	}
	code := r.exitCodes[argv[0]+" "+argv[1]]
	res := types.RunResult{Argv: argv, ExitCode: code}
	if opts.Check && code != 0 {
		return res, errors.Newf(errors.ErrCommandFailed, "command failed (%d)", code)
	}
	return res, nil
}

func testContext(runner *stubRunner) *types.Context {
	return &types.Context{
		Runner:  runner,
		Options: types.Options{DryRun: runner.dryRun},
	}
}

func descriptor(kind string, fields map[string]interface{}) types.Descriptor {
	return types.Descriptor{Kind: kind, Fields: fields}
}

func TestBuiltin_RegistersCleanly(t *testing.T) {
	factory, err := registry.NewFactory(plugins.Builtin())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"package/<default>", "package/pacman", "package/yay",
		"service/<default>", "service/systemctl",
		"shell/<default>", "shell/bash",
		"symlink/<default>", "symlink/ln",
	}, factory.Handlers())
}

func TestPacmanPlugin_InstallsWhenMissing(t *testing.T) {
	runner := &stubRunner{exitCodes: map[string]int{"pacman -Qi": 1}}
	ctx := testContext(runner)

	cmd, err := (&plugins.PacmanPackagePlugin{}).Compile(
		descriptor("package", map[string]interface{}{"name": "htop"}), ctx)
	require.NoError(t, err)

	msg, err := cmd.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Installed Htop package.", msg)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"pacman", "-Qi", "htop"}, runner.calls[0])
	assert.Equal(t, []string{"pacman", "-S", "--noconfirm", "--needed", "htop"}, runner.calls[1])
}

func TestPacmanPlugin_SkipsWhenInstalled(t *testing.T) {
	runner := &stubRunner{exitCodes: map[string]int{"pacman -Qi": 0}}
	ctx := testContext(runner)

	cmd, err := (&plugins.PacmanPackagePlugin{}).Compile(
		descriptor("package", map[string]interface{}{"name": "htop"}), ctx)
	require.NoError(t, err)

	msg, err := cmd.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Htop package is already installed.", msg)
	assert.Len(t, runner.calls, 1)
}

func TestPackagePlugin_Validation(t *testing.T) {
	ctx := testContext(&stubRunner{})

	_, err := (&plugins.PacmanPackagePlugin{}).Compile(descriptor("package", nil), ctx)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigInvalid))

	// 'package' works as an alias for 'name'.
	cmd, err := (&plugins.PacmanPackagePlugin{}).Compile(
		descriptor("package", map[string]interface{}{"package": "git"}), ctx)
	require.NoError(t, err)
	assert.NotNil(t, cmd)
}

func TestYayPlugin_Install(t *testing.T) {
	runner := &stubRunner{exitCodes: map[string]int{"pacman -Qi": 1}}
	ctx := testContext(runner)

	cmd, err := (&plugins.YayPackagePlugin{}).Compile(
		descriptor("package", map[string]interface{}{"name": "hyprpaper"}), ctx)
	require.NoError(t, err)

	msg, err := cmd.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Installed Hyprpaper package.", msg)
	assert.Equal(t, []string{"yay", "-S", "--noconfirm", "--needed", "hyprpaper"}, runner.calls[1])
}

func TestServicePlugin_EnableFlow(t *testing.T) {
	runner := &stubRunner{exitCodes: map[string]int{"systemctl is-enabled": 1}}
	ctx := testContext(runner)

	cmd, err := (&plugins.SystemctlServicePlugin{}).Compile(
		descriptor("service", map[string]interface{}{"name": "sshd", "enable_now": true}), ctx)
	require.NoError(t, err)

	msg, err := cmd.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Enabled sshd.", msg)
	assert.Equal(t, []string{"systemctl", "enable", "--now", "sshd"}, runner.calls[1])
}

func TestServicePlugin_Validation(t *testing.T) {
	ctx := testContext(&stubRunner{})

	_, err := (&plugins.SystemctlServicePlugin{}).Compile(descriptor("service", nil), ctx)
	require.Error(t, err)

	_, err = (&plugins.SystemctlServicePlugin{}).Compile(
		descriptor("service", map[string]interface{}{"name": "sshd", "enable_now": "yes"}), ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'enable_now' must be a boolean")
}

func TestSymlinkPlugin_Validation(t *testing.T) {
	ctx := testContext(&stubRunner{})
	plugin := &plugins.LnSymlinkPlugin{}

	_, err := plugin.Compile(descriptor("symlink", map[string]interface{}{"source": "a"}), ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires 'source' and 'target'")

	// real/pointer are accepted aliases.
	cmd, err := plugin.Compile(
		descriptor("symlink", map[string]interface{}{"real": "a", "pointer": "b"}), ctx)
	require.NoError(t, err)
	assert.NotNil(t, cmd)
}

func TestShellPlugin_Compile(t *testing.T) {
	ctx := testContext(&stubRunner{})
	plugin := &plugins.BashShellPlugin{}

	tests := []struct {
		name    string
		fields  map[string]interface{}
		wantErr string
	}{
		{
			name:   "script as string",
			fields: map[string]interface{}{"script": "echo hi"},
		},
		{
			name:   "script as list",
			fields: map[string]interface{}{"script": []interface{}{"cd /tmp", "ls"}},
		},
		{
			name:    "missing script",
			fields:  nil,
			wantErr: "requires 'script'",
		},
		{
			name:    "script with non-string entry",
			fields:  map[string]interface{}{"script": []interface{}{"ls", 3}},
			wantErr: "requires 'script'",
		},
		{
			name:    "non-boolean sudo",
			fields:  map[string]interface{}{"script": "ls", "sudo": "yes"},
			wantErr: "'sudo' must be a boolean",
		},
		{
			name:    "non-string cwd",
			fields:  map[string]interface{}{"script": "ls", "cwd": 3},
			wantErr: "'cwd' must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plugin.Compile(descriptor("shell", tt.fields), ctx)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestShellPlugin_DryRun(t *testing.T) {
	runner := &stubRunner{dryRun: true}
	ctx := testContext(runner)

	cmd, err := (&plugins.BashShellPlugin{}).Compile(
		descriptor("shell", map[string]interface{}{"script": []interface{}{"a", "b", "c"}}), ctx)
	require.NoError(t, err)

	msg, err := cmd.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Would run shell script (3 lines).", msg)
	assert.Empty(t, runner.calls)
}

func TestShellPlugin_RunsScript(t *testing.T) {
	runner := &stubRunner{}
	ctx := testContext(runner)

	cmd, err := (&plugins.BashShellPlugin{}).Compile(
		descriptor("shell", map[string]interface{}{"script": "echo hi"}), ctx)
	require.NoError(t, err)

	msg, err := cmd.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ran shell script (1 lines).", msg)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "bash", runner.calls[0][0])
}

func TestPlugins_AvailableInDryRun(t *testing.T) {
	ctx := testContext(&stubRunner{dryRun: true})
	for _, plugin := range plugins.Builtin() {
		ok, reason := plugin.IsAvailable(ctx)
		assert.True(t, ok, "plugin %s should always be available in dry-run (%s)", plugin.Name(), reason)
	}
}
