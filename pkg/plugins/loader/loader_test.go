package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/hostup/pkg/plugins/loader"
	"github.com/arthur-debert/hostup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const echoPluginSource = `package main

import (
	"fmt"

	"github.com/arthur-debert/hostup/pkg/types"
)

type echoCommand struct {
	text string
}

func (c echoCommand) Apply(ctx *types.Context) (string, error) {
	return fmt.Sprintf("Echoed %s.", c.text), nil
}

type echoPlugin struct{}

func (p echoPlugin) Name() string { return "user.echo" }

func (p echoPlugin) Handlers() []types.HandlerKey {
	return []types.HandlerKey{{Kind: "echo"}}
}

func (p echoPlugin) IsAvailable(ctx *types.Context) (bool, string) {
	return true, ""
}

func (p echoPlugin) Compile(d types.Descriptor, ctx *types.Context) (types.Command, error) {
	text, ok := d.Str("text")
	if !ok {
		return nil, fmt.Errorf("echo command requires 'text'")
	}
	return echoCommand{text: text}, nil
}

var Plugin types.Plugin = echoPlugin{}
`

const ctorPluginSource = `package main

import "github.com/arthur-debert/hostup/pkg/types"

type noopCommand struct{}

func (noopCommand) Apply(ctx *types.Context) (string, error) { return "Did nothing.", nil }

type noopPlugin struct{}

func (noopPlugin) Name() string                                  { return "user.noop" }
func (noopPlugin) Handlers() []types.HandlerKey                  { return []types.HandlerKey{{Kind: "noop"}} }
func (noopPlugin) IsAvailable(ctx *types.Context) (bool, string) { return true, "" }
func (noopPlugin) Compile(d types.Descriptor, ctx *types.Context) (types.Command, error) {
	return noopCommand{}, nil
}

func NewPlugin() types.Plugin { return noopPlugin{} }
`

func writePlugin(t *testing.T, dir, name, source string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(source), 0o644))
}

func TestLoad_PluginValue(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "echo.go", echoPluginSource)

	result := loader.Load(false, []string{dir})
	require.Empty(t, result.Errors)
	require.Len(t, result.Plugins, 1)

	plugin := result.Plugins[0]
	assert.Equal(t, "user.echo", plugin.Name())
	assert.Equal(t, []types.HandlerKey{{Kind: "echo"}}, plugin.Handlers())

	ctx := &types.Context{}
	cmd, err := plugin.Compile(types.Descriptor{
		Kind:   "echo",
		Fields: map[string]interface{}{"text": "hello"},
	}, ctx)
	require.NoError(t, err)

	msg, err := cmd.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Echoed hello.", msg)
}

func TestLoad_Constructor(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "noop.go", ctorPluginSource)

	result := loader.Load(false, []string{dir})
	require.Empty(t, result.Errors)
	require.Len(t, result.Plugins, 1)
	assert.Equal(t, "user.noop", result.Plugins[0].Name())
}

func TestLoad_IncludesBuiltin(t *testing.T) {
	result := loader.Load(true, nil)
	require.Empty(t, result.Errors)
	assert.NotEmpty(t, result.Plugins)
}

func TestLoad_CollectsErrors(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "broken.go", "package main\n\nfunc {\n")
	writePlugin(t, dir, "noexport.go", "package main\n\nvar x = 1\n")
	writePlugin(t, dir, "_skipped.go", "this would not even parse")
	writePlugin(t, dir, "ok.go", ctorPluginSource)

	result := loader.Load(false, []string{dir, filepath.Join(dir, "missing")})

	require.Len(t, result.Plugins, 1)
	assert.Equal(t, "user.noop", result.Plugins[0].Name())

	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "broken.go")
	assert.Contains(t, result.Errors[1], "noexport.go")
	assert.Contains(t, result.Errors[2], "does not exist")
}

func TestDirs_Deduplicates(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(loader.EnvDirs, dir)

	dirs := loader.Dirs([]string{dir, dir})
	count := 0
	for _, d := range dirs {
		if d == dir {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
