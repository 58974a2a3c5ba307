package loader

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/arthur-debert/hostup/pkg/types"
)

// Symbols exposes the plugin API to interpreted code, so plugin files
// can `import "github.com/arthur-debert/hostup/pkg/types"` and
// implement types.Plugin. The _Plugin and _Command entries are the
// interface proxies yaegi needs to hand interpreted implementations
// back to compiled code.
var Symbols = interp.Exports{
	"github.com/arthur-debert/hostup/pkg/types/types": {
		"Command":    reflect.ValueOf((*types.Command)(nil)),
		"Context":    reflect.ValueOf((*types.Context)(nil)),
		"Descriptor": reflect.ValueOf((*types.Descriptor)(nil)),
		"HandlerKey": reflect.ValueOf((*types.HandlerKey)(nil)),
		"Options":    reflect.ValueOf((*types.Options)(nil)),
		"Plugin":     reflect.ValueOf((*types.Plugin)(nil)),
		"RunOpts":    reflect.ValueOf((*types.RunOpts)(nil)),
		"RunResult":  reflect.ValueOf((*types.RunResult)(nil)),
		"Runner":     reflect.ValueOf((*types.Runner)(nil)),

		"_Command": reflect.ValueOf((*_hostupCommand)(nil)),
		"_Plugin":  reflect.ValueOf((*_hostupPlugin)(nil)),
		"_Runner":  reflect.ValueOf((*_hostupRunner)(nil)),
	},
}

// _hostupCommand is an interface wrapper for types.Command.
type _hostupCommand struct {
	IValue interface{}
	WApply func(ctx *types.Context) (string, error)
}

func (w _hostupCommand) Apply(ctx *types.Context) (string, error) { return w.WApply(ctx) }

// _hostupPlugin is an interface wrapper for types.Plugin.
type _hostupPlugin struct {
	IValue       interface{}
	WName        func() string
	WHandlers    func() []types.HandlerKey
	WIsAvailable func(ctx *types.Context) (bool, string)
	WCompile     func(d types.Descriptor, ctx *types.Context) (types.Command, error)
}

func (w _hostupPlugin) Name() string                                 { return w.WName() }
func (w _hostupPlugin) Handlers() []types.HandlerKey                 { return w.WHandlers() }
func (w _hostupPlugin) IsAvailable(ctx *types.Context) (bool, string) { return w.WIsAvailable(ctx) }
func (w _hostupPlugin) Compile(d types.Descriptor, ctx *types.Context) (types.Command, error) {
	return w.WCompile(d, ctx)
}

// _hostupRunner is an interface wrapper for types.Runner.
type _hostupRunner struct {
	IValue  interface{}
	WRun    func(argv []string, opts types.RunOpts) (types.RunResult, error)
	WDryRun func() bool
}

func (w _hostupRunner) Run(argv []string, opts types.RunOpts) (types.RunResult, error) {
	return w.WRun(argv, opts)
}
func (w _hostupRunner) DryRun() bool { return w.WDryRun() }
