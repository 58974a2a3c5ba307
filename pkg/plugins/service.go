package plugins

import (
	"fmt"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/plugins/backends"
	"github.com/arthur-debert/hostup/pkg/types"
)

type systemctlServiceCommand struct {
	name      string
	enableNow bool
}

func (c *systemctlServiceCommand) Apply(ctx *types.Context) (string, error) {
	backend := backends.Systemctl{Runner: ctx.Runner}
	if backend.IsEnabled(c.name) {
		return fmt.Sprintf("%s is already enabled.", c.name), nil
	}
	if err := backend.Enable(c.name, c.enableNow); err != nil {
		return "", err
	}
	return fmt.Sprintf("Enabled %s.", c.name), nil
}

// SystemctlServicePlugin enables systemd units. It is the default
// handler for kind=service.
type SystemctlServicePlugin struct{}

func (p *SystemctlServicePlugin) Name() string { return "builtin.service.systemctl" }

func (p *SystemctlServicePlugin) Handlers() []types.HandlerKey {
	return []types.HandlerKey{
		{Kind: "service"},
		{Kind: "service", Backend: "systemctl"},
	}
}

func (p *SystemctlServicePlugin) IsAvailable(ctx *types.Context) (bool, string) {
	return lookPathAvailable(ctx, "systemctl")
}

func (p *SystemctlServicePlugin) Compile(d types.Descriptor, ctx *types.Context) (types.Command, error) {
	name, ok := d.Str("name")
	if !ok {
		return nil, errors.New(errors.ErrConfigInvalid, "service command requires 'name'")
	}
	enableNow, ok := d.Bool("enable_now")
	if !ok {
		return nil, errors.New(errors.ErrConfigInvalid, "'enable_now' must be a boolean if present")
	}
	return &systemctlServiceCommand{name: name, enableNow: enableNow}, nil
}
