package plugins

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/plugins/backends"
	"github.com/arthur-debert/hostup/pkg/types"
)

// prettyName capitalizes a package name for report messages.
func prettyName(name string) string {
	return strings.ToUpper(name[:1]) + name[1:]
}

// packageName accepts the 'name' field with 'package' as an alias.
func packageName(d types.Descriptor) (string, error) {
	name, ok := d.Str("name")
	if !ok {
		name, ok = d.Str("package")
	}
	if !ok {
		return "", errors.New(errors.ErrConfigInvalid, "package command requires 'name'")
	}
	return name, nil
}

// lookPathAvailable is the shared availability probe: a binary must be
// on PATH unless the run is dry, where nothing is executed anyway.
func lookPathAvailable(ctx *types.Context, binaries ...string) (bool, string) {
	if ctx.Runner.DryRun() {
		return true, ""
	}
	for _, bin := range binaries {
		if _, err := exec.LookPath(bin); err != nil {
			return false, fmt.Sprintf("`%s` not found on PATH", bin)
		}
	}
	return true, ""
}

type pacmanPackageCommand struct {
	name string
}

func (c *pacmanPackageCommand) Apply(ctx *types.Context) (string, error) {
	backend := backends.Pacman{Runner: ctx.Runner}
	if backend.IsInstalled(c.name) {
		return fmt.Sprintf("%s package is already installed.", prettyName(c.name)), nil
	}
	if err := backend.Install(c.name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Installed %s package.", prettyName(c.name)), nil
}

// PacmanPackagePlugin serves kind=package as the default handler and
// under the explicit pacman backend.
type PacmanPackagePlugin struct{}

func (p *PacmanPackagePlugin) Name() string { return "builtin.package.pacman" }

func (p *PacmanPackagePlugin) Handlers() []types.HandlerKey {
	return []types.HandlerKey{
		{Kind: "package"},
		{Kind: "package", Backend: "pacman"},
	}
}

func (p *PacmanPackagePlugin) IsAvailable(ctx *types.Context) (bool, string) {
	return lookPathAvailable(ctx, "pacman")
}

func (p *PacmanPackagePlugin) Compile(d types.Descriptor, ctx *types.Context) (types.Command, error) {
	name, err := packageName(d)
	if err != nil {
		return nil, err
	}
	return &pacmanPackageCommand{name: name}, nil
}

type yayPackageCommand struct {
	name string
}

func (c *yayPackageCommand) Apply(ctx *types.Context) (string, error) {
	backend := backends.Yay{Runner: ctx.Runner}
	if backend.IsInstalled(c.name) {
		return fmt.Sprintf("%s package is already installed.", prettyName(c.name)), nil
	}
	if err := backend.Install(c.name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Installed %s package.", prettyName(c.name)), nil
}

// YayPackagePlugin serves the AUR via the yay backend only; it never
// claims the default package slot.
type YayPackagePlugin struct{}

func (p *YayPackagePlugin) Name() string { return "builtin.package.yay" }

func (p *YayPackagePlugin) Handlers() []types.HandlerKey {
	return []types.HandlerKey{{Kind: "package", Backend: "yay"}}
}

func (p *YayPackagePlugin) IsAvailable(ctx *types.Context) (bool, string) {
	// The installed-check goes through pacman even for AUR packages.
	if ok, reason := lookPathAvailable(ctx, "pacman"); !ok {
		return false, reason + " (required by yay plugin)"
	}
	return lookPathAvailable(ctx, "yay")
}

func (p *YayPackagePlugin) Compile(d types.Descriptor, ctx *types.Context) (types.Command, error) {
	name, err := packageName(d)
	if err != nil {
		return nil, err
	}
	return &yayPackageCommand{name: name}, nil
}
