package plugins

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/symlink"
	"github.com/arthur-debert/hostup/pkg/types"
)

type lnSymlinkCommand struct {
	source string
	target string
}

func (c *lnSymlinkCommand) Apply(ctx *types.Context) (string, error) {
	// Relative sources anchor at the repo root.
	src := c.source
	if !filepath.IsAbs(src) && !strings.HasPrefix(src, "~") {
		src = filepath.Join(ctx.RepoRoot, src)
	}

	result, err := symlink.NewEngine(ctx).Ensure(src, c.target)
	if err != nil {
		return "", err
	}
	return result.Message, nil
}

// LnSymlinkPlugin reconciles symlinks. It is the default handler for
// kind=symlink.
type LnSymlinkPlugin struct{}

func (p *LnSymlinkPlugin) Name() string { return "builtin.symlink.ln" }

func (p *LnSymlinkPlugin) Handlers() []types.HandlerKey {
	return []types.HandlerKey{
		{Kind: "symlink"},
		{Kind: "symlink", Backend: "ln"},
	}
}

func (p *LnSymlinkPlugin) IsAvailable(ctx *types.Context) (bool, string) {
	return lookPathAvailable(ctx, "ln")
}

func (p *LnSymlinkPlugin) Compile(d types.Descriptor, ctx *types.Context) (types.Command, error) {
	source, ok := d.Str("source")
	if !ok {
		source, ok = d.Str("real")
	}
	target, okTarget := d.Str("target")
	if !okTarget {
		target, okTarget = d.Str("pointer")
	}
	if !ok || !okTarget {
		return nil, errors.New(errors.ErrConfigInvalid, "symlink command requires 'source' and 'target'")
	}
	return &lnSymlinkCommand{source: source, target: target}, nil
}
