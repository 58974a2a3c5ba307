package plugins

import (
	"fmt"
	"os"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/logging"
	"github.com/arthur-debert/hostup/pkg/paths"
	"github.com/arthur-debert/hostup/pkg/plugins/backends"
	"github.com/arthur-debert/hostup/pkg/types"
)

type bashShellCommand struct {
	script     []string
	cwd        string
	sudo       bool
	showStdout bool
	showStderr bool
}

func (c *bashShellCommand) Apply(ctx *types.Context) (string, error) {
	if ctx.Options.DryRun {
		return fmt.Sprintf("Would run shell script (%d lines).", len(c.script)), nil
	}

	cwd := c.cwd
	if cwd == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, errors.ErrFileAccess, "cannot determine home directory")
		}
		cwd = home
	} else {
		cwd = paths.Expand(cwd)
	}

	showOutput := c.showStdout || c.showStderr
	res, err := backends.Bash{Runner: ctx.Runner}.RunScript(c.script, cwd, c.sudo, showOutput)
	if err != nil {
		return "", err
	}

	if !showOutput {
		logger := logging.GetLogger("plugins.shell")
		if res.Stdout != "" {
			logger.Debug().Str("stdout", res.Stdout).Msg("shell stdout")
		}
		if res.Stderr != "" {
			logger.Debug().Str("stderr", res.Stderr).Msg("shell stderr")
		}
	}

	return fmt.Sprintf("Ran shell script (%d lines).", len(c.script)), nil
}

// BashShellPlugin runs inline scripts. It is the default handler for
// kind=shell.
type BashShellPlugin struct{}

func (p *BashShellPlugin) Name() string { return "builtin.shell.bash" }

func (p *BashShellPlugin) Handlers() []types.HandlerKey {
	return []types.HandlerKey{
		{Kind: "shell"},
		{Kind: "shell", Backend: "bash"},
	}
}

func (p *BashShellPlugin) IsAvailable(ctx *types.Context) (bool, string) {
	return lookPathAvailable(ctx, "bash")
}

func (p *BashShellPlugin) Compile(d types.Descriptor, ctx *types.Context) (types.Command, error) {
	lines, err := scriptLines(d)
	if err != nil {
		return nil, err
	}

	cwd := ""
	if v, ok := d.Fields["cwd"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New(errors.ErrConfigInvalid, "'cwd' must be a string if present")
		}
		cwd = s
	}

	sudo, ok := d.Bool("sudo")
	if !ok {
		return nil, errors.New(errors.ErrConfigInvalid, "'sudo' must be a boolean if present")
	}
	stdout, ok := d.Bool("stdout")
	if !ok {
		return nil, errors.New(errors.ErrConfigInvalid, "'stdout' must be a boolean if present")
	}
	stderr, ok := d.Bool("stderr")
	if !ok {
		return nil, errors.New(errors.ErrConfigInvalid, "'stderr' must be a boolean if present")
	}

	return &bashShellCommand{
		script:     lines,
		cwd:        cwd,
		sudo:       sudo,
		showStdout: stdout,
		showStderr: stderr,
	}, nil
}

// scriptLines accepts 'script' as one string or a list of strings.
func scriptLines(d types.Descriptor) ([]string, error) {
	v, ok := d.Fields["script"]
	if !ok {
		return nil, errors.New(errors.ErrConfigInvalid, "shell command requires 'script' (string or list of strings)")
	}

	if s, ok := v.(string); ok {
		return []string{s}, nil
	}
	if seq, ok := v.([]interface{}); ok {
		lines := make([]string, 0, len(seq))
		for _, item := range seq {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New(errors.ErrConfigInvalid, "shell command requires 'script' (string or list of strings)")
			}
			lines = append(lines, s)
		}
		return lines, nil
	}
	return nil, errors.New(errors.ErrConfigInvalid, "shell command requires 'script' (string or list of strings)")
}
