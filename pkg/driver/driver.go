// Package driver runs the apply loop: discover config documents under
// a directory, normalize each one, compile its commands through the
// registry, and apply them sequentially while reporting one line per
// command.
//
// Failure handling is split by class. A document that fails to parse,
// normalize or compile is dropped whole, nothing from it is applied,
// and the run moves on to the next document (the run still ends in an
// error). An unknown or unavailable handler, or a command whose apply
// fails, stops the entire run immediately.
package driver

import (
	stderrors "errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/hostup/pkg/config"
	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/logging"
	"github.com/arthur-debert/hostup/pkg/registry"
	"github.com/arthur-debert/hostup/pkg/types"
	"github.com/arthur-debert/hostup/pkg/ui/output"
)

// Driver applies every config document under a directory.
type Driver struct {
	factory  *registry.Factory
	reporter *output.Reporter
	ctx      *types.Context
	logger   zerolog.Logger
}

// New builds a Driver over a populated factory and context.
func New(factory *registry.Factory, reporter *output.Reporter, ctx *types.Context) *Driver {
	return &Driver{
		factory:  factory,
		reporter: reporter,
		ctx:      ctx,
		logger:   logging.GetLogger("driver"),
	}
}

// runStop marks errors that must halt the whole run rather than just
// the current document.
type runStop struct {
	err error
}

func (s runStop) Error() string { return s.err.Error() }
func (s runStop) Unwrap() error { return s.err }

// Run processes every supported config file under configDir in sorted
// order. It returns nil only when every document applied cleanly.
func (d *Driver) Run(configDir string) error {
	files, err := config.Discover(configDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		d.reporter.Warning(fmt.Sprintf(
			"No config files found under %s (supported: *.json, *.toml, *.yaml, *.yml)", configDir))
		return nil
	}

	d.reporter.RunStart(len(files))

	failed := 0
	for _, path := range files {
		rel := relPath(configDir, path)
		if err := d.applyDocument(path, rel); err != nil {
			var stop runStop
			if stderrors.As(err, &stop) {
				return stop.err
			}
			d.reporter.Error(err.Error())
			d.logger.Error().Err(err).Str("config", rel).Msg("document failed")
			failed++
		}
	}

	if failed > 0 {
		return errors.Newf(errors.ErrConfigInvalid, "%d config document(s) failed", failed)
	}
	d.reporter.Done()
	return nil
}

// applyDocument normalizes, compiles and applies one document. Every
// command is compiled before any is applied, so a document with an
// invalid command never partially runs.
func (d *Driver) applyDocument(path, rel string) error {
	loaded, err := config.Load(path)
	if err != nil {
		return errors.Wrapf(err, errors.GetErrorCode(err), "failed to load config @ %s", rel)
	}

	d.logger.Debug().Str("config", rel).Int("commands", len(loaded.Commands)).Msg("loaded config")

	cmds := make([]types.Command, len(loaded.Commands))
	for i, desc := range loaded.Commands {
		cmd, err := d.factory.Resolve(desc, d.ctx)
		if err != nil {
			wrapped := errors.Wrapf(err, errors.GetErrorCode(err),
				"invalid command in %s (index %d)", rel, i+1).
				WithDetail("config", rel).
				WithDetail("index", i+1)
			if isRegistryError(err) {
				return runStop{err: wrapped}
			}
			return wrapped
		}
		cmds[i] = cmd
	}

	description := loaded.Description
	if description == "" {
		description = rel
	}
	d.reporter.DocumentHeader(description, loaded.Version, rel)

	for i, cmd := range cmds {
		msg, err := cmd.Apply(d.ctx)
		if err != nil {
			return runStop{err: errors.Wrapf(err, errors.GetErrorCode(err),
				"command failed in %s (index %d)", rel, i+1).
				WithDetail("config", rel).
				WithDetail("index", i+1)}
		}
		d.reporter.CommandResult(msg, i == len(cmds)-1)
		d.logger.Debug().Str("kind", loaded.Commands[i].Kind).Str("result", msg).Msg("command applied")
	}
	return nil
}

func isRegistryError(err error) bool {
	return errors.IsErrorCode(err, errors.ErrRegistryUnknown) ||
		errors.IsErrorCode(err, errors.ErrRegistryUnavailable) ||
		errors.IsErrorCode(err, errors.ErrRegistryDuplicate)
}

func relPath(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
