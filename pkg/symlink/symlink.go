// Package symlink reconciles a desired (source, target) symlink pair
// against whatever currently occupies the target. It is a small state
// machine: classify the existing filesystem state fresh on every
// resolution, consult persisted user decisions, then apply the
// conflict policy. Aborting is a distinct fatal error, never one of
// the per-link outcomes.
package symlink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/logging"
	"github.com/arthur-debert/hostup/pkg/paths"
	"github.com/arthur-debert/hostup/pkg/types"
	"github.com/rs/zerolog"
)

// Outcome is the terminal state of one reconciliation.
type Outcome string

const (
	OutcomeAlreadyCorrect Outcome = "already-correct"
	OutcomeCreated        Outcome = "created"
	OutcomeReplaced       Outcome = "replaced"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeIgnored        Outcome = "ignored"
)

// State classifies what currently occupies a target path. It is derived
// fresh on every resolution attempt and never cached across runs.
type State int

const (
	StateAbsent State = iota
	StateCorrect
	StateWrongSymlink
	StateOccupiedFile
	StateOccupiedDir
)

// Result pairs an outcome with the one-line report message.
type Result struct {
	Outcome Outcome
	Message string
}

// Engine reconciles symlinks using the run's collaborators: the
// process runner for ln and elevated removal, the decision store for
// persisted ignores, and the prompter for the ask policy.
type Engine struct {
	runner    types.Runner
	decisions types.DecisionStore
	prompter  types.Prompter
	opts      types.Options
	logger    zerolog.Logger
}

// NewEngine builds an engine from the run context.
func NewEngine(ctx *types.Context) *Engine {
	return &Engine{
		runner:    ctx.Runner,
		decisions: ctx.Decisions,
		prompter:  ctx.Prompter,
		opts:      ctx.Options,
		logger:    logging.GetLogger("symlink"),
	}
}

// Classify inspects the target and reports its state relative to the
// desired source. The source must already be expanded.
func Classify(target, source string) State {
	info, err := os.Lstat(target)
	if err != nil {
		return StateAbsent
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if symlinkMatches(target, source) {
			return StateCorrect
		}
		return StateWrongSymlink
	}

	if info.IsDir() {
		return StateOccupiedDir
	}
	return StateOccupiedFile
}

// symlinkMatches compares an existing symlink against the desired
// source two ways: the raw (unresolved) link value normalized, and both
// sides fully resolved. Either match tolerates equivalent but
// differently-spelled paths.
func symlinkMatches(target, source string) bool {
	raw, err := os.Readlink(target)
	if err == nil {
		link := raw
		if !filepath.IsAbs(link) {
			link = filepath.Join(filepath.Dir(target), link)
		}
		if paths.AbsNoResolve(link) == paths.AbsNoResolve(source) {
			return true
		}
	}

	targetResolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return false
	}
	sourceResolved, err := filepath.EvalSymlinks(source)
	if err != nil {
		return false
	}
	return targetResolved == sourceResolved
}

// Ensure drives one (source, target) pair to a terminal outcome. Both
// arguments may use ~ and $VAR references. The returned error is fatal
// for the whole run (missing source, failed process, or user abort).
func (e *Engine) Ensure(source, target string) (Result, error) {
	src := paths.Expand(source)
	tgt := paths.Expand(target)

	if _, err := os.Stat(src); err != nil {
		// A symlink to nothing is never created.
		return Result{}, errors.Newf(errors.ErrSymlinkSource, "symlink source does not exist: %s", src)
	}

	switch Classify(tgt, src) {
	case StateCorrect:
		return Result{
			Outcome: OutcomeAlreadyCorrect,
			Message: fmt.Sprintf("Symlink %s already points to %s.", tgt, src),
		}, nil

	case StateAbsent:
		if err := e.createLink(src, tgt); err != nil {
			return Result{}, err
		}
		return Result{
			Outcome: OutcomeCreated,
			Message: fmt.Sprintf("Created symlink %s -> %s.", tgt, src),
		}, nil
	}

	return e.resolveConflict(src, tgt)
}

// resolveConflict handles a target that exists but is not the desired
// link: wrong symlink, file, or directory.
func (e *Engine) resolveConflict(src, tgt string) (Result, error) {
	if e.decisions != nil {
		if action, ok := e.decisions.SymlinkDecision(tgt); ok && action == types.DecisionIgnore {
			return Result{
				Outcome: OutcomeIgnored,
				Message: fmt.Sprintf("Symlink %s is ignored (saved decision).", tgt),
			}, nil
		}
	}

	existing := e.existingState(tgt)
	desired := e.desiredState(tgt, src)

	mode := e.opts.SymlinkConflict
	if e.opts.NonInteractive && mode == types.ConflictAsk {
		mode = types.ConflictSkip
	}

	switch mode {
	case types.ConflictSkip:
		e.logConflict(existing, desired)
		return Result{
			Outcome: OutcomeSkipped,
			Message: fmt.Sprintf("Skipped symlink %s (conflict).", tgt),
		}, nil

	case types.ConflictReplace:
		if err := e.replaceLink(src, tgt); err != nil {
			return Result{}, err
		}
		return Result{
			Outcome: OutcomeReplaced,
			Message: fmt.Sprintf("Replaced symlink %s -> %s.", tgt, src),
		}, nil
	}

	// Ask: loop until the prompter produces a terminal choice.
	for {
		e.logConflict(existing, desired)
		choice, err := e.prompter.SymlinkConflict(existing, desired)
		if err != nil {
			return Result{}, errors.Wrap(err, errors.ErrAborted, "conflict prompt failed")
		}

		switch choice {
		case types.ChoiceSkip:
			return Result{
				Outcome: OutcomeSkipped,
				Message: fmt.Sprintf("Skipped symlink %s (user chose skip).", tgt),
			}, nil

		case types.ChoiceIgnore:
			if err := e.decisions.SetSymlinkIgnore(tgt); err != nil {
				return Result{}, err
			}
			return Result{
				Outcome: OutcomeIgnored,
				Message: fmt.Sprintf("Symlink %s is ignored (saved decision).", tgt),
			}, nil

		case types.ChoiceReplace:
			if err := e.replaceLink(src, tgt); err != nil {
				return Result{}, err
			}
			return Result{
				Outcome: OutcomeReplaced,
				Message: fmt.Sprintf("Replaced symlink %s -> %s.", tgt, src),
			}, nil

		case types.ChoiceAbort:
			return Result{}, errors.Newf(errors.ErrAborted, "aborted by user due to conflict at %s", tgt)
		}
	}
}

// createLink creates the symlink through the runner, elevating only
// when the target's parent is not writable by the current user.
func (e *Engine) createLink(src, tgt string) error {
	sudo := !paths.CanWrite(tgt)
	_, err := e.runner.Run([]string{"ln", "-sn", src, tgt}, types.RunOpts{
		Sudo:    sudo,
		Check:   true,
		Capture: true,
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrSymlinkCreate, "failed to create symlink %s", tgt)
	}
	return nil
}

// replaceLink removes whatever occupies the target and creates the
// link. Removal is direct when permissions allow, elevated rm -rf
// otherwise; in dry-run no removal happens at all.
func (e *Engine) replaceLink(src, tgt string) error {
	if err := e.removeTarget(tgt); err != nil {
		return err
	}
	return e.createLink(src, tgt)
}

func (e *Engine) removeTarget(tgt string) error {
	if e.runner.DryRun() {
		e.logger.Info().Str("target", tgt).Msg("Dry run, target not removed")
		return nil
	}

	if paths.CanWrite(tgt) {
		info, err := os.Lstat(tgt)
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to inspect %s", tgt)
		}
		if info.IsDir() {
			err = os.RemoveAll(tgt)
		} else {
			err = os.Remove(tgt)
		}
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove %s", tgt)
		}
		return nil
	}

	_, err := e.runner.Run([]string{"rm", "-rf", tgt}, types.RunOpts{
		Sudo:    true,
		Check:   true,
		Capture: true,
	})
	return err
}

// existingState renders the current occupant of the target for logs
// and prompts.
func (e *Engine) existingState(tgt string) string {
	info, err := os.Lstat(tgt)
	if err != nil {
		return fmt.Sprintf("%s (missing)", tgt)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		raw, err := os.Readlink(tgt)
		if err != nil {
			raw = "<unreadable>"
		}
		resolved, err := filepath.EvalSymlinks(tgt)
		if err != nil {
			resolved = "<broken>"
		}
		return fmt.Sprintf("%s -> %s (resolves to %s)", tgt, raw, resolved)
	}
	if info.IsDir() {
		return fmt.Sprintf("%s (directory)", tgt)
	}
	return fmt.Sprintf("%s (file)", tgt)
}

func (e *Engine) desiredState(tgt, src string) string {
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		resolved = src
	}
	return fmt.Sprintf("%s -> %s (resolves to %s)", tgt, src, resolved)
}

func (e *Engine) logConflict(existing, desired string) {
	e.logger.Warn().Msg("Symlink conflict.")
	e.logger.Warn().Str("existing", existing).Msg("Existing state")
	e.logger.Warn().Str("desired", desired).Msg("Desired state")
}
