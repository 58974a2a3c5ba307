package symlink

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/arthur-debert/hostup/pkg/types"
)

// conflict menu entries, in the order they are offered
const (
	optionReplace = "replace: remove the existing target and create the link"
	optionSkip    = "skip: leave the target as it is for this run"
	optionIgnore  = "ignore always: never ask about this target again"
	optionAbort   = "abort: stop the whole run"
)

// TerminalPrompter asks the user to resolve a symlink conflict on the
// terminal. It implements types.Prompter.
type TerminalPrompter struct{}

// NewTerminalPrompter returns the interactive prompter used when the
// run is not in non-interactive mode.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

// SymlinkConflict shows the existing and desired state and returns the
// user's choice.
func (p *TerminalPrompter) SymlinkConflict(existing, desired string) (types.ConflictChoice, error) {
	pterm.Warning.Println("Symlink conflict.")
	pterm.Printf("  Existing: %s\n", existing)
	pterm.Printf("  Desired:  %s\n", desired)

	selected, err := pterm.DefaultInteractiveSelect.
		WithOptions([]string{optionReplace, optionSkip, optionIgnore, optionAbort}).
		Show("Target exists. Choose how to proceed")
	if err != nil {
		return "", fmt.Errorf("conflict prompt failed: %w", err)
	}

	switch selected {
	case optionReplace:
		return types.ChoiceReplace, nil
	case optionSkip:
		return types.ChoiceSkip, nil
	case optionIgnore:
		return types.ChoiceIgnore, nil
	default:
		return types.ChoiceAbort, nil
	}
}
