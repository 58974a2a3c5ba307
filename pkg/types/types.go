package types

import "fmt"

// Descriptor is one normalized command entry. The normalizer
// guarantees Kind is non-empty; Backend stays empty when the document did
// not name one. Kind-specific fields remain in Fields, with the kind,
// command, and backend keys already lifted out.
type Descriptor struct {
	Kind    string
	Backend string
	Fields  map[string]interface{}
}

// Str returns the string value of a field, and whether it is present
// as a non-empty string.
func (d Descriptor) Str(key string) (string, bool) {
	v, ok := d.Fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Bool returns the boolean value of a field; missing fields default false.
// The second return is false when the field is present but not a boolean.
func (d Descriptor) Bool(key string) (bool, bool) {
	v, ok := d.Fields[key]
	if !ok {
		return false, true
	}
	b, ok := v.(bool)
	if !ok {
		return false, false
	}
	return b, true
}

// HandlerKey identifies one registered plugin capability. An empty
// Backend marks the default handler for the kind.
type HandlerKey struct {
	Kind    string
	Backend string
}

// String formats the key as kind/backend, using <default> for an empty
// backend so diagnostics stay unambiguous.
func (k HandlerKey) String() string {
	backend := k.Backend
	if backend == "" {
		backend = "<default>"
	}
	return fmt.Sprintf("%s/%s", k.Kind, backend)
}

// LoadedConfig is one normalized config document: optional metadata plus
// the ordered command sequence. Command order is execution order.
type LoadedConfig struct {
	Path        string
	Version     *int
	Description string
	Commands    []Descriptor
}

// Command is an executable, already-validated action. Apply returns a
// one-line human-readable result for the run report.
type Command interface {
	Apply(ctx *Context) (string, error)
}

// Plugin compiles raw descriptors into executable commands for the
// (kind, backend) pairs it declares.
type Plugin interface {
	// Name returns the unique plugin name used in diagnostics.
	Name() string

	// Handlers returns the non-empty set of capabilities this plugin serves.
	Handlers() []HandlerKey

	// IsAvailable probes whether the plugin can run on this host. The
	// string carries the reason when the probe fails.
	IsAvailable(ctx *Context) (bool, string)

	// Compile validates kind-specific fields and returns the executable
	// command. It is never called for an unavailable plugin.
	Compile(d Descriptor, ctx *Context) (Command, error)
}

// RunResult carries the outcome of one external process invocation.
type RunResult struct {
	Argv     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunOpts controls a single process invocation.
type RunOpts struct {
	// Sudo prefixes the argv with sudo.
	Sudo bool
	// Check turns a non-zero exit into a COMMAND_FAILED error.
	Check bool
	// Capture collects stdout/stderr instead of inheriting the terminal.
	Capture bool
	// Dir sets the working directory when non-empty.
	Dir string
	// Env entries are appended to the inherited environment.
	Env map[string]string
}

// Runner executes external processes. Implementations must honor
// dry-run by reporting without spawning anything.
type Runner interface {
	Run(argv []string, opts RunOpts) (RunResult, error)
	DryRun() bool
}

// ConflictPolicy selects symlink conflict behavior.
type ConflictPolicy string

const (
	ConflictAsk     ConflictPolicy = "ask"
	ConflictReplace ConflictPolicy = "replace"
	ConflictSkip    ConflictPolicy = "skip"
)

// ConflictChoice is one answer from the interactive conflict prompt.
type ConflictChoice string

const (
	ChoiceReplace ConflictChoice = "replace"
	ChoiceSkip    ConflictChoice = "skip"
	ChoiceIgnore  ConflictChoice = "ignore"
	ChoiceAbort   ConflictChoice = "abort"
)

// Prompter presents a symlink conflict to the user and returns their
// choice. Implementations loop internally until a valid choice is made.
type Prompter interface {
	SymlinkConflict(existing, desired string) (ConflictChoice, error)
}

// DecisionAction is the persisted action of a user decision. Only ignore
// exists today.
type DecisionAction string

const DecisionIgnore DecisionAction = "ignore"

// DecisionStore persists user choices across runs, keyed by absolute
// symlink target path.
type DecisionStore interface {
	// SymlinkDecision reports the persisted decision for a target, if any.
	SymlinkDecision(target string) (DecisionAction, bool)

	// SetSymlinkIgnore persists an ignore decision and flushes to disk.
	SetSymlinkIgnore(target string) error
}

// Options are the run-wide flags every command sees.
type Options struct {
	DryRun          bool
	NonInteractive  bool
	SymlinkConflict ConflictPolicy
}

// Context is the immutable bundle of collaborators passed into every
// Apply call. Nothing here is global; tests construct their own.
type Context struct {
	// RepoRoot anchors relative symlink sources.
	RepoRoot  string
	Runner    Runner
	Decisions DecisionStore
	Prompter  Prompter
	Options   Options
}
