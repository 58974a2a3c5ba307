package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/hostup/pkg/decisions"
	"github.com/arthur-debert/hostup/pkg/driver"
	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/executor"
	"github.com/arthur-debert/hostup/pkg/logging"
	"github.com/arthur-debert/hostup/pkg/paths"
	"github.com/arthur-debert/hostup/pkg/plugins/loader"
	"github.com/arthur-debert/hostup/pkg/registry"
	"github.com/arthur-debert/hostup/pkg/symlink"
	"github.com/arthur-debert/hostup/pkg/types"
	"github.com/arthur-debert/hostup/pkg/ui/output"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	verbosity       int
	configDir       string
	repoRoot        string
	pluginDirs      []string
	dryRun          bool
	nonInteractive  bool
	symlinkConflict string

	rootCmd = &cobra.Command{
		Use:   "hostup",
		Short: "Declarative, idempotent host configuration",
		Long: `hostup applies declarative config documents to the local host. Each
document describes commands (packages, services, symlinks, shell
scripts) that are normalized into one ordered sequence and applied
idempotently, one at a time.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runApply,
	}
)

// Execute runs the root command. Called by main.main().
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")

	rootCmd.Flags().StringVar(&configDir, "config-dir", "", "Directory containing config files (loaded recursively). Supported: *.json, *.toml, *.yaml, *.yml")
	rootCmd.Flags().StringVar(&repoRoot, "repo-root", "", "Root directory that relative symlink sources resolve against (default: parent of --config-dir)")
	rootCmd.Flags().StringArrayVar(&pluginDirs, "plugins-dir", nil, "Directory containing additional command plugins (*.go). Repeatable. Also honors "+loader.EnvDirs+" and the default user plugins dir.")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log actions but do not change the system")
	rootCmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt. A conflicting symlink under --symlink-conflict=ask is skipped.")
	rootCmd.Flags().StringVar(&symlinkConflict, "symlink-conflict", "ask", "What to do when a symlink target exists and isn't correct (ask|replace|skip)")

	if err := rootCmd.MarkFlagRequired("config-dir"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hostup version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func runApply(cmd *cobra.Command, args []string) error {
	logger := logging.GetLogger("cmd.apply")

	policy := types.ConflictPolicy(symlinkConflict)
	switch policy {
	case types.ConflictAsk, types.ConflictReplace, types.ConflictSkip:
	default:
		return errors.Newf(errors.ErrInvalidInput,
			"invalid --symlink-conflict %q (expected ask, replace or skip)", symlinkConflict)
	}

	expandedConfigDir := paths.Expand(configDir)
	if info, err := os.Stat(expandedConfigDir); err != nil || !info.IsDir() {
		return errors.Newf(errors.ErrFileNotFound, "config dir not found: %s", configDir)
	}

	// Prompting requires a terminal on stdin.
	if !nonInteractive && !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		logger.Debug().Msg("stdin is not a terminal, running non-interactively")
		nonInteractive = true
	}
	if nonInteractive && policy == types.ConflictAsk {
		policy = types.ConflictSkip
	}

	root := repoRoot
	if root == "" {
		root = filepath.Dir(expandedConfigDir)
	}
	root = paths.Expand(root)

	ctx := &types.Context{
		RepoRoot:  root,
		Runner:    executor.NewProcessRunner(dryRun),
		Decisions: decisions.NewStore(decisions.DefaultPath()),
		Prompter:  symlink.NewTerminalPrompter(),
		Options: types.Options{
			DryRun:          dryRun,
			NonInteractive:  nonInteractive,
			SymlinkConflict: policy,
		},
	}

	logger.Info().
		Bool("dryRun", dryRun).
		Bool("nonInteractive", nonInteractive).
		Str("conflictPolicy", string(policy)).
		Str("configDir", expandedConfigDir).
		Str("repoRoot", root).
		Msg("Starting apply")

	reporter := output.NewReporter(os.Stdout)

	loaded := loader.Load(true, loader.Dirs(pluginDirs))
	for _, msg := range loaded.Errors {
		reporter.Warning(msg)
		logger.Warn().Msg(msg)
	}
	logPlugins(logger, loaded.Plugins, ctx)

	factory, err := registry.NewFactory(loaded.Plugins)
	if err != nil {
		return err
	}
	logger.Debug().Strs("handlers", factory.Handlers()).Msg("Registered command handlers")

	return driver.New(factory, reporter, ctx).Run(expandedConfigDir)
}

// logPlugins gives info-level visibility into plugin wiring, which is
// the first thing to look at when a command resolves unexpectedly.
func logPlugins(logger zerolog.Logger, plugins []types.Plugin, ctx *types.Context) {
	sorted := make([]types.Plugin, len(plugins))
	copy(sorted, plugins)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })

	logger.Info().Int("count", len(sorted)).Msg("Loaded command plugins")
	for _, p := range sorted {
		var pairs []string
		for _, h := range p.Handlers() {
			pairs = append(pairs, h.String())
		}
		event := logger.Info().Str("plugin", p.Name()).Strs("handlers", pairs)
		if ok, reason := p.IsAvailable(ctx); !ok {
			if reason == "" {
				reason = "unknown reason"
			}
			event = event.Str("unavailable", reason)
		}
		event.Msg("plugin")
	}
}
