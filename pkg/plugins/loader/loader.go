// Package loader discovers user plugin files and instantiates them
// with the yaegi interpreter. A plugin file is a plain .go file in a
// plugin directory, declaring package main and exporting either
//
//	var Plugin types.Plugin = ...
//
// or a constructor
//
//	func NewPlugin() types.Plugin
//
// Failures are collected per file so one broken plugin never takes
// down the run.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/arthur-debert/hostup/pkg/logging"
	"github.com/arthur-debert/hostup/pkg/paths"
	"github.com/arthur-debert/hostup/pkg/plugins"
	"github.com/arthur-debert/hostup/pkg/types"
)

// EnvDirs names the environment variable holding extra plugin
// directories, separated like PATH.
const EnvDirs = "HOSTUP_PLUGINS_DIRS"

// Result holds whatever loading produced. Errors are warnings, not
// fatal: the plugins that did load are still usable.
type Result struct {
	Plugins []types.Plugin
	Errors  []string
}

// DefaultDir returns the user plugin directory,
// ~/.config/hostup/plugins under default XDG settings.
func DefaultDir() string {
	return filepath.Join(xdg.ConfigHome, "hostup", "plugins")
}

// Dirs combines explicit directories with the HOSTUP_PLUGINS_DIRS
// environment variable and the default user directory (only when it
// exists), de-duplicated in order.
func Dirs(explicit []string) []string {
	var dirs []string
	dirs = append(dirs, explicit...)

	if env := os.Getenv(EnvDirs); env != "" {
		for _, part := range strings.Split(env, string(os.PathListSeparator)) {
			part = strings.TrimSpace(part)
			if part != "" {
				dirs = append(dirs, part)
			}
		}
	}

	if info, err := os.Stat(DefaultDir()); err == nil && info.IsDir() {
		dirs = append(dirs, DefaultDir())
	}

	seen := make(map[string]bool)
	var unique []string
	for _, dir := range dirs {
		expanded := paths.Expand(dir)
		if seen[expanded] {
			continue
		}
		seen[expanded] = true
		unique = append(unique, expanded)
	}
	return unique
}

// Load returns the built-in plugins plus every plugin found under
// dirs. Pass includeBuiltin=false to load only user plugins.
func Load(includeBuiltin bool, dirs []string) Result {
	logger := logging.GetLogger("plugins.loader")

	var result Result
	if includeBuiltin {
		result.Plugins = append(result.Plugins, plugins.Builtin()...)
	}

	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Plugins dir does not exist: %s", dir))
			continue
		}
		if !info.IsDir() {
			result.Errors = append(result.Errors, fmt.Sprintf("Plugins path is not a directory: %s", dir))
			continue
		}

		files, err := filepath.Glob(filepath.Join(dir, "*.go"))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to scan plugins dir %s: %v", dir, err))
			continue
		}
		sort.Strings(files)

		for _, file := range files {
			if strings.HasPrefix(filepath.Base(file), "_") {
				continue
			}
			plugin, err := loadFile(file)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to load plugin %s: %v", file, err))
				continue
			}
			logger.Debug().Str("file", file).Str("plugin", plugin.Name()).Msg("loaded user plugin")
			result.Plugins = append(result.Plugins, plugin)
		}
	}

	return result
}

// loadFile evaluates one plugin file in a fresh interpreter. The
// interpreter panics on some malformed inputs, so failures of any
// shape come back as an error.
func loadFile(path string) (plugin types.Plugin, err error) {
	defer func() {
		if r := recover(); r != nil {
			plugin = nil
			err = fmt.Errorf("plugin evaluation panicked: %v", r)
		}
	}()

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading stdlib symbols: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("loading hostup symbols: %w", err)
	}

	if _, err := i.Eval(string(source)); err != nil {
		return nil, err
	}
	return extractPlugin(i)
}

// extractPlugin looks for the exported Plugin value first, then the
// NewPlugin constructor.
func extractPlugin(i *interp.Interpreter) (types.Plugin, error) {
	if v, err := i.Eval("main.Plugin"); err == nil {
		if plugin, ok := v.Interface().(types.Plugin); ok {
			return plugin, nil
		}
		return nil, fmt.Errorf("Plugin does not implement the plugin interface")
	}

	v, err := i.Eval("main.NewPlugin")
	if err != nil {
		return nil, fmt.Errorf("plugin file must export Plugin or NewPlugin()")
	}
	ctor, ok := v.Interface().(func() types.Plugin)
	if !ok {
		return nil, fmt.Errorf("NewPlugin has the wrong signature (want func() types.Plugin)")
	}
	plugin := ctor()
	if plugin == nil {
		return nil, fmt.Errorf("NewPlugin returned nil")
	}
	return plugin, nil
}
