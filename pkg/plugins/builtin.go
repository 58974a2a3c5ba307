package plugins

import "github.com/arthur-debert/hostup/pkg/types"

// Builtin returns the built-in plugin set in a stable order, for
// predictable registration and logging.
func Builtin() []types.Plugin {
	return []types.Plugin{
		&PacmanPackagePlugin{},
		&YayPackagePlugin{},
		&SystemctlServicePlugin{},
		&LnSymlinkPlugin{},
		&BashShellPlugin{},
	}
}
