// Package paths holds the path helpers shared by the symlink engine
// and the built-in plugins: tilde and environment expansion, symlink
// aware normalization, and writability probes.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Expand resolves ~ and $VAR references and returns an absolute,
// cleaned path. Symlinks are not resolved.
func Expand(p string) string {
	if p == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			p = home
		}
	} else if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	p = os.ExpandEnv(p)
	return AbsNoResolve(p)
}

// AbsNoResolve normalizes a path to absolute form (cleaning .. and .)
// without following symlinks.
func AbsNoResolve(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// CanWrite reports whether the current user can write to the path's
// directory: the path itself when it is a directory, its parent
// otherwise.
func CanWrite(p string) bool {
	dir := p
	if info, err := os.Stat(p); err != nil || !info.IsDir() {
		dir = filepath.Dir(p)
	}
	return unix.Access(dir, unix.W_OK) == nil
}
