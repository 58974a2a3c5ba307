// Package plugins ships the built-in command plugins: package
// installation (pacman, yay), service enablement (systemctl), symlink
// reconciliation (ln), and shell scripts (bash). Each plugin declares
// the (kind, backend) pairs it serves, probes its own availability,
// and compiles raw descriptors into executable commands.
//
// External plugins implement the same types.Plugin contract and are
// picked up by the loader subpackage.
package plugins
