// Package backends holds the thin, stateless wrappers the built-in
// plugins use to talk to the host: pacman, yay, systemctl, bash. Each
// is a struct over the shared Runner so tests can substitute process
// execution.
package backends

import (
	"strings"

	"github.com/arthur-debert/hostup/pkg/types"
)

// Pacman installs packages with the system package manager.
type Pacman struct {
	Runner types.Runner
}

// IsInstalled probes the local package database. pacman -Qi exits 0
// when the package is installed.
func (b Pacman) IsInstalled(pkg string) bool {
	res, err := b.Runner.Run([]string{"pacman", "-Qi", pkg}, types.RunOpts{Capture: true})
	if err != nil {
		return false
	}
	return res.ExitCode == 0
}

// Install installs one package, elevated, without prompting.
func (b Pacman) Install(pkg string) error {
	_, err := b.Runner.Run(
		[]string{"pacman", "-S", "--noconfirm", "--needed", pkg},
		types.RunOpts{Sudo: true, Check: true, Capture: true},
	)
	return err
}

// Yay installs AUR packages. Installed packages, AUR-built ones
// included, are still tracked by pacman, so the probe goes there.
type Yay struct {
	Runner types.Runner
}

func (b Yay) IsInstalled(pkg string) bool {
	res, err := b.Runner.Run([]string{"pacman", "-Qi", pkg}, types.RunOpts{Capture: true})
	if err != nil {
		return false
	}
	return res.ExitCode == 0
}

// Install builds and installs from the AUR. yay refuses to run as
// root, so no elevation here.
func (b Yay) Install(pkg string) error {
	_, err := b.Runner.Run(
		[]string{"yay", "-S", "--noconfirm", "--needed", pkg},
		types.RunOpts{Check: true, Capture: true},
	)
	return err
}

// Systemctl manages systemd units.
type Systemctl struct {
	Runner types.Runner
}

// IsEnabled reports whether a unit is enabled. systemctl is-enabled
// exits 0 when it is.
func (b Systemctl) IsEnabled(unit string) bool {
	res, err := b.Runner.Run([]string{"systemctl", "is-enabled", unit}, types.RunOpts{Capture: true})
	if err != nil {
		return false
	}
	return res.ExitCode == 0
}

// Enable enables a unit, optionally starting it immediately.
func (b Systemctl) Enable(unit string, now bool) error {
	argv := []string{"systemctl", "enable"}
	if now {
		argv = append(argv, "--now")
	}
	argv = append(argv, unit)
	_, err := b.Runner.Run(argv, types.RunOpts{Sudo: true, Check: true, Capture: true})
	return err
}

// Bash runs scripts through a login shell.
type Bash struct {
	Runner types.Runner
}

// RunScript executes the lines as a single bash session so stateful
// commands like cd persist across lines. The session runs under
// set -euo pipefail.
func (b Bash) RunScript(lines []string, cwd string, sudo bool, showOutput bool) (types.RunResult, error) {
	script := "set -euo pipefail\n" + strings.Join(lines, "\n") + "\n"
	return b.Runner.Run([]string{"bash", "-lc", script}, types.RunOpts{
		Sudo:    sudo,
		Check:   true,
		Capture: !showOutput,
		Dir:     cwd,
	})
}
