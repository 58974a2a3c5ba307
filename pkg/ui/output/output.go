// Package output renders the per-document apply report. Each document
// gets a header line with its description, version and relative path,
// then one connector-prefixed line per command result.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Adaptive colors, adjusted for light and dark terminals.
var (
	headerColor = lipgloss.AdaptiveColor{
		Light: "#212529",
		Dark:  "#F8F9FA",
	}

	pathColor = lipgloss.AdaptiveColor{
		Light: "#6C757D",
		Dark:  "#A0A8B0",
	}

	resultColor = lipgloss.AdaptiveColor{
		Light: "#495057",
		Dark:  "#E9ECEF",
	}

	connectorColor = lipgloss.AdaptiveColor{
		Light: "#ADB5BD",
		Dark:  "#6C757D",
	}

	errorColor = lipgloss.AdaptiveColor{
		Light: "#DC3545",
		Dark:  "#FF6B7D",
	}

	warningColor = lipgloss.AdaptiveColor{
		Light: "#FFC107",
		Dark:  "#FFD54F",
	}
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(headerColor).
			Bold(true)

	pathStyle = lipgloss.NewStyle().
			Foreground(pathColor).
			Italic(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(resultColor)

	connectorStyle = lipgloss.NewStyle().
			Foreground(connectorColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)
)

// Reporter writes the apply report. With styling off every line comes
// out as plain text, which is also what the tests read.
type Reporter struct {
	w      io.Writer
	styled bool
}

// NewReporter builds a Reporter for w. Styling is enabled only when w
// is an interactive terminal and the environment does not disable
// color (NO_COLOR, TERM=dumb).
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w, styled: shouldStyle(w)}
}

// NewPlainReporter builds a Reporter that never styles.
func NewPlainReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

func shouldStyle(w io.Writer) bool {
	if termenv.EnvNoColor() {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *Reporter) render(style lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return style.Render(s)
}

// RunStart announces how many documents the run covers.
func (r *Reporter) RunStart(fileCount int) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.render(headerStyle, fmt.Sprintf("=== Configuring (%d files) ===", fileCount)))
}

// DocumentHeader prints the `# <description> v<version> @ <rel-path>`
// line. A nil version renders as "?".
func (r *Reporter) DocumentHeader(description string, version *int, relPath string) {
	ver := "?"
	if version != nil {
		ver = fmt.Sprintf("%d", *version)
	}
	fmt.Fprintf(r.w, "%s %s\n",
		r.render(headerStyle, fmt.Sprintf("# %s v%s", description, ver)),
		r.render(pathStyle, "@ "+relPath),
	)
}

// CommandResult prints one command's report line. The last command of
// a document gets the closing connector.
func (r *Reporter) CommandResult(msg string, last bool) {
	connector := "├─"
	if last {
		connector = "└─"
	}
	fmt.Fprintf(r.w, "%s %s\n",
		r.render(connectorStyle, connector),
		r.render(resultStyle, msg),
	)
}

// Warning prints a non-fatal problem, plugin load failures mostly.
func (r *Reporter) Warning(msg string) {
	fmt.Fprintf(r.w, "%s %s\n", r.render(warningStyle, "warning:"), msg)
}

// Error prints a failure line.
func (r *Reporter) Error(msg string) {
	fmt.Fprintf(r.w, "%s %s\n", r.render(errorStyle, "error:"), msg)
}

// Done closes the report.
func (r *Reporter) Done() {
	fmt.Fprintln(r.w, r.render(headerStyle, "Done."))
}
