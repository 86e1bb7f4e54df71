// Package console prints the human-facing status lines: per-playbook
// results and the final outcome. Diagnostics go through slog; this is
// only the colored summary a user sees on a terminal.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Console writes status lines, colored when the destination is a
// terminal and color was not disabled.
type Console struct {
	out     io.Writer
	profile termenv.Profile
}

// New builds a console writing to out. noColor forces plain output;
// otherwise color depends on out being a TTY and on NO_COLOR.
func New(out io.Writer, noColor bool) *Console {
	profile := termenv.Ascii
	if !noColor && os.Getenv("NO_COLOR") == "" && isTerminal(out) {
		profile = termenv.ColorProfile()
	}
	return &Console{out: out, profile: profile}
}

// Successf prints a green status line.
func (c *Console) Successf(format string, args ...any) {
	c.print("#22c55e", format, args...)
}

// Warnf prints a yellow status line.
func (c *Console) Warnf(format string, args ...any) {
	c.print("#eab308", format, args...)
}

// Errorf prints a red status line.
func (c *Console) Errorf(format string, args ...any) {
	c.print("#ef4444", format, args...)
}

// Infof prints an uncolored status line.
func (c *Console) Infof(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) print(color, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	styled := termenv.String(line).Foreground(c.profile.Color(color))
	fmt.Fprintln(c.out, styled)
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
