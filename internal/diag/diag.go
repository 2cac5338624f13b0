// Package diag centralizes the stderr diagnostics the core emits for
// connection/transfer status and parse warnings:
// plain fmt.Fprintf(os.Stderr, ...) calls gated by quiet/verbose, rather
// than a structured logging library, so the gating logic lives in one
// place instead of being repeated at every call site.
package diag

import (
	"fmt"
	"io"
	"os"
)

// Logger writes diagnostics to Out, honoring Quiet and Verbose the way the
// CLI's --quiet/--verbose/--debug-level flags configure it.
type Logger struct {
	Out     io.Writer
	Quiet   bool
	Verbose bool
	// Level mirrors --debug-level (§ ambient CLI surface): 0 suppresses
	// every Tracef of level 1 or above, higher values are progressively
	// chattier.
	Level int
}

// New returns a Logger writing to os.Stderr.
func New() *Logger {
	return &Logger{Out: os.Stderr}
}

// Printf always writes, unless Quiet is set. Use for anything the user
// explicitly asked to suppress with --quiet.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.Quiet {
		return
	}
	fmt.Fprintf(l.Out, format, args...)
}

// Warnf writes regardless of Quiet: parse warnings and transport failures
// are diagnostics, not decoration (§7's "logged, record skipped").
func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	fmt.Fprintf(l.Out, format, args...)
}

// Verbosef writes only when Verbose is set (connection info, timing).
func (l *Logger) Verbosef(format string, args ...any) {
	if l == nil || !l.Verbose {
		return
	}
	fmt.Fprintf(l.Out, format, args...)
}

// Tracef writes only when Level is at least level, for --debug-level's
// bitset-free numeric verbosity knob.
func (l *Logger) Tracef(level int, format string, args ...any) {
	if l == nil || l.Level < level {
		return
	}
	fmt.Fprintf(l.Out, format, args...)
}
