package output

import (
	"os"

	"golang.org/x/term"
)

// isTerminalFn allows overriding terminal detection in tests.
var isTerminalFn = func(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// DetectFormat returns the output format to use. If flagFormat is non-empty
// it is returned directly (explicit flag wins). Otherwise "text" for a TTY
// stdout or "jsonl" for a non-TTY (pipe, redirect, etc.), per §4.9's default.
func DetectFormat(stdout *os.File, flagFormat string) string {
	if flagFormat != "" {
		return flagFormat
	}
	if isTerminalFn(stdout) {
		return string(FormatText)
	}
	return string(FormatJSONL)
}
