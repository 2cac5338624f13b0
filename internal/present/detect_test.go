package output

import (
	"os"
	"testing"
)

func TestDetectFormatTTY(t *testing.T) {
	orig := isTerminalFn
	defer func() { isTerminalFn = orig }()
	isTerminalFn = func(*os.File) bool { return true }

	if got := DetectFormat(nil, ""); got != "text" {
		t.Errorf("expected text for TTY, got %q", got)
	}
}

func TestDetectFormatNonTTY(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() }) //nolint:errcheck
	t.Cleanup(func() { w.Close() }) //nolint:errcheck

	if got := DetectFormat(w, ""); got != "jsonl" {
		t.Errorf("expected jsonl for non-TTY pipe, got %q", got)
	}
}

func TestDetectFormatFlagOverride(t *testing.T) {
	orig := isTerminalFn
	defer func() { isTerminalFn = orig }()

	for _, flag := range []string{"json", "jsonl", "csv", "minimal"} {
		// test with TTY to confirm flag wins over detection
		isTerminalFn = func(*os.File) bool { return true }
		if got := DetectFormat(nil, flag); got != flag {
			t.Errorf("flag %q: expected %q, got %q", flag, flag, got)
		}
		// test with non-TTY to confirm flag wins over detection
		isTerminalFn = func(*os.File) bool { return false }
		if got := DetectFormat(nil, flag); got != flag {
			t.Errorf("flag %q (non-tty): expected %q, got %q", flag, flag, got)
		}
	}
}
