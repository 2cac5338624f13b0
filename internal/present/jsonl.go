package output

import (
	"bytes"
	"fmt"
	"io"

	"dnsdbq/internal/tuple"
)

// JSONL renders one tuple as its original COF line, unmodified: the
// lightest-weight presentation mode, a straight passthrough of the wire
// record rather than the deep-copied/annotated rendition JSON mode builds
// (§4.9). Trailing CR/LF bytes from the source stream are trimmed; exactly
// one newline is written.
func JSONL(w io.Writer, t *tuple.Tuple) error {
	_, err := fmt.Fprintln(w, string(bytes.TrimRight(t.Raw, "\r\n")))
	return err
}
