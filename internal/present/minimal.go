package output

import (
	"fmt"
	"io"

	"dnsdbq/internal/tuple"
)

// MinimalKeys returns the candidate strings one tuple contributes to
// minimal-mode output (§4.9): the rrname alone for an rrset-mode query
// (LHS-only), or each rdata value for an rdata-mode query (RHS-only). The
// caller (writer/sort stage, C8) owns the dedupe set and decides which keys
// are novel; this function is a pure projection.
func MinimalKeys(t *tuple.Tuple, rrsetQuery bool) []string {
	if rrsetQuery {
		return []string{t.RRName}
	}
	return append([]string(nil), t.RData...)
}

// Minimal writes one already-deduplicated key, one per line.
func Minimal(w io.Writer, key string) error {
	_, err := fmt.Fprintln(w, key)
	return err
}
