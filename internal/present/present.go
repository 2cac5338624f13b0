// Package output implements the presenter (§4.9, C9): the five ways a
// parsed tuple.Tuple can be rendered, plus the query-detail/AS-info
// annotation plumbing that text/json/csv share. It is adapted from the
// teacher's internal/output package (JSON/JSONL/Table/Raw/DetectFormat
// become JSON/JSONL/Text/CSV/Minimal over tuple.Tuple instead of
// json.RawMessage rows); each mode is still one function over an
// io.Writer, the same shape the teacher used for its RowIterator-driven
// formats.
package output

import (
	"time"

	"dnsdbq/internal/tuple"
)

// Format selects one of the five presentation modes (§4.9).
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatJSONL   Format = "jsonl"
	FormatCSV     Format = "csv"
	FormatMinimal Format = "minimal"
)

// QDetail carries the query parameters rendered into the `_dnsdbq`
// annotation (JSON/QDETAIL, §4.9); its Descr is also the text of the
// writer's "++" batch header.
// It mirrors orchestrator.Query/QParam without importing that package, to
// keep the presenter a leaf: the caller (writer/sort stage, C8) fills this
// in from the Query it is flushing.
type QDetail struct {
	Descr               string
	After, Before        int64
	HasAfter, HasBefore  bool
	Limit, Offset        int
	Gravel, Complete, Follow bool
}

// Anno is a resolved AS-info annotation for one rdata value (§4.6, C6). The
// presenter never performs the lookup itself; the caller resolves
// annotations ahead of time and passes them in, keeping this package a pure
// rendering leaf.
type Anno struct {
	ASN  string
	CIDR string
	// Err holds a short diagnostic when the lookup failed; ASN/CIDR are
	// empty in that case and no comment is rendered.
	Err string
}

// Options controls transform/annotation behavior shared by the stateful
// presentation modes (§4.9, §6's transforms bitset translated to plain
// bools by the caller so this package need not import internal/config).
type Options struct {
	// DateFix renders epoch timestamps as ISO-8601 instead of passing them
	// through verbatim (TRANS_DATEFIX).
	DateFix bool
	// QDetail attaches the `_dnsdbq` annotation object to JSON output
	// (TRANS_QDETAIL).
	QDetail bool
	// AsInfo renders AS-info comments/columns/annotations when available.
	AsInfo bool
	// RRSetQuery records whether the command-line query is rrset-mode
	// (true) or rdata-mode (false). No presentation mode reads it: Minimal's
	// dedupe side comes from MinimalKeys' rrsetQuery argument.
	RRSetQuery bool
}

// isoTime renders an epoch-seconds field as an ISO-8601 UTC timestamp.
func isoTime(epoch uint64) string {
	return time.Unix(int64(epoch), 0).UTC().Format(time.RFC3339)
}

// annoFor looks up the AS-info annotation for one rdata value, if enabled
// and present; the zero value and false mean "no annotation to render".
func annoFor(anno map[string]Anno, rdata string, enabled bool) (Anno, bool) {
	if !enabled || anno == nil {
		return Anno{}, false
	}
	a, ok := anno[rdata]
	if !ok || (a.ASN == "" && a.CIDR == "" && a.Err == "") {
		return Anno{}, false
	}
	return a, true
}

// Summary is the aggregate-counts rendition used by the summarize variants
// of text/json/csv (§4.9): a single row replaces the record stream.
type Summary struct {
	Count      uint64
	NumResults *uint64
	First      *uint64
	Last       *uint64
}

// Accumulate folds one tuple into a running Summary.
func (s *Summary) Accumulate(t *tuple.Tuple) {
	s.Count++
	if t.NumResults != nil {
		v := *t.NumResults
		s.NumResults = &v
	}
	if t.TimeFirst != nil && (s.First == nil || *t.TimeFirst < *s.First) {
		v := *t.TimeFirst
		s.First = &v
	}
	if t.TimeLast != nil && (s.Last == nil || *t.TimeLast > *s.Last) {
		v := *t.TimeLast
		s.Last = &v
	}
}
