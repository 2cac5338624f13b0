// Package sortstore implements the writer/sort stage (§4.8, C8): the Sink
// the query orchestrator feeds tuples into, the optional external-sort
// store-and-forward path, the minimal-mode deduper, and postscript
// emission. It has no teacher analogue (the RethinkDB CLI streams rows
// straight to a presenter); its subprocess-pipeline shape is grounded on
// the ordinary exec.Cmd StdinPipe/StdoutPipe idiom the rest of the
// retrieval pack uses for subprocess plumbing, wired here to the
// sort-line format and key set §4.8 specifies.
package sortstore

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"dnsdbq/internal/diag"
	"dnsdbq/internal/orchestrator"
	output "dnsdbq/internal/present"
	"dnsdbq/internal/qerr"
	"dnsdbq/internal/tuple"
)

// Config controls how a Writer assembles and renders output.
type Config struct {
	Sorting     SortMode
	SortKeys    []Key // user-requested key order; empty means insertion order below
	Batching    Batching
	Format      output.Format
	Options     output.Options
	OutputLimit int // <=0 means unlimited
	AsInfo      AsInfoFunc
	SortPath    string // path to the sort(1) binary; "" means "/usr/bin/sort"
	Summarize   bool   // replace per-record output with one aggregate row per query (§4.9)
}

// SortMode mirrors config.Sorting without importing the CLI config package.
type SortMode int

const (
	NoSort SortMode = iota
	NormalSort
	ReverseSort
)

// Batching mirrors config.Batching without importing the CLI config package.
type Batching int

const (
	BatchNone Batching = iota
	BatchTerse
	BatchVerbose
)

// AsInfoFunc resolves an AS-info annotation for one rdata value; nil
// disables annotation entirely (§4.6's build-flag omission reaches the
// presenter through this being nil).
type AsInfoFunc func(rrtype, rdata string) (output.Anno, bool)

// queryState tracks one Query's bookkeeping inside the Writer.
type queryState struct {
	q             *orchestrator.Query
	qd            output.QDetail
	rrsetQuery    bool
	headerPrinted bool
	producedAny   bool
	done          bool
	summary       output.Summary
}

// Writer assembles the output of one or more Queries (§3). It implements
// orchestrator.Sink.
type Writer struct {
	out io.Writer
	log *diag.Logger
	cfg Config

	mu          sync.Mutex
	states      map[*orchestrator.Query]*queryState
	order       []*orchestrator.Query
	outstanding int
	outputCount int
	limitHit    bool
	exitBad     bool

	csv  *output.CSVWriter
	seen map[string]struct{} // minimal-mode dedupe set

	sortProc *sortProcess // nil when Sorting == NoSort
}

// New returns a Writer rendering to out. Callers must call AddQuery for
// every Query before launching its fetches, so the Writer knows when the
// last one has drained.
func New(out io.Writer, log *diag.Logger, cfg Config) (*Writer, error) {
	w := &Writer{
		out:    out,
		log:    log,
		cfg:    cfg,
		states: make(map[*orchestrator.Query]*queryState),
	}
	if cfg.Format == output.FormatCSV {
		w.csv = output.NewCSVWriter(out, cfg.Options)
	}
	if cfg.Format == output.FormatMinimal {
		w.seen = make(map[string]struct{})
	}
	if cfg.Sorting != NoSort && !cfg.Summarize {
		sp, err := newSortProcess(cfg.SortPath, cfg.SortKeys, cfg.Sorting == ReverseSort)
		if err != nil {
			return nil, fmt.Errorf("sortstore: starting sort subprocess: %w", err)
		}
		w.sortProc = sp
	}
	return w, nil
}

// AddQuery registers q with the Writer before its fetches are launched.
func (w *Writer) AddQuery(q *orchestrator.Query, qd output.QDetail, rrsetQuery bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := &queryState{q: q, qd: qd, rrsetQuery: rrsetQuery}
	w.states[q] = st
	w.order = append(w.order, q)
	w.outstanding++
}

// Tuple implements orchestrator.Sink: a parsed record arrives for q.
func (w *Writer) Tuple(q *orchestrator.Query, t *tuple.Tuple) {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := w.states[q]
	if st == nil {
		return // defensive: a tuple for an unregistered query is a caller bug, not a fatal error
	}
	st.producedAny = true

	if w.cfg.Summarize {
		st.summary.Accumulate(t)
		return
	}

	if w.cfg.Sorting != NoSort {
		if err := w.sortProc.writeLine(t); err != nil {
			w.log.Warnf("sortstore: writing sort line: %v\n", err)
		}
		return
	}

	if w.limitHit {
		return
	}
	w.printBatchHeader(st)
	if w.present(st, t) {
		q.StopAll()
	}
}

// present renders t and enforces the output limit (§4.8); it reports
// whether the limit was just reached, so the caller can stop the owning
// Query's fetches.
func (w *Writer) present(st *queryState, t *tuple.Tuple) (limitReached bool) {
	anno := w.resolveAnno(t)
	if err := w.render(st, t, anno); err != nil {
		w.log.Warnf("sortstore: rendering: %v\n", err)
		return false
	}
	if w.cfg.Format != output.FormatMinimal {
		w.outputCount++
	}
	if w.cfg.OutputLimit > 0 && w.outputCount >= w.cfg.OutputLimit {
		w.limitHit = true
		return true
	}
	return false
}

func (w *Writer) render(st *queryState, t *tuple.Tuple, anno map[string]output.Anno) error {
	switch w.cfg.Format {
	case output.FormatText:
		return output.Text(w.out, t, w.cfg.Options, anno)
	case output.FormatJSON:
		return output.JSON(w.out, t, w.cfg.Options, st.qd, anno)
	case output.FormatJSONL:
		return output.JSONL(w.out, t)
	case output.FormatCSV:
		return w.csv.Write(t, anno)
	case output.FormatMinimal:
		novel := false
		for _, key := range output.MinimalKeys(t, st.rrsetQuery) {
			if _, dup := w.seen[key]; dup {
				continue
			}
			w.seen[key] = struct{}{}
			novel = true
			if err := output.Minimal(w.out, key); err != nil {
				return err
			}
		}
		if novel {
			w.outputCount++
			if w.cfg.OutputLimit > 0 && w.outputCount >= w.cfg.OutputLimit {
				w.limitHit = true
			}
		}
		return nil
	default:
		return fmt.Errorf("sortstore: unknown format %q", w.cfg.Format)
	}
}

func (w *Writer) resolveAnno(t *tuple.Tuple) map[string]output.Anno {
	if w.cfg.AsInfo == nil || !w.cfg.Options.AsInfo {
		return nil
	}
	anno := make(map[string]output.Anno, len(t.RData))
	for _, rdata := range t.RData {
		if a, ok := w.cfg.AsInfo(t.RRType, rdata); ok {
			anno[rdata] = a
		}
	}
	return anno
}

// printBatchHeader writes the "++ <descr>" header to the output the first time a tuple
// surfaces for st's query, under terse/verbose batching (§4.7, D).
func (w *Writer) printBatchHeader(st *queryState) {
	if w.cfg.Batching == BatchNone || st.headerPrinted {
		return
	}
	st.headerPrinted = true
	if w.csv != nil {
		_ = w.csv.Flush()
	}
	fmt.Fprintf(w.out, "++ %s\n", st.qd.Descr)
}

// QueryDone implements orchestrator.Sink: q has no fetches left.
func (w *Writer) QueryDone(q *orchestrator.Query) {
	w.mu.Lock()
	st := w.states[q]
	if st == nil {
		w.mu.Unlock()
		return
	}
	st.done = true
	w.outstanding--
	last := w.outstanding == 0
	w.mu.Unlock()

	w.flushPostscript(st)
	if w.cfg.Summarize {
		if err := w.renderSummary(st); err != nil {
			w.log.Warnf("sortstore: rendering summary: %v\n", err)
		}
	}
	if last {
		w.finish()
	}
}

// renderSummary emits st's aggregate counts in place of its record stream,
// per the summarize variant of whichever format is selected (§4.9).
func (w *Writer) renderSummary(st *queryState) error {
	switch w.cfg.Format {
	case output.FormatJSON, output.FormatJSONL:
		return output.SummaryJSON(w.out, st.summary)
	case output.FormatCSV:
		return output.SummaryCSV(w.out, st.summary)
	default:
		return output.SummaryText(w.out, st.summary)
	}
}

// flushPostscript emits the "-- <status> (<message>)" trailer for one
// Query, regardless of batching mode (SPEC_FULL.md D: not only verbose).
func (w *Writer) flushPostscript(st *queryState) {
	statusErr, ok := st.q.Status()
	if !ok {
		return
	}
	code, message, silent := displayStatus(statusErr)
	if silent {
		w.log.Tracef(1, "sortstore: %s: suppressed status %s (%s)\n", st.qd.Descr, code, message)
		return
	}
	if code != "NOERROR" && exitAffecting(statusErr) && !st.producedAny {
		w.mu.Lock()
		w.exitBad = true
		w.mu.Unlock()
	}
	if w.csv != nil {
		_ = w.csv.Flush()
	}
	if message != "" {
		fmt.Fprintf(w.out, "-- %s (%s)\n", code, message)
	} else {
		fmt.Fprintf(w.out, "-- %s\n", code)
	}
}

// displayStatus maps a query's terminal qerr error to the short postscript
// code and reports whether it should be suppressed entirely (we_limited,
// per §7: "output_limit is not an error").
func displayStatus(err error) (code, message string, silent bool) {
	switch e := err.(type) {
	case *qerr.SAFTerminalError:
		silent := e.Silent()
		switch e.Status {
		case "succeeded":
			return "NOERROR", e.Detail, silent
		case "limited", "we_limited":
			return "LIMITED", e.Detail, silent
		default: // "failed", "missing", or an unrecognized cond value
			return "ERROR", e.Detail, silent
		}
	case *qerr.HTTPStatusError:
		return "ERROR", e.Message, false
	case *qerr.TransportError:
		return "ERROR", e.Err.Error(), false
	default:
		return "ERROR", err.Error(), false
	}
}

// exitAffecting reports whether err should count toward ExitBad when its
// query produced no tuples (§7); a TransportError defers to its own Kind
// (a TransportStopped cancellation is never failure), every other status in
// the taxonomy is exit-affecting by default.
func exitAffecting(err error) bool {
	if te, ok := err.(*qerr.TransportError); ok {
		return te.ExitAffecting()
	}
	return true
}

// finish runs once all registered Queries have drained: for the sorted
// path it closes sort-stdin, reads sort-stdout, re-parses each payload, and
// renders it; for the direct path there is nothing left to do. Either way
// it flushes any buffered presenter state (CSV).
func (w *Writer) finish() {
	if w.sortProc != nil {
		w.drainSort()
	}
	if w.csv != nil {
		if err := w.csv.Flush(); err != nil {
			w.log.Warnf("sortstore: flushing csv: %v\n", err)
		}
	}
}

func (w *Writer) drainSort() {
	lines, err := w.sortProc.finish(w.cfg.OutputLimit)
	if err != nil {
		w.log.Warnf("sortstore: sort subprocess: %v\n", err)
	}
	for _, line := range lines {
		payload, err := sortLinePayload(line)
		if err != nil {
			w.log.Warnf("sortstore: %v\n", err)
			continue
		}
		t, err := tuple.Parse(payload, 0)
		if err != nil {
			w.log.Warnf("sortstore: re-parsing sorted record: %v\n", err)
			continue
		}
		// The sort pass has already imposed final order and removed
		// duplicates (-u); only one Query's qd is available for JSON
		// QDetail annotation, so the last-registered Query's stands in
		// when more than one Query fed the same Writer.
		st := w.lastState()
		w.present(st, t)
	}
}

func (w *Writer) lastState() *queryState {
	if len(w.order) == 0 {
		return &queryState{}
	}
	return w.states[w.order[len(w.order)-1]]
}

// ExitBad reports whether any query ended in a failing status with no
// tuples recovered (§6's "HTTP non-2xx with no recovered records").
func (w *Writer) ExitBad() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exitBad
}

// scanSortOutput reads newline-delimited sort output up to limit lines (0
// means unlimited), reporting whether it stopped early due to the limit.
func scanSortOutput(r io.Reader, limit int) (lines []string, truncated bool, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
		if limit > 0 && len(lines) >= limit {
			return lines, true, nil
		}
	}
	return lines, false, sc.Err()
}

// sortLinePayload extracts the raw-JSON field from one sort-line: the
// bytes after the seventh space-delimited key field (§4.8, §6).
func sortLinePayload(line string) ([]byte, error) {
	idx := 0
	for i := 0; i < 7; i++ {
		next := indexByteFrom(line, idx, ' ')
		if next < 0 {
			return nil, fmt.Errorf("malformed sort line: missing field %d", i+1)
		}
		idx = next + 1
	}
	return []byte(line[idx:]), nil
}

func indexByteFrom(s string, from int, b byte) int {
	for i := from; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

