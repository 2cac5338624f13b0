package orchestrator

import (
	"bytes"
	"net/http"
	"net/url"
	"sync/atomic"

	"dnsdbq/internal/backend"
	"dnsdbq/internal/deblock"
	"dnsdbq/internal/diag"
	"dnsdbq/internal/qerr"
	"dnsdbq/internal/saf"
	"dnsdbq/internal/tuple"
)

const maxStatusBodyPeek = 4096

// Fetch is one outstanding HTTP GET bound to a Query (§3). It implements
// transfer.Handle; its callbacks run on the transfer engine's single
// dispatch goroutine, with the single exception of Stopped(), which the
// engine polls from the transfer's own read goroutine and which is
// therefore backed by an atomic flag rather than the plain fields below.
type Fetch struct {
	query   *Query
	rrtype  string
	url     *url.URL
	httpStatus int

	deblock *deblock.Deblocker
	saf     *saf.Framer // nil for COF backends
	flags   tuple.Flags
	errBody []byte

	cnameBuf []*tuple.Tuple // buffered CNAME tuples awaiting follow-replay

	sink    Sink
	encap   backend.Encapsulation
	tracker *ActiveTracker
	log     *diag.Logger

	stopped atomic.Bool
}

func (f *Fetch) buildRequest(b backend.Backend) (*http.Request, error) {
	return buildRequest(f.url.String(), f.encap, b.Auth)
}

// Group identifies this fetch's owning query for batch-verbose pause/resume
// grouping (§4.2, §5).
func (f *Fetch) Group() any { return f.query }

// Stopped satisfies transfer.Handle.
func (f *Fetch) Stopped() bool { return f.stopped.Load() }

// Stop marks the fetch as intentionally halted (output-limit guard, §4.8).
// The next ack the transfer engine delivers causes the read loop to exit
// without this being treated as a transport error.
func (f *Fetch) Stop() {
	f.stopped.Store(true)
	if f.saf != nil {
		f.saf.Stop()
	}
}

// OnStatus records the HTTP response code, once, per §4.2.
func (f *Fetch) OnStatus(code int) {
	f.httpStatus = code
}

// OnChunk implements the per-chunk callback of §4.2: non-200 responses are
// diverted to first-line status extraction; 200 responses flow through the
// deblocker, the SAF framer (if this backend uses SAF), and the tuple
// parser, landing in the Sink.
func (f *Fetch) OnChunk(p []byte) (pause bool, err error) {
	if f.httpStatus != 0 && f.httpStatus != http.StatusOK {
		f.errBody = append(f.errBody, p...)
		if i := bytes.IndexByte(f.errBody, '\n'); i >= 0 {
			f.reportHTTPStatus(f.errBody[:i])
			f.errBody = nil
		} else if len(f.errBody) > maxStatusBodyPeek {
			f.reportHTTPStatus(f.errBody)
			f.errBody = nil
		}
		return false, nil
	}

	if f.tracker != nil && !f.tracker.TryEnter(f.query) {
		return true, nil
	}

	for _, rec := range f.deblock.Feed(p) {
		f.handleRecord(rec)
	}
	return false, nil
}

func (f *Fetch) reportHTTPStatus(body []byte) {
	f.query.setStatusOnce(&qerr.HTTPStatusError{Code: f.httpStatus, Message: string(body)})
}

func (f *Fetch) handleRecord(rec []byte) {
	var payload []byte
	if f.saf != nil {
		obj, err := f.saf.Feed(rec)
		if err != nil {
			f.log.Warnf("saf: %v\n", err)
			return
		}
		if f.saf.State().IsTerminal() {
			f.stopped.Store(true)
			f.query.setStatusOnce(&qerr.SAFTerminalError{Status: f.saf.State().String(), Detail: f.saf.Message()})
		}
		if obj == nil {
			return
		}
		payload = obj
	} else {
		payload = rec
	}

	t, err := tuple.Parse(payload, f.flags)
	if err != nil {
		f.log.Warnf("%v\n", &qerr.ParseError{Line: payload, Reason: err.Error()})
		return
	}

	if f.query.Params.Follow && t.RRType == "CNAME" {
		f.cnameBuf = append(f.cnameBuf, t)
		return
	}
	f.sink.Tuple(f.query, t)
}

// OnTransportError implements transfer.Handle; any remaining CNAME buffer is
// discarded, since a broken transfer has nothing left to replay.
func (f *Fetch) OnTransportError(err error) {
	if !f.stopped.Load() {
		f.query.setStatusOnce(&qerr.TransportError{Kind: qerr.ClassifyTransport(err), Err: err})
	}
	f.finish()
}

// OnEOF implements transfer.Handle: the SAF framer (if any) is told the
// stream ended, buffered CNAME tuples are replayed, and the fetch is
// unlinked from its query.
func (f *Fetch) OnEOF() {
	if f.saf != nil {
		f.saf.EOF()
		if f.saf.State().IsTerminal() {
			f.query.setStatusOnce(&qerr.SAFTerminalError{Status: f.saf.State().String(), Detail: f.saf.Message()})
		}
	}
	f.replayCNAMEs()
	f.finish()
}

// replayCNAMEs delivers buffered CNAME tuples to the sink at fetch-done,
// per §4.7's "replayed through the router before destruction". Chasing the
// alias chain with a follow-up Query is the caller's responsibility; the
// orchestrator only guarantees the buffered tuples are not lost.
func (f *Fetch) replayCNAMEs() {
	for _, t := range f.cnameBuf {
		f.sink.Tuple(f.query, t)
	}
	f.cnameBuf = nil
}

// FollowTargets returns the rdata of every buffered CNAME tuple, for a
// caller that wants to chase aliases with further queries.
func (f *Fetch) FollowTargets() []string {
	var targets []string
	for _, t := range f.cnameBuf {
		targets = append(targets, t.RData...)
	}
	return targets
}

func (f *Fetch) finish() {
	if f.query.unlink(f) {
		if f.tracker != nil {
			f.tracker.Release(f.query)
		}
		f.sink.QueryDone(f.query)
	}
}
