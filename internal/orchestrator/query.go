// Package orchestrator expands one user query into one or more fetches
// (rrtype fan-out, follow-CNAME), drives them through the transfer engine,
// and routes parsed tuples to a downstream Sink (§4.7, C7).
package orchestrator

import (
	"net/http"
	"sync"

	"dnsdbq/internal/backend"
	"dnsdbq/internal/deblock"
	"dnsdbq/internal/diag"
	"dnsdbq/internal/qerr"
	"dnsdbq/internal/saf"
	"dnsdbq/internal/transfer"
	"dnsdbq/internal/tuple"
)

// QDesc is the user-supplied query shape (§3's qdesc).
type QDesc struct {
	Mode      backend.Mode
	Thing     string
	RRTypes   []string // empty means "backend default"
	Bailiwick string
	PfxLen    int
}

// QParam is the query-shaping parameter set (§3).
type QParam struct {
	After, Before       int64
	HasAfter, HasBefore bool
	QueryLimit          int
	OutputLimit         int
	Offset              int
	Complete            bool
	Gravel              bool
	Follow              bool
}

// Fence computes the time-window fence passed to Backend.URL, per §4.7:
// Complete means tuples must lie wholly inside the window; otherwise they
// need only overlap it.
func (p QParam) Fence() backend.Fence {
	var f backend.Fence
	if p.Complete {
		if p.HasAfter {
			v := p.After
			f.FirstAfter = &v
		}
		if p.HasBefore {
			v := p.Before
			f.LastBefore = &v
		}
		return f
	}
	if p.HasAfter {
		v := p.After
		f.LastAfter = &v
	}
	if p.HasBefore {
		v := p.Before
		f.FirstBefore = &v
	}
	return f
}

// Sink receives parsed tuples as fetches produce them, and is notified when
// a Query has no fetches left. Implemented by the writer/sort stage (C8),
// which also drives the presenter (C9) directly when sorting is disabled.
type Sink interface {
	Tuple(q *Query, t *tuple.Tuple)
	QueryDone(q *Query)
}

// Query is a user-visible operation; it owns a list of Fetches (§3).
type Query struct {
	Desc   string
	QDesc  QDesc
	Params QParam

	mu        sync.Mutex
	fetches   []*Fetch
	statusErr error
	multitype bool
}

// NewQuery constructs a Query; fetches are added by Launch.
func NewQuery(desc string, qd QDesc, params QParam) *Query {
	return &Query{Desc: desc, QDesc: qd, Params: params}
}

// Multitype reports whether this query fanned out across more than one
// rrtype (§4.7).
func (q *Query) Multitype() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.multitype
}

// Status returns the query-level terminal error, set at most once across
// HTTP non-2xx, transport, and SAF-terminal signals (§3, §7). The
// concrete type is one of qerr's taxonomy (*qerr.HTTPStatusError,
// *qerr.TransportError, *qerr.SAFTerminalError).
func (q *Query) Status() (err error, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statusErr, q.statusErr != nil
}

func (q *Query) setStatusOnce(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.statusErr != nil {
		return
	}
	q.statusErr = err
}

// expand computes the effective rrtype fan-out (§4.7).
func (q *Query) expand() []string {
	switch {
	case q.Params.Follow:
		return []string{"ANY"}
	case len(q.QDesc.RRTypes) == 0:
		return []string{""}
	default:
		if len(q.QDesc.RRTypes) > 1 {
			q.mu.Lock()
			q.multitype = true
			q.mu.Unlock()
		}
		return q.QDesc.RRTypes
	}
}

// Launch builds one Fetch per effective rrtype, registers each with eng, and
// starts the GET. flags controls the name transforms C5 applies while
// parsing records (§4.5); tracker enforces the single-active-query
// invariant under batch-verbose multiplexing and may be nil.
func (q *Query) Launch(eng *transfer.Engine, b backend.Backend, flags tuple.Flags, tracker *ActiveTracker, log *diag.Logger, sink Sink) error {
	rrtypes := q.expand()
	fence := q.Params.Fence()
	meta := backend.Meta{
		QueryLimit:  q.Params.QueryLimit,
		OutputLimit: q.Params.OutputLimit,
		Offset:      q.Params.Offset,
	}

	var fetches []*Fetch
	q.mu.Lock()
	for _, rrtype := range rrtypes {
		path := backend.Path{
			Mode:      q.QDesc.Mode,
			Thing:     q.QDesc.Thing,
			RRType:    rrtype,
			Bailiwick: q.QDesc.Bailiwick,
			PfxLen:    q.QDesc.PfxLen,
		}
		u, err := b.URL(path, fence, meta)
		if err != nil {
			q.mu.Unlock()
			return &qerr.ConfigError{Reason: err.Error()}
		}
		f := &Fetch{
			query:   q,
			rrtype:  rrtype,
			url:     u,
			deblock: &deblock.Deblocker{},
			flags:   flags,
			sink:    sink,
			encap:   b.Encapsulation(),
			tracker: tracker,
			log:     log,
		}
		if b.Encapsulation() == backend.SAF {
			f.saf = saf.NewFramer()
		}
		q.fetches = append(q.fetches, f)
		fetches = append(fetches, f)
	}
	q.mu.Unlock()

	for _, f := range fetches {
		req, err := f.buildRequest(b)
		if err != nil {
			return err
		}
		eng.Add(req, f)
	}
	return nil
}

// StopAll marks every outstanding fetch of q as intentionally stopped, used
// by the writer's output-limit guard (§4.8).
func (q *Query) StopAll() {
	q.mu.Lock()
	fetches := append([]*Fetch(nil), q.fetches...)
	q.mu.Unlock()
	for _, f := range fetches {
		f.Stop()
	}
}

// unlink removes f from q's fetch list (fetch-unlink, §4.2 drain) and
// reports whether q now has no fetches left.
func (q *Query) unlink(f *Fetch) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, x := range q.fetches {
		if x == f {
			q.fetches = append(q.fetches[:i], q.fetches[i+1:]...)
			break
		}
	}
	return len(q.fetches) == 0
}

func buildRequest(u string, encap backend.Encapsulation, auth func(*http.Request)) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "dnsdbq/2.0")
	if encap == backend.SAF {
		req.Header.Set("Accept", "application/x-ndjson")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	auth(req)
	return req, nil
}
