// Package transfer implements the concurrent multi-fetch engine (§4.2, C2):
// bounded in-flight HTTP GETs with cooperative pause/resume.
//
// A libcurl-style multi-handle model assumes a single-threaded poll loop
// driving many non-blocking sockets. Go's net/http has no equivalent
// non-blocking multi-stream primitive, so each in-flight transfer gets its
// own goroutine doing ordinary blocking reads (the idiomatic Go stand-in for
// a transport poll loop); those goroutines only ever forward bytes over a
// channel. All stateful decisions — advancing a Fetch's SAF/deblock state,
// the pause ring, in-flight bookkeeping — happen in Pump/Drain, called from
// a single goroutine, which keeps only the main task mutating shared state.
package transfer

import (
	"io"
	"net/http"
	"sync"
)

// Handle is the per-fetch callback surface the engine drives. The
// orchestrator package's *Fetch implements it directly, one Handle per
// Fetch.
type Handle interface {
	// Group identifies the Fetch's owning Query, for pause/resume grouping
	// under batch-verbose multiplexing (§4.2, §5).
	Group() any

	// OnStatus is invoked once, when the HTTP response headers arrive.
	OnStatus(code int)

	// OnChunk is invoked for each received byte block. It returns pause=true
	// when the engine should park this transfer until its group is resumed
	// (the "pause sentinel" of §4.2).
	OnChunk(p []byte) (pause bool, err error)

	// OnTransportError is invoked at most once, for a non-EOF read/dial
	// error.
	OnTransportError(err error)

	// OnEOF is invoked at most once, when the body is fully read without
	// error.
	OnEOF()

	// Stopped reports whether this transfer has been intentionally halted
	// (e.g. an output-limit guard). The engine polls it after every chunk
	// to decide whether to keep reading; a stopped transfer's body is
	// closed without treating early termination as a transport error.
	Stopped() bool
}

type eventKind int

const (
	kindStatus eventKind = iota
	kindChunk
	kindEOF
	kindErr
)

type event struct {
	h      Handle
	kind   eventKind
	status int
	data   []byte
	err    error
	ack    chan<- struct{}
}

// Engine drives bounded-concurrency HTTP GET transfers.
type Engine struct {
	client *http.Client
	sem    chan struct{}
	events chan event
	wg     sync.WaitGroup

	mu          sync.Mutex
	inFlight    int
	pausedOrder []any
	paused      map[any][]chan<- struct{}
}

// NewEngine returns an Engine bounded to maxInFlight concurrent transfers
// (default 8 per §4.2).
func NewEngine(client *http.Client, maxInFlight int) *Engine {
	if client == nil {
		client = http.DefaultClient
	}
	if maxInFlight <= 0 {
		maxInFlight = 8
	}
	return &Engine{
		client: client,
		sem:    make(chan struct{}, maxInFlight),
		events: make(chan event, maxInFlight*4),
		paused: make(map[any][]chan<- struct{}),
	}
}

// Add registers a new GET transfer. req should already carry whatever
// headers/auth the backend's Auth hook and UA/Accept conventions require
// (§4.2); Add only manages concurrency and streaming.
func (e *Engine) Add(req *http.Request, h Handle) {
	e.mu.Lock()
	e.inFlight++
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(req, h)
}

// InFlight reports the number of transfers not yet reaped.
func (e *Engine) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

func (e *Engine) run(req *http.Request, h Handle) {
	defer e.wg.Done()

	e.sem <- struct{}{}
	resp, err := e.client.Do(req)
	<-e.sem

	if err != nil {
		e.events <- event{h: h, kind: kindErr, err: err}
		return
	}
	defer func() { _ = resp.Body.Close() }()
	e.events <- event{h: h, kind: kindStatus, status: resp.StatusCode}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			ack := make(chan struct{}, 1)
			data := make([]byte, n)
			copy(data, buf[:n])
			e.events <- event{h: h, kind: kindChunk, data: data, ack: ack}
			<-ack // blocks here when the dispatcher parks this transfer (pause)
			if h.Stopped() {
				// Intentional early termination (e.g. an output-limit guard):
				// reported as a clean completion, never a transport error.
				e.events <- event{h: h, kind: kindEOF}
				return
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				e.events <- event{h: h, kind: kindEOF}
			} else {
				e.events <- event{h: h, kind: kindErr, err: rerr}
			}
			return
		}
	}
}

// Pump drains queued events, invoking the bound Handle for each, until
// in-flight transfers fall to targetJobs or below (§4.2).
func (e *Engine) Pump(targetJobs int) {
	for e.InFlight() > targetJobs {
		e.dispatch(<-e.events)
	}
}

// Drain resumes every paused group and reaps all remaining transfers.
func (e *Engine) Drain() {
	for e.resumeNext() {
	}
	e.Pump(0)
}

// Wait blocks until every spawned transfer goroutine has returned. Callers
// should call Drain first; Wait alone does not pump events.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) dispatch(ev event) {
	switch ev.kind {
	case kindStatus:
		ev.h.OnStatus(ev.status)
	case kindChunk:
		pause, err := ev.h.OnChunk(ev.data)
		if err != nil {
			ev.h.OnTransportError(err)
			ev.ack <- struct{}{}
			return
		}
		if pause {
			e.park(ev.h.Group(), ev.ack)
			return
		}
		ev.ack <- struct{}{}
	case kindEOF:
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
		ev.h.OnEOF()
	case kindErr:
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
		ev.h.OnTransportError(ev.err)
	}
}

func (e *Engine) park(group any, ack chan<- struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.paused[group]; !ok {
		e.pausedOrder = append(e.pausedOrder, group)
	}
	e.paused[group] = append(e.paused[group], ack)
}

// ResumeNext pops one paused group (FIFO) and releases all of its currently
// parked transfers. It reports whether a group was resumed.
func (e *Engine) ResumeNext() bool {
	return e.resumeNext()
}

func (e *Engine) resumeNext() bool {
	e.mu.Lock()
	if len(e.pausedOrder) == 0 {
		e.mu.Unlock()
		return false
	}
	group := e.pausedOrder[0]
	e.pausedOrder = e.pausedOrder[1:]
	acks := e.paused[group]
	delete(e.paused, group)
	e.mu.Unlock()

	for _, ack := range acks {
		ack <- struct{}{}
	}
	return true
}

// HasPaused reports whether any group is currently parked.
func (e *Engine) HasPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pausedOrder) > 0
}
