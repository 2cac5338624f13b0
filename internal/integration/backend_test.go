//go:build integration

package integration

import (
	"net/http"
	"sync"
	"testing"

	"dnsdbq/internal/backend"
	"dnsdbq/internal/diag"
	"dnsdbq/internal/orchestrator"
	"dnsdbq/internal/transfer"
	"dnsdbq/internal/tuple"
)

// collectSink gathers every tuple a Query produces, for assertion.
type collectSink struct {
	mu     sync.Mutex
	tuples []*tuple.Tuple
	done   bool
}

func (s *collectSink) Tuple(q *orchestrator.Query, t *tuple.Tuple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuples = append(s.tuples, t)
}

func (s *collectSink) QueryDone(q *orchestrator.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

// TestDNSDBv2_EndToEnd drives a real DNSDBv2 backend, over a real TCP
// connection, through the whole transfer/orchestrator pipeline against the
// containerized fixture server, the same shape as the teacher's
// integration suite running real ReQL queries against a live rethinkdb.
func TestDNSDBv2_EndToEnd(t *testing.T) {
	b := backend.NewDNSDBv2(containerBaseURL)
	if err := b.Setenv("apikey", "integration-test-key"); err != nil {
		t.Fatalf("Setenv: %v", err)
	}
	if err := b.Ready(); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	eng := transfer.NewEngine(&http.Client{}, 4)
	sink := &collectSink{}
	log := diag.New()

	q := orchestrator.NewQuery(
		"a.example.com",
		orchestrator.QDesc{Mode: backend.ModeRRsetName, Thing: "a.example.com"},
		orchestrator.QParam{},
	)
	if err := q.Launch(eng, b, 0, nil, log, sink); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	eng.Drain()
	eng.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if !sink.done {
		t.Error("expected QueryDone to have been called")
	}
	if len(sink.tuples) != 1 {
		t.Fatalf("expected 1 tuple, got %d", len(sink.tuples))
	}
	got := sink.tuples[0]
	if got.RRName != "a.example.com." || len(got.RData) != 1 || got.RData[0] != "192.0.2.1" {
		t.Errorf("unexpected tuple: %+v", got)
	}
}
