package orchestrator

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"dnsdbq/internal/backend"
	"dnsdbq/internal/diag"
	"dnsdbq/internal/qerr"
	"dnsdbq/internal/transfer"
)

func TestFetch_COF_ParsesTuples(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rrname":"www.example.com.","rrtype":"A","rdata":"1.2.3.4"}`+"\n")
		fmt.Fprint(w, `{"rrname":"www.example.com.","rrtype":"A","rdata":"5.6.7.8"}`+"\n")
	}))
	defer srv.Close()

	b := backend.NewCIRCL(srv.URL)
	_ = b.Setenv("user", "u")
	_ = b.Setenv("password", "p")
	eng := transfer.NewEngine(srv.Client(), 4)
	sink := &countingSink{}
	q := NewQuery("x", QDesc{Mode: backend.ModeRRsetName, Thing: "www.example.com"}, QParam{})

	if err := q.Launch(eng, b, 0, nil, diag.New(), sink); err != nil {
		t.Fatal(err)
	}
	eng.Drain()
	eng.Wait()

	if len(sink.tuples) != 2 {
		t.Fatalf("expected 2 tuples, got %d", len(sink.tuples))
	}
	if sink.tuples[0].RData[0] != "1.2.3.4" {
		t.Errorf("got %+v", sink.tuples[0])
	}
	if sink.done != 1 {
		t.Errorf("expected QueryDone once, got %d", sink.done)
	}
}

func TestFetch_NonOKStatus_SetsQueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "quota exceeded\nmore detail that should be ignored\n")
	}))
	defer srv.Close()

	b := backend.NewDNSDBv2(srv.URL)
	_ = b.Setenv("apikey", "k")
	eng := transfer.NewEngine(srv.Client(), 4)
	sink := &countingSink{}
	q := NewQuery("x", QDesc{Mode: backend.ModeRRsetName, Thing: "example.com"}, QParam{})

	if err := q.Launch(eng, b, 0, nil, diag.New(), sink); err != nil {
		t.Fatal(err)
	}
	eng.Drain()
	eng.Wait()

	err, ok := q.Status()
	httpErr, isHTTP := err.(*qerr.HTTPStatusError)
	if !ok || !isHTTP || httpErr.Message != "quota exceeded" {
		t.Errorf("got err=%#v ok=%v", err, ok)
	}
	if len(sink.tuples) != 0 {
		t.Errorf("expected no tuples from a non-200 response, got %d", len(sink.tuples))
	}
}

func TestFetch_Follow_BuffersAndReplaysCNAME(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"cond":"begin"}`+"\n")
		fmt.Fprint(w, `{"obj":{"rrname":"alias.example.com.","rrtype":"CNAME","rdata":"target.example.com."}}`+"\n")
		fmt.Fprint(w, `{"cond":"succeeded"}`+"\n")
	}))
	defer srv.Close()

	b := backend.NewDNSDBv2(srv.URL)
	_ = b.Setenv("apikey", "k")
	eng := transfer.NewEngine(srv.Client(), 4)
	sink := &countingSink{}
	q := NewQuery("x", QDesc{Mode: backend.ModeRRsetName, Thing: "alias.example.com", RRTypes: []string{"A"}}, QParam{Follow: true})

	if err := q.Launch(eng, b, 0, nil, diag.New(), sink); err != nil {
		t.Fatal(err)
	}
	q.mu.Lock()
	n := len(q.fetches)
	q.mu.Unlock()
	if n != 1 {
		t.Fatalf("follow should collapse to one fetch, got %d", n)
	}

	eng.Drain()
	eng.Wait()

	if len(sink.tuples) != 1 || sink.tuples[0].RRType != "CNAME" {
		t.Errorf("expected the buffered CNAME to be replayed at fetch-done, got %+v", sink.tuples)
	}
}

func TestActiveTracker_ParksNonActiveQuery(t *testing.T) {
	eng := transfer.NewEngine(http.DefaultClient, 4)
	tracker := NewActiveTracker(eng)

	q1 := NewQuery("q1", QDesc{}, QParam{})
	q2 := NewQuery("q2", QDesc{}, QParam{})

	if !tracker.TryEnter(q1) {
		t.Fatal("first query should become active immediately")
	}
	if tracker.TryEnter(q2) {
		t.Fatal("second query should be denied while q1 is active")
	}
	tracker.Release(q1)
	if !tracker.TryEnter(q2) {
		t.Fatal("q2 should be able to enter once q1 releases")
	}
}
