package qerr

import (
	"errors"
	"testing"
)

func TestTransportError_ExitAffecting(t *testing.T) {
	cases := []struct {
		kind TransportKind
		want bool
	}{
		{TransportDNS, true},
		{TransportConnect, true},
		{TransportTLS, true},
		{TransportStopped, false},
		{TransportOther, false},
	}
	for _, tc := range cases {
		e := &TransportError{Kind: tc.kind, Err: errors.New("boom")}
		if got := e.ExitAffecting(); got != tc.want {
			t.Errorf("kind %v: ExitAffecting() = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	e := &TransportError{Kind: TransportConnect, Err: inner}
	if !errors.Is(e, inner) {
		t.Error("expected errors.Is to see through Unwrap")
	}
}

func TestSAFTerminalError_Silent(t *testing.T) {
	weLimited := &SAFTerminalError{Status: "we_limited"}
	if !weLimited.Silent() {
		t.Error("we_limited should always be silent")
	}
	failed := &SAFTerminalError{Status: "failed"}
	if failed.Silent() {
		t.Error("failed should never be silenced")
	}
}

func TestFatal(t *testing.T) {
	if !Fatal(&ConfigError{Reason: "x"}) {
		t.Error("config errors must be fatal")
	}
	if !Fatal(&ResourceError{Reason: "x"}) {
		t.Error("resource errors must be fatal")
	}
	if Fatal(&ParseError{Reason: "x"}) {
		t.Error("parse errors must not be fatal")
	}
	if Fatal(&HTTPStatusError{Code: 500}) {
		t.Error("http status errors are not the config/resource fatal class")
	}
}

func TestCategoryString(t *testing.T) {
	if CategoryTransport.String() != "transport" {
		t.Error("unexpected String() for CategoryTransport")
	}
}
