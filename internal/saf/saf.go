// Package saf implements the Streaming Autonomy Format framing state
// machine: a JSON-lines envelope of {cond, msg, obj} interpreted as a
// well-defined state machine over one Fetch (§4.4, C4).
package saf

import (
	"encoding/json"
	"fmt"
)

// State is one state of the per-fetch SAF state machine.
type State int

const (
	Init State = iota
	Begin
	Ongoing
	Succeeded
	Limited
	Failed
	Missing
	WeLimited // locally-originated terminal state; not server-signaled
)

// IsTerminal reports whether state ends the transfer (§4.4: stopped=true).
func (s State) IsTerminal() bool {
	switch s {
	case Succeeded, Limited, Failed, Missing, WeLimited:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Begin:
		return "begin"
	case Ongoing:
		return "ongoing"
	case Succeeded:
		return "succeeded"
	case Limited:
		return "limited"
	case Failed:
		return "failed"
	case Missing:
		return "missing"
	case WeLimited:
		return "we_limited"
	default:
		return "unknown"
	}
}

// envelope is the wire shape of one SAF JSON-lines record.
type envelope struct {
	Cond *string         `json:"cond"`
	Msg  *string         `json:"msg"`
	Obj  json.RawMessage `json:"obj"`
}

// Framer drives the per-fetch SAF state machine. Not safe for concurrent
// use; one Framer belongs to exactly one Fetch.
type Framer struct {
	state State
	msg   string
}

// NewFramer returns a Framer in its initial state.
func NewFramer() *Framer { return &Framer{state: Init} }

// State returns the framer's current state.
func (f *Framer) State() State { return f.state }

// Message returns the last recorded msg field (terminal status message, or
// the synthesized "missing" diagnostic).
func (f *Framer) Message() string { return f.msg }

// Feed processes one deblocked line. obj, when non-nil, is the record
// payload the caller should route to the tuple parser (for "ongoing" and
// cond-absent-with-obj envelopes); it is nil for keepalives and terminal
// lines with no payload.
func (f *Framer) Feed(line []byte) (obj json.RawMessage, err error) {
	if len(line) == 0 {
		// empty record: a keepalive in any state, init included
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("saf: malformed envelope: %w", err)
	}

	if env.Cond == nil {
		if env.Obj != nil {
			if err := f.transition(Ongoing, ""); err != nil {
				return nil, err
			}
			return env.Obj, nil
		}
		// no cond, no obj: keepalive
		return nil, nil
	}

	switch *env.Cond {
	case "begin":
		if err := f.transition(Begin, ""); err != nil {
			return nil, err
		}
		return nil, nil
	case "ongoing":
		if err := f.transition(Ongoing, ""); err != nil {
			return nil, err
		}
		return env.Obj, nil
	case "succeeded":
		msg := stringOrEmpty(env.Msg)
		f.finish(Succeeded, msg)
		return nil, nil
	case "limited":
		msg := stringOrEmpty(env.Msg)
		f.finish(Limited, msg)
		return nil, nil
	case "failed":
		msg := stringOrEmpty(env.Msg)
		f.finish(Failed, msg)
		return nil, nil
	default:
		f.finish(Missing, fmt.Sprintf("unknown SAF cond %q", *env.Cond))
		return nil, nil
	}
}

// Stop forces a locally-originated we_limited terminal state, used by the
// output-limit guard (§4.4).
func (f *Framer) Stop() {
	f.finish(WeLimited, "")
}

// EOF must be called when the transport reaches end of stream. If the
// framer is still in init/begin/ongoing, it synthesizes the "missing" terminal
// state per §4.4.
func (f *Framer) EOF() {
	if f.state == Begin || f.state == Ongoing || f.state == Init {
		f.finish(Missing, "Data transfer failed -- No SAF terminator at end of stream")
	}
}

func (f *Framer) transition(to State, msg string) error {
	if f.state.IsTerminal() {
		return fmt.Errorf("saf: envelope received after terminal state %s", f.state)
	}
	if to == Begin && f.state != Init {
		return fmt.Errorf("saf: cond=begin seen after stream start (state=%s)", f.state)
	}
	f.state = to
	if msg != "" {
		f.msg = msg
	}
	return nil
}

func (f *Framer) finish(to State, msg string) {
	f.state = to
	f.msg = msg
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
