// Package tuple parses pDNS COF records and builds the lossy sortable keys
// used by the external-sort pipeline.
package tuple

import (
	"encoding/json"
	"fmt"
)

// Tuple is one parsed pDNS record. It is immutable after Parse.
type Tuple struct {
	ZoneTimeFirst *uint64
	ZoneTimeLast  *uint64
	TimeFirst     *uint64
	TimeLast      *uint64
	Count         *uint64
	Bailiwick     string
	RRName        string
	RRType        string
	RData         []string // always normalized to a slice, even when the wire form was a single string
	NumResults    *uint64

	// Raw is the original source line, retained for reproducible sort-pass output.
	Raw []byte
}

// wireTuple mirrors the JSON shape of one COF record on the wire.
type wireTuple struct {
	ZoneTimeFirst *uint64         `json:"zone_time_first"`
	ZoneTimeLast  *uint64         `json:"zone_time_last"`
	TimeFirst     *uint64         `json:"time_first"`
	TimeLast      *uint64         `json:"time_last"`
	Count         *uint64         `json:"count"`
	Bailiwick     *string         `json:"bailiwick"`
	RRName        *string         `json:"rrname"`
	RRType        *string         `json:"rrtype"`
	RData         json.RawMessage `json:"rdata"`
	NumResults    *uint64         `json:"num_results"`
}

// Flags controls name transforms applied at parse time (§4.5).
type Flags uint8

const (
	Reverse Flags = 1 << iota
	Chomp
)

// Parse decodes one COF JSON record line into a Tuple. Per §4.5, a field that
// fails validation yields an error (the caller skips the record; it is never
// fatal to the stream).
func Parse(line []byte, flags Flags) (*Tuple, error) {
	var w wireTuple
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("tuple: parse: %w", err)
	}
	if w.RRName == nil {
		return nil, fmt.Errorf("tuple: parse: missing rrname")
	}
	if w.RRType == nil {
		return nil, fmt.Errorf("tuple: parse: missing rrtype")
	}
	rdata, err := parseRData(w.RData)
	if err != nil {
		return nil, fmt.Errorf("tuple: parse: rdata: %w", err)
	}

	rrname := *w.RRName
	if flags&Reverse != 0 {
		rrname = reverseName(rrname)
	}
	if flags&Chomp != 0 {
		rrname = chompName(rrname, flags&Reverse != 0)
	}

	t := &Tuple{
		ZoneTimeFirst: w.ZoneTimeFirst,
		ZoneTimeLast:  w.ZoneTimeLast,
		TimeFirst:     w.TimeFirst,
		TimeLast:      w.TimeLast,
		Count:         w.Count,
		RRName:        rrname,
		RRType:        *w.RRType,
		RData:         rdata,
		NumResults:    w.NumResults,
		Raw:           append([]byte(nil), line...),
	}
	if w.Bailiwick != nil {
		t.Bailiwick = *w.Bailiwick
	}
	return t, nil
}

// parseRData accepts either a single JSON string or an ordered array of strings.
func parseRData(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	return nil, fmt.Errorf("rdata must be a string or array of strings")
}
