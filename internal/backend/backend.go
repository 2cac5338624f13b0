// Package backend defines the pDNS backend capability set (§4.1, C1) and the
// concrete system adapters the core treats as interchangeable.
package backend

import (
	"net/http"
	"net/url"
)

// Encapsulation identifies a backend's wire framing.
type Encapsulation int

const (
	// COF: one JSON object per line, the object itself is the payload.
	COF Encapsulation = iota
	// SAF: one JSON object per line, payload wrapped {cond?, msg?, obj?}.
	SAF
)

// Mode identifies the shape of a canonical query path (§4.1).
type Mode int

const (
	ModeRRsetName Mode = iota
	ModeRRsetRaw
	ModeRDataName
	ModeRDataIP
	ModeRDataRaw
)

// Path describes a canonical query path before URL construction:
// rrset/name/NAME[/TYPE[/BAILIWICK]], rdata/name/NAME[/TYPE],
// rdata/ip/ADDR[/PFXLEN], rrset/raw/HEX[/TYPE], rdata/raw/HEX[/TYPE].
type Path struct {
	Mode      Mode
	Thing     string // NAME, ADDR, or HEX depending on Mode
	RRType    string // optional
	Bailiwick string // optional, ModeRRsetName only
	PfxLen    int    // optional, ModeRDataIP only; 0 means unset
}

// Fence is the time-window constraint computed by the query orchestrator
// (§4.7) and passed through to URL construction.
type Fence struct {
	FirstAfter  *int64
	FirstBefore *int64
	LastAfter   *int64
	LastBefore  *int64
}

// Meta carries presentation-affecting query parameters a backend may want to
// embed as URL query parameters (limit/offset and friends).
type Meta struct {
	QueryLimit  int
	OutputLimit int
	Offset      int
	MaxCount    int
}

// Backend is the capability set the core consumes. All methods except
// Name/BaseURL/Encapsulation may be nil/no-ops for a given system.
type Backend interface {
	Name() string
	BaseURL() string
	Encapsulation() Encapsulation

	// URL builds the full request URL for a canonical Path.
	URL(path Path, fence Fence, meta Meta) (*url.URL, error)

	// Auth injects backend-specific authentication into the outgoing
	// request (HTTP Basic for one family, X-Api-Key for another).
	Auth(req *http.Request)

	// Status maps an HTTP response to a short diagnostic code.
	Status(httpCode int, body string) string

	// VerbOK reports whether verb (only "GET" is ever used by the core) is
	// supported; a non-nil reason rejects it.
	VerbOK(verb string) error

	// Setenv lets the config loader feed backend-specific (key, value)
	// pairs (API keys, alternate base URLs) discovered outside the core.
	Setenv(key, value string) error

	// Ready reports whether the backend has enough configuration to run.
	Ready() error
}
