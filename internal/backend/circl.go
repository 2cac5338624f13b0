package backend

import (
	"fmt"
	"net/http"
	"net/url"
)

// CIRCL is the CIRCL Passive DNS REST API: COF-framed, HTTP Basic auth.
type CIRCL struct {
	base     string
	user     string
	password string
}

// NewCIRCL returns a CIRCL backend rooted at base.
func NewCIRCL(base string) *CIRCL {
	return &CIRCL{base: base}
}

func (b *CIRCL) Name() string                 { return "circl" }
func (b *CIRCL) BaseURL() string              { return b.base }
func (b *CIRCL) Encapsulation() Encapsulation { return COF }

// URL builds a CIRCL-shaped path. CIRCL supports name-based rrset and rdata
// lookups and rdata IP lookups; other modes are rejected, per §4.1's
// "backends may reject unsupported shapes".
func (b *CIRCL) URL(p Path, _ Fence, _ Meta) (*url.URL, error) {
	var path string
	switch p.Mode {
	case ModeRRsetName:
		path = "pdns/query/" + p.Thing
	case ModeRDataName:
		path = "pdns/query/" + p.Thing
	case ModeRDataIP:
		path = "pdns/query/" + p.Thing
	default:
		return nil, fmt.Errorf("circl: unsupported query shape for mode %d", p.Mode)
	}
	u, err := url.Parse(b.base + "/" + path)
	if err != nil {
		return nil, fmt.Errorf("circl: %w", err)
	}
	return u, nil
}

func (b *CIRCL) Auth(req *http.Request) {
	if b.user != "" {
		req.SetBasicAuth(b.user, b.password)
	}
}

func (b *CIRCL) Status(httpCode int, body string) string {
	return fmt.Sprintf("HTTP %d: %s", httpCode, firstLine(body))
}

func (b *CIRCL) VerbOK(verb string) error {
	if verb != http.MethodGet {
		return fmt.Errorf("circl: only GET is supported")
	}
	return nil
}

func (b *CIRCL) Setenv(key, value string) error {
	switch key {
	case "user":
		b.user = value
	case "password":
		b.password = value
	case "server":
		b.base = value
	default:
		return fmt.Errorf("circl: unknown config key %q", key)
	}
	return nil
}

func (b *CIRCL) Ready() error {
	if b.user == "" || b.password == "" {
		return fmt.Errorf("circl: user/password not configured")
	}
	return nil
}
