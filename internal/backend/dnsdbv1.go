package backend

import (
	"fmt"
	"net/http"
	"net/url"
)

// DNSDBv1 is the original DNSDB REST API: COF-framed, api-key header auth.
type DNSDBv1 struct {
	base   string
	apiKey string
}

// NewDNSDBv1 returns a DNSDBv1 backend rooted at base.
func NewDNSDBv1(base string) *DNSDBv1 {
	return &DNSDBv1{base: base}
}

func (b *DNSDBv1) Name() string                 { return "dnsdb1" }
func (b *DNSDBv1) BaseURL() string              { return b.base }
func (b *DNSDBv1) Encapsulation() Encapsulation { return COF }

func (b *DNSDBv1) URL(p Path, fence Fence, meta Meta) (*url.URL, error) {
	path, err := CanonicalPath(p)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(b.base + "/lookup/" + path)
	if err != nil {
		return nil, fmt.Errorf("dnsdb1: %w", err)
	}
	q := u.Query()
	applyFence(q, fence)
	applyMeta(q, meta)
	u.RawQuery = q.Encode()
	return u, nil
}

func (b *DNSDBv1) Auth(req *http.Request) {
	if b.apiKey != "" {
		req.Header.Set("X-Api-Key", b.apiKey)
	}
}

func (b *DNSDBv1) Status(httpCode int, body string) string {
	return fmt.Sprintf("HTTP %d: %s", httpCode, firstLine(body))
}

func (b *DNSDBv1) VerbOK(verb string) error {
	if verb != http.MethodGet {
		return fmt.Errorf("dnsdb1: only GET is supported")
	}
	return nil
}

func (b *DNSDBv1) Setenv(key, value string) error {
	switch key {
	case "apikey":
		b.apiKey = value
	case "server":
		b.base = value
	default:
		return fmt.Errorf("dnsdb1: unknown config key %q", key)
	}
	return nil
}

func (b *DNSDBv1) Ready() error {
	if b.apiKey == "" {
		return fmt.Errorf("dnsdb1: apikey not configured")
	}
	return nil
}
