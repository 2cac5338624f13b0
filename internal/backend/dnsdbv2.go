package backend

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DNSDBv2 is the DNSDB version 2 REST API: SAF-framed, api-key header auth.
type DNSDBv2 struct {
	base   string
	apiKey string
}

// NewDNSDBv2 returns a DNSDBv2 backend rooted at base (e.g.
// "https://api.dnsdb.info/dnsdb/v2").
func NewDNSDBv2(base string) *DNSDBv2 {
	return &DNSDBv2{base: base}
}

func (b *DNSDBv2) Name() string                 { return "dnsdb2" }
func (b *DNSDBv2) BaseURL() string              { return b.base }
func (b *DNSDBv2) Encapsulation() Encapsulation { return SAF }

func (b *DNSDBv2) URL(p Path, fence Fence, meta Meta) (*url.URL, error) {
	path, err := CanonicalPath(p)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(b.base + "/lookup/" + path)
	if err != nil {
		return nil, fmt.Errorf("dnsdb2: %w", err)
	}
	q := u.Query()
	applyFence(q, fence)
	applyMeta(q, meta)
	u.RawQuery = q.Encode()
	return u, nil
}

func (b *DNSDBv2) Auth(req *http.Request) {
	if b.apiKey != "" {
		req.Header.Set("X-Api-Key", b.apiKey)
	}
}

func (b *DNSDBv2) Status(httpCode int, body string) string {
	return fmt.Sprintf("HTTP %d: %s", httpCode, firstLine(body))
}

func (b *DNSDBv2) VerbOK(verb string) error {
	if verb != http.MethodGet {
		return fmt.Errorf("dnsdb2: only GET is supported")
	}
	return nil
}

func (b *DNSDBv2) Setenv(key, value string) error {
	switch key {
	case "apikey":
		b.apiKey = value
	case "server":
		b.base = value
	default:
		return fmt.Errorf("dnsdb2: unknown config key %q", key)
	}
	return nil
}

func (b *DNSDBv2) Ready() error {
	if b.apiKey == "" {
		return fmt.Errorf("dnsdb2: apikey not configured")
	}
	return nil
}

func applyFence(q url.Values, f Fence) {
	setInt64(q, "time_first_after", f.FirstAfter)
	setInt64(q, "time_first_before", f.FirstBefore)
	setInt64(q, "time_last_after", f.LastAfter)
	setInt64(q, "time_last_before", f.LastBefore)
}

func setInt64(q url.Values, key string, v *int64) {
	if v != nil {
		q.Set(key, strconv.FormatInt(*v, 10))
	}
}

func applyMeta(q url.Values, m Meta) {
	if m.QueryLimit > 0 {
		q.Set("limit", strconv.Itoa(m.QueryLimit))
	}
	if m.Offset > 0 {
		q.Set("offset", strconv.Itoa(m.Offset))
	}
	if m.MaxCount > 0 {
		q.Set("max_count", strconv.Itoa(m.MaxCount))
	}
}

func firstLine(body string) string {
	for i := 0; i < len(body); i++ {
		if body[i] == '\n' {
			return body[:i]
		}
	}
	return body
}
