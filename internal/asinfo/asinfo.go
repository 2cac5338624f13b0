//go:build withAsInfo

// Package asinfo implements the AS-info annotator (§4.6, C6): a pure
// function from (rrtype, rdata) to a best-matching autonomous-system number
// and covering prefix, resolved via a DNS TXT lookup against a configured
// zone. The whole package compiles out under the negated build tag, per the
// spec's "must compile with a build flag that omits AS-info entirely".
package asinfo

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// sentinelASN is the "unknown AS" marker some origin zones return instead of
// omitting the record.
const sentinelASN = "4294967295"

// Info is a resolved AS-info annotation.
type Info struct {
	ASN  string
	CIDR string
}

// Resolver is the subset of *net.Resolver the annotator needs. Tests supply
// a fake; production code passes a *net.Resolver.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Lookup resolves AS-info for rdata of the given rrtype against zone. Only
// A records are fully supported; AAAA is a placeholder path per §4.6 and is
// exercised only when ipv6 is true.
func Lookup(ctx context.Context, r Resolver, zone, rrtype, rdata string, ipv6 bool) (*Info, error) {
	name, err := queryName(rrtype, rdata, zone, ipv6)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	txts, err := r.LookupTXT(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("asinfo: TXT lookup of %s: %w", name, err)
	}

	var best *Info
	var bestBits int
	for _, txt := range txts {
		info, bits, ok := parseTXT(txt)
		if !ok {
			continue
		}
		if best == nil || bits > bestBits {
			best, bestBits = info, bits
		}
	}
	if best == nil {
		return nil, fmt.Errorf("asinfo: no TXT record at %s matched a known schema", name)
	}
	return best, nil
}

// queryName builds the reversed-octet query name for an A or AAAA rdata. It
// returns ("", nil) for any other rrtype, meaning "not applicable".
func queryName(rrtype, rdata, zone string, ipv6 bool) (string, error) {
	switch rrtype {
	case "A":
		ip := net.ParseIP(rdata).To4()
		if ip == nil {
			return "", fmt.Errorf("asinfo: %q is not a valid IPv4 address", rdata)
		}
		return fmt.Sprintf("%d.%d.%d.%d.%s", ip[3], ip[2], ip[1], ip[0], zone), nil
	case "AAAA":
		if !ipv6 {
			return "", nil
		}
		ip := net.ParseIP(rdata).To16()
		if ip == nil {
			return "", fmt.Errorf("asinfo: %q is not a valid IPv6 address", rdata)
		}
		var nibbles []byte
		for i := len(ip) - 1; i >= 0; i-- {
			nibbles = append(nibbles, hexDigit(ip[i]&0xf), hexDigit(ip[i]>>4))
		}
		return string(nibbles) + "." + zone, nil
	default:
		return "", nil
	}
}

func hexDigit(n byte) byte {
	const digits = "0123456789abcdef"
	return digits[n]
}

// parseTXT recognizes the two known origin-zone TXT schemas:
//   - single-segment: ASN | CIDR [ | ... ignored ]
//   - three-segment:  ASN | mantissa | length   (no '/' in the second field)
//
// The schemas share a " | " field separator and differ only in whether the
// second field already contains a slash; that is the discriminator used
// here since no explicit tag distinguishes them on the wire.
func parseTXT(txt string) (*Info, int, bool) {
	fields := strings.Split(txt, " | ")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 2 {
		return nil, 0, false
	}
	asn := firstToken(fields[0])
	if asn == sentinelASN {
		return nil, 0, false
	}

	var cidr string
	if strings.Contains(fields[1], "/") {
		cidr = fields[1]
	} else if len(fields) >= 3 {
		cidr = fields[1] + "/" + fields[2]
	} else {
		return nil, 0, false
	}

	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, 0, false
	}
	bits, _ := ipnet.Mask.Size()
	return &Info{ASN: asn, CIDR: ipnet.String()}, bits, true
}

func firstToken(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
