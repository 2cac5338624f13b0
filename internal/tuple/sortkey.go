package tuple

import (
	"encoding/hex"
	"net"
	"strings"
	"unicode"
)

// SortableRRName produces a lossy, lexicographically collatable rendition of
// a DNS name: label-reversed, alphanumerics only, lowercased. It is used
// only as an external-sort key (§4.5); it is never the presented value.
func SortableRRName(name string) string {
	return alnumLower(reverseName(name))
}

// SortableRData produces a lossy sortable rendition of one rdata value,
// dispatched by rrtype per §4.5.
func SortableRData(rrtype, rdata string) string {
	switch strings.ToUpper(rrtype) {
	case "A":
		return hexAddr(rdata, net.IPv4len)
	case "AAAA":
		return hexAddr(rdata, net.IPv6len)
	case "NS", "PTR", "CNAME", "DNAME":
		return SortableRRName(rdata)
	case "MX", "RP":
		return sortableAfterLastSpace(rdata)
	default:
		return hex.EncodeToString([]byte(rdata))
	}
}

// hexAddr renders rdata as a fixed-width hex packed address. A parse
// failure zero-fills the field so the key still sorts, just to the front.
func hexAddr(rdata string, width int) string {
	buf := make([]byte, width)
	ip := net.ParseIP(rdata)
	if ip != nil {
		switch width {
		case net.IPv4len:
			if v4 := ip.To4(); v4 != nil {
				copy(buf, v4)
			}
		case net.IPv6len:
			if v6 := ip.To16(); v6 != nil {
				copy(buf, v6)
			}
		}
	}
	return hex.EncodeToString(buf)
}

// sortableAfterLastSpace keys on the token following the last space (the
// exchange/mbox host of an MX/RP record); with no space, it falls back to
// hex of the whole rdata.
func sortableAfterLastSpace(rdata string) string {
	idx := strings.LastIndexByte(rdata, ' ')
	if idx < 0 {
		return hex.EncodeToString([]byte(rdata))
	}
	return SortableRRName(rdata[idx+1:])
}

func alnumLower(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= unicode.MaxASCII {
			continue
		}
		if isAlnum(byte(r)) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
