package backend

import (
	"fmt"
	"strconv"
)

// CanonicalPath renders p as the backend-agnostic path shape described in
// §4.1, e.g. "rrset/name/NAME/TYPE/BAILIWICK". Concrete backends rewrite
// this into their own URL scheme in URL().
func CanonicalPath(p Path) (string, error) {
	switch p.Mode {
	case ModeRRsetName:
		s := "rrset/name/" + p.Thing
		if p.RRType != "" {
			s += "/" + p.RRType
			if p.Bailiwick != "" {
				s += "/" + p.Bailiwick
			}
		} else if p.Bailiwick != "" {
			return "", fmt.Errorf("backend: bailiwick requires an rrtype")
		}
		return s, nil
	case ModeRRsetRaw:
		s := "rrset/raw/" + p.Thing
		if p.RRType != "" {
			s += "/" + p.RRType
		}
		return s, nil
	case ModeRDataName:
		s := "rdata/name/" + p.Thing
		if p.RRType != "" {
			s += "/" + p.RRType
		}
		return s, nil
	case ModeRDataIP:
		s := "rdata/ip/" + p.Thing
		if p.PfxLen > 0 {
			s += "/" + strconv.Itoa(p.PfxLen)
		}
		return s, nil
	case ModeRDataRaw:
		s := "rdata/raw/" + p.Thing
		if p.RRType != "" {
			s += "/" + p.RRType
		}
		return s, nil
	default:
		return "", fmt.Errorf("backend: unknown path mode %d", p.Mode)
	}
}
