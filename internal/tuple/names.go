package tuple

import "strings"

// NameStats is the result of one pass over a DNS presentation-form name,
// honoring "\." as a literal dot rather than a label separator (§4.5).
type NameStats struct {
	Labels    int
	Chars     int
	Alnum     int
	LabelLens []int
}

// countoff scans name once, tallying labels, characters, alphanumerics, and
// per-label lengths. reverseName, chompName and SortableRRName do not call
// it; they work from splitLabels and alnumLower.
func countoff(name string) NameStats {
	var st NameStats
	var curLen int
	esc := false
	flush := func() {
		st.LabelLens = append(st.LabelLens, curLen)
		st.Labels++
		curLen = 0
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case esc:
			esc = false
			st.Chars++
			curLen++
			if isAlnum(c) {
				st.Alnum++
			}
		case c == '\\':
			esc = true
		case c == '.':
			flush()
		default:
			st.Chars++
			curLen++
			if isAlnum(c) {
				st.Alnum++
			}
		}
	}
	flush()
	return st
}

func isAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// splitLabels splits a presentation-form name on unescaped dots, honoring
// "\." as a literal dot within a label. A trailing unescaped dot produces a
// trailing empty label, mirroring how countoff treats it.
func splitLabels(name string) []string {
	var labels []string
	var cur []byte
	esc := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case esc:
			cur = append(cur, c)
			esc = false
		case c == '\\':
			cur = append(cur, c)
			esc = true
		case c == '.':
			labels = append(labels, string(cur))
			cur = cur[:0]
		default:
			cur = append(cur, c)
		}
	}
	labels = append(labels, string(cur))
	return labels
}

// reverseName reorders labels TLD-first, re-delimited by dots, with a
// leading dot marking the (stripped) former trailing-dot artifact. The
// leading dot is added unconditionally, matching chomp's reverse-mode
// behavior of removing exactly one leading dot (§4.5, §9).
func reverseName(name string) string {
	labels := splitLabels(name)
	if len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return "." + strings.Join(labels, ".")
}

// chompName removes a single unescaped trailing dot. In reverse mode it
// instead removes the single leading dot that reverseName inserted. The root
// name "." reversed is just ".", which chomps to the empty string — the
// documented length-zero edge case (§9).
func chompName(name string, reverse bool) string {
	if reverse {
		if strings.HasPrefix(name, ".") {
			return name[1:]
		}
		return name
	}
	if n := len(name); n > 0 && name[n-1] == '.' && !escapedAt(name, n-1) {
		return name[:n-1]
	}
	return name
}

// escapedAt reports whether the byte at index i is preceded by an odd
// number of consecutive backslashes, i.e. is itself escaped.
func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
