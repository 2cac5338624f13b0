package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"dnsdbq/internal/tuple"
)

// Text renders one tuple dig-like (§4.9): a semicolon-prefixed header with
// record/zone times and count/bailiwick, then one "rrname rrtype rdata"
// line per rdata value, each optionally trailed by an AS-info comment.
func Text(w io.Writer, t *tuple.Tuple, opts Options, anno map[string]Anno) error {
	if err := writeTextHeader(w, t); err != nil {
		return err
	}
	for _, rdata := range t.RData {
		line := fmt.Sprintf("%s %s %s", t.RRName, t.RRType, rdata)
		if a, ok := annoFor(anno, rdata, opts.AsInfo); ok {
			line += " ; " + formatAsinfoComment(a)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeTextHeader(w io.Writer, t *tuple.Tuple) error {
	if t.TimeFirst != nil && t.TimeLast != nil {
		dur := formatDuration(*t.TimeFirst, *t.TimeLast)
		if _, err := fmt.Fprintf(w, ";;  record times: %s .. %s  (~%s)\n",
			isoTime(*t.TimeFirst), isoTime(*t.TimeLast), dur); err != nil {
			return err
		}
	}
	if t.ZoneTimeFirst != nil && t.ZoneTimeLast != nil {
		if _, err := fmt.Fprintf(w, ";;  zone times: %s .. %s\n",
			isoTime(*t.ZoneTimeFirst), isoTime(*t.ZoneTimeLast)); err != nil {
			return err
		}
	}
	var fields []string
	if t.Count != nil {
		fields = append(fields, "count: "+strconv.FormatUint(*t.Count, 10))
	}
	if t.Bailiwick != "" {
		fields = append(fields, "bailiwick: "+t.Bailiwick)
	}
	if len(fields) > 0 {
		if _, err := fmt.Fprintf(w, ";;  %s\n", strings.Join(fields, "; ")); err != nil {
			return err
		}
	}
	return nil
}

// formatDuration renders last-first as a compact "1d2h3m4s"-style string,
// dropping leading zero units; callers add any "~" prefix.
func formatDuration(first, last uint64) string {
	if last < first {
		return "0s"
	}
	secs := last - first
	days := secs / 86400
	secs %= 86400
	hours := secs / 3600
	secs %= 3600
	mins := secs / 60
	secs %= 60

	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%dd", days)
	}
	if hours > 0 || b.Len() > 0 {
		fmt.Fprintf(&b, "%dh", hours)
	}
	if mins > 0 || b.Len() > 0 {
		fmt.Fprintf(&b, "%dm", mins)
	}
	fmt.Fprintf(&b, "%ds", secs)
	return b.String()
}

// formatAsinfoComment renders an Anno as the dig-like comment described in
// §4.9: "AS12345 1.2.3.0/24" for a single origin AS, or a multi-word form
// ("AS1 AS2 1.2.3.0/24") when the origin zone reported an AS path or set as
// a space-separated token list.
func formatAsinfoComment(a Anno) string {
	if a.Err != "" {
		return a.Err
	}
	tokens := strings.Fields(a.ASN)
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = "AS" + tok
	}
	parts = append(parts, a.CIDR)
	return strings.Join(parts, " ")
}

// SummaryText renders an aggregate Summary in place of per-record output
// (§4.9's summarize variant of text mode).
func SummaryText(w io.Writer, s Summary) error {
	var fields []string
	fields = append(fields, "count: "+strconv.FormatUint(s.Count, 10))
	if s.NumResults != nil {
		fields = append(fields, "num_results: "+strconv.FormatUint(*s.NumResults, 10))
	}
	if s.First != nil && s.Last != nil {
		fields = append(fields, fmt.Sprintf("times: %s .. %s", isoTime(*s.First), isoTime(*s.Last)))
	}
	_, err := fmt.Fprintf(w, ";;  %s\n", strings.Join(fields, "; "))
	return err
}
