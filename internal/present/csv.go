package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"dnsdbq/internal/tuple"
)

// CSVWriter renders tuples as one quoted-field row per rdata value, printing
// the header exactly once (§4.9, §3's "CSV-header-printed flag" moved here
// since it is the presenter's own state rather than the Writer's).
type CSVWriter struct {
	cw            *csv.Writer
	opts          Options
	headerWritten bool
}

// NewCSVWriter returns a CSVWriter over w.
func NewCSVWriter(w io.Writer, opts Options) *CSVWriter {
	return &CSVWriter{cw: csv.NewWriter(w), opts: opts}
}

func (c *CSVWriter) header() []string {
	h := []string{"time_first", "time_last", "zone_time_first", "zone_time_last",
		"count", "bailiwick", "rrname", "rrtype", "rdata"}
	if c.opts.AsInfo {
		h = append(h, "asn", "cidr")
	}
	return h
}

// Write renders t, printing the header first if this is the first call.
func (c *CSVWriter) Write(t *tuple.Tuple, anno map[string]Anno) error {
	if !c.headerWritten {
		if err := c.cw.Write(c.header()); err != nil {
			return err
		}
		c.headerWritten = true
	}
	for _, rdata := range t.RData {
		row := []string{
			uint64PtrString(t.TimeFirst),
			uint64PtrString(t.TimeLast),
			uint64PtrString(t.ZoneTimeFirst),
			uint64PtrString(t.ZoneTimeLast),
			uint64PtrString(t.Count),
			t.Bailiwick,
			t.RRName,
			t.RRType,
			rdata,
		}
		if c.opts.AsInfo {
			asn, cidr := "", ""
			if a, ok := annoFor(anno, rdata, true); ok {
				asn, cidr = a.ASN, a.CIDR
			}
			row = append(row, asn, cidr)
		}
		if err := c.cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer and returns any write error it
// accumulated.
func (c *CSVWriter) Flush() error {
	c.cw.Flush()
	return c.cw.Error()
}

// SummaryCSV renders an aggregate Summary as a two-row CSV (header + one
// data row), §4.9's summarize variant of csv mode.
func SummaryCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"count", "num_results", "time_first", "time_last"}); err != nil {
		return err
	}
	row := []string{strconv.FormatUint(s.Count, 10), uint64PtrString(s.NumResults),
		uint64PtrString(s.First), uint64PtrString(s.Last)}
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func uint64PtrString(v *uint64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(*v, 10)
}
