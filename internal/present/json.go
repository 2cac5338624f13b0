package output

import (
	"encoding/json"
	"fmt"
	"io"

	"dnsdbq/internal/tuple"
)

// JSON renders one tuple as a single annotated JSON object (§4.9): it
// deep-copies the raw record, rewrites rrname to the already-transformed
// value, swaps epoch timestamps for ISO-8601 strings under DateFix, attaches
// the `_dnsdbq` query-detail object under QDetail, and attaches a per-rdata
// AS-info annotation when enabled and available.
func JSON(w io.Writer, t *tuple.Tuple, opts Options, qd QDetail, anno map[string]Anno) error {
	obj, err := buildJSONObject(t, opts, qd, anno)
	if err != nil {
		return err
	}
	enc, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("present: json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(enc))
	return err
}

func buildJSONObject(t *tuple.Tuple, opts Options, qd QDetail, anno map[string]Anno) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(t.Raw, &obj); err != nil {
		return nil, fmt.Errorf("present: json: re-decoding raw record: %w", err)
	}

	obj["rrname"] = t.RRName

	if opts.DateFix {
		if t.ZoneTimeFirst != nil {
			obj["zone_time_first"] = isoTime(*t.ZoneTimeFirst)
		}
		if t.ZoneTimeLast != nil {
			obj["zone_time_last"] = isoTime(*t.ZoneTimeLast)
		}
		if t.TimeFirst != nil {
			obj["time_first"] = isoTime(*t.TimeFirst)
		}
		if t.TimeLast != nil {
			obj["time_last"] = isoTime(*t.TimeLast)
		}
	}

	if opts.QDetail {
		obj["_dnsdbq"] = qdetailObject(qd)
	}

	if opts.AsInfo {
		if annos := rdataAnnotations(t, anno); annos != nil {
			m, _ := obj["anno"].(map[string]any)
			if m == nil {
				m = map[string]any{}
			}
			m["asinfo"] = annos
			obj["anno"] = m
		}
	}

	return obj, nil
}

func qdetailObject(qd QDetail) map[string]any {
	m := map[string]any{
		"descr":    qd.Descr,
		"limit":    qd.Limit,
		"offset":   qd.Offset,
		"gravel":   qd.Gravel,
		"complete": qd.Complete,
		"follow":   qd.Follow,
	}
	if qd.HasAfter {
		m["after"] = qd.After
	}
	if qd.HasBefore {
		m["before"] = qd.Before
	}
	return m
}

// rdataAnnotations returns one entry per rdata value, index-aligned with
// t.RData, each either an {asn,cidr} object or nil when no annotation
// resolved for that value. Returns nil entirely when nothing resolved.
func rdataAnnotations(t *tuple.Tuple, anno map[string]Anno) []any {
	if anno == nil {
		return nil
	}
	out := make([]any, len(t.RData))
	any_ := false
	for i, rdata := range t.RData {
		a, ok := annoFor(anno, rdata, true)
		if !ok {
			continue
		}
		any_ = true
		if a.Err != "" {
			out[i] = map[string]any{"error": a.Err}
			continue
		}
		out[i] = map[string]any{"asn": a.ASN, "cidr": a.CIDR}
	}
	if !any_ {
		return nil
	}
	return out
}

// SummaryJSON renders an aggregate Summary as a single JSON object (§4.9's
// summarize variant of json mode).
func SummaryJSON(w io.Writer, s Summary) error {
	obj := map[string]any{"count": s.Count}
	if s.NumResults != nil {
		obj["num_results"] = *s.NumResults
	}
	if s.First != nil {
		obj["time_first"] = *s.First
	}
	if s.Last != nil {
		obj["time_last"] = *s.Last
	}
	enc, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("present: summary json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(enc))
	return err
}
