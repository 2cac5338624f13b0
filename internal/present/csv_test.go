package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestCSVWriter_HeaderOnce(t *testing.T) {
	tup := mustParse(t, `{"rrname":"a.example.com.","rrtype":"A","rdata":"1.2.3.4"}`)
	var buf bytes.Buffer
	cw := NewCSVWriter(&buf, Options{})
	if err := cw.Write(tup, nil); err != nil {
		t.Fatal(err)
	}
	if err := cw.Write(tup, nil); err != nil {
		t.Fatal(err)
	}
	if err := cw.Flush(); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 1 header + 2 rows, got %d lines: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "time_first,") {
		t.Errorf("expected header row first, got %q", lines[0])
	}
}

func TestCSVWriter_AsinfoColumns(t *testing.T) {
	tup := mustParse(t, `{"rrname":"a.example.com.","rrtype":"A","rdata":"1.2.3.4"}`)
	anno := map[string]Anno{"1.2.3.4": {ASN: "15169", CIDR: "1.2.3.0/24"}}
	var buf bytes.Buffer
	cw := NewCSVWriter(&buf, Options{AsInfo: true})
	if err := cw.Write(tup, anno); err != nil {
		t.Fatal(err)
	}
	_ = cw.Flush()
	if !strings.Contains(buf.String(), "15169,1.2.3.0/24") {
		t.Errorf("expected asn/cidr columns, got %q", buf.String())
	}
}

func TestCSVWriter_MultipleRdataRows(t *testing.T) {
	tup := mustParse(t, `{"rrname":"a.example.com.","rrtype":"A","rdata":["1.2.3.4","5.6.7.8"]}`)
	var buf bytes.Buffer
	cw := NewCSVWriter(&buf, Options{})
	if err := cw.Write(tup, nil); err != nil {
		t.Fatal(err)
	}
	_ = cw.Flush()
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rdata rows, got %d: %q", len(lines), buf.String())
	}
}

func TestSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := SummaryCSV(&buf, Summary{Count: 7}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "7") {
		t.Errorf("got %q", buf.String())
	}
}
