package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSON_DateFixRewritesTimestamps(t *testing.T) {
	tup := mustParse(t, `{"rrname":"a.example.com.","rrtype":"A","rdata":"1.2.3.4","time_first":0,"time_last":0}`)
	var buf bytes.Buffer
	if err := JSON(&buf, tup, Options{DateFix: true}, QDetail{}, nil); err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if _, ok := out["time_first"].(string); !ok {
		t.Errorf("expected time_first to be rewritten as a string, got %#v", out["time_first"])
	}
}

func TestJSON_NoDateFixPassesThroughEpoch(t *testing.T) {
	tup := mustParse(t, `{"rrname":"a.example.com.","rrtype":"A","rdata":"1.2.3.4","time_first":1000}`)
	var buf bytes.Buffer
	if err := JSON(&buf, tup, Options{}, QDetail{}, nil); err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if v, ok := out["time_first"].(float64); !ok || v != 1000 {
		t.Errorf("expected time_first epoch passthrough, got %#v", out["time_first"])
	}
}

func TestJSON_QDetailAnnotation(t *testing.T) {
	tup := mustParse(t, `{"rrname":"a.example.com.","rrtype":"A","rdata":"1.2.3.4"}`)
	qd := QDetail{Descr: "rrset a.example.com", Limit: 10, HasAfter: true, After: 100}
	var buf bytes.Buffer
	if err := JSON(&buf, tup, Options{QDetail: true}, qd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"_dnsdbq"`) {
		t.Fatalf("expected _dnsdbq annotation, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"descr":"rrset a.example.com"`) {
		t.Errorf("missing descr in _dnsdbq, got %q", buf.String())
	}
}

func TestJSON_AsinfoAnnotation(t *testing.T) {
	tup := mustParse(t, `{"rrname":"a.example.com.","rrtype":"A","rdata":"1.2.3.4"}`)
	anno := map[string]Anno{"1.2.3.4": {ASN: "15169", CIDR: "1.2.3.0/24"}}
	var buf bytes.Buffer
	if err := JSON(&buf, tup, Options{AsInfo: true}, QDetail{}, anno); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"asn":"15169"`) {
		t.Errorf("expected asn in anno.asinfo, got %q", buf.String())
	}
}

func TestJSON_RRNameReflectsTransform(t *testing.T) {
	tup := mustParse(t, `{"rrname":"a.example.com.","rrtype":"A","rdata":"1.2.3.4"}`)
	tup.RRName = "rewritten."
	var buf bytes.Buffer
	if err := JSON(&buf, tup, Options{}, QDetail{}, nil); err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	_ = json.Unmarshal(buf.Bytes(), &out)
	if out["rrname"] != "rewritten." {
		t.Errorf("expected rrname override, got %#v", out["rrname"])
	}
}

func TestJSONL_PassesThroughRawLine(t *testing.T) {
	raw := `{"rrname":"a.example.com.","rrtype":"A","rdata":"1.2.3.4"}`
	tup := mustParse(t, raw)
	var buf bytes.Buffer
	if err := JSONL(&buf, tup); err != nil {
		t.Fatal(err)
	}
	if strings.TrimRight(buf.String(), "\n") != raw {
		t.Errorf("got %q, want %q", buf.String(), raw)
	}
}
