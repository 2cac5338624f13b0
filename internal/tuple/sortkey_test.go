package tuple

import (
	"strings"
	"testing"
)

func TestSortableRRName(t *testing.T) {
	t.Parallel()
	got := SortableRRName("WWW.Example.COM.")
	if strings.ContainsAny(got, ".") {
		t.Errorf("SortableRRName left dots in %q", got)
	}
	if got != strings.ToLower(got) {
		t.Errorf("SortableRRName not lowercased: %q", got)
	}
	// label order is reversed before the dots are dropped: "a.z." keys as
	// "za" and "z.a." as "az", so the former sorts after the latter
	if SortableRRName("a.z.") <= SortableRRName("z.a.") {
		t.Errorf("label order not reversed: %q <= %q", SortableRRName("a.z."), SortableRRName("z.a."))
	}
}

func TestSortableRData(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rrtype, rdata string
	}{
		{"A", "1.2.3.4"},
		{"A", "not-an-ip"},
		{"AAAA", "2001:db8::1"},
		{"NS", "ns1.example.com."},
		{"CNAME", "target.example.com."},
		{"MX", "10 mail.example.com."},
		{"MX", "nospacehere"},
		{"TXT", "arbitrary text"},
	}
	for _, tc := range tests {
		key := SortableRData(tc.rrtype, tc.rdata)
		if key == "" && tc.rdata != "" {
			t.Errorf("SortableRData(%q, %q) = empty", tc.rrtype, tc.rdata)
		}
	}
}

func TestSortableRData_AFixedWidth(t *testing.T) {
	t.Parallel()
	a := SortableRData("A", "1.2.3.4")
	b := SortableRData("A", "255.255.255.255")
	if len(a) != len(b) {
		t.Errorf("A keys not fixed width: %d vs %d", len(a), len(b))
	}
	if len(a) != 8 { // 4 bytes hex-encoded
		t.Errorf("A key length = %d, want 8", len(a))
	}
}

func TestSortableRData_AAAAFixedWidth(t *testing.T) {
	t.Parallel()
	k := SortableRData("AAAA", "::1")
	if len(k) != 32 { // 16 bytes hex-encoded
		t.Errorf("AAAA key length = %d, want 32", len(k))
	}
}

func TestSortableRData_BadAddrZeroFilled(t *testing.T) {
	t.Parallel()
	if got := SortableRData("A", "garbage"); got != "00000000" {
		t.Errorf("bad A rdata key = %q, want zero-filled", got)
	}
}
