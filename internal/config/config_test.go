package config

import (
	"testing"

	"dnsdbq/internal/backend"
)

func TestParseTriples(t *testing.T) {
	data := []byte(`
# comment
DNSDB2_APIKEY="abc123"
CIRCL_USER="alice"
CIRCL_PASSWORD="hunter2"
`)
	triples, err := ParseTriples(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(triples) != 3 {
		t.Fatalf("got %d triples, want 3", len(triples))
	}
	if triples[0] != (Triple{System: "dnsdb2", Key: "apikey", Value: "abc123"}) {
		t.Errorf("triple[0] = %+v", triples[0])
	}
}

func TestParseTriples_Malformed(t *testing.T) {
	if _, err := ParseTriples([]byte("NOEQUALSIGN")); err == nil {
		t.Error("expected error for line without '='")
	}
	if _, err := ParseTriples([]byte("NOUNDERSCORE=x")); err == nil {
		t.Error("expected error for key without system/key separator")
	}
}

func TestApplyTriples(t *testing.T) {
	b := backend.NewDNSDBv2("https://api.example.com")
	backends := map[string]backend.Backend{"dnsdb2": b}
	triples := []Triple{{System: "dnsdb2", Key: "apikey", Value: "secret"}}
	if err := ApplyTriples(triples, backends); err != nil {
		t.Fatal(err)
	}
	if err := b.Ready(); err != nil {
		t.Errorf("expected backend to be ready after triple applied: %v", err)
	}
}

func TestApplyTriples_UnknownSystemIgnored(t *testing.T) {
	triples := []Triple{{System: "nope", Key: "x", Value: "y"}}
	if err := ApplyTriples(triples, map[string]backend.Backend{}); err != nil {
		t.Errorf("unknown system should be ignored, got %v", err)
	}
}

func TestTransforms_Has(t *testing.T) {
	t0 := DATEFIX | CHOMP
	if !t0.Has(DATEFIX) {
		t.Error("expected DATEFIX set")
	}
	if t0.Has(REVERSE) {
		t.Error("did not expect REVERSE set")
	}
	if !t0.Has(DATEFIX | CHOMP) {
		t.Error("expected both bits set")
	}
}

func TestResolveEnv_FlagWins(t *testing.T) {
	t.Setenv("DNSDBQ_SYSTEM", "circl")
	c := &Config{System: "dnsdb2"}
	c.ResolveEnv(func(name string) bool { return name == "system" })
	if c.System != "dnsdb2" {
		t.Errorf("flag should win over env, got %q", c.System)
	}
}

func TestResolveEnv_EnvFallback(t *testing.T) {
	t.Setenv("DNSDBQ_SYSTEM", "circl")
	c := &Config{}
	c.ResolveEnv(func(name string) bool { return false })
	if c.System != "circl" {
		t.Errorf("expected env fallback, got %q", c.System)
	}
}

func TestParsePositiveInt(t *testing.T) {
	n, err := ParsePositiveInt("")
	if err != nil || n != 0 {
		t.Errorf("empty string should mean unlimited, got %d, %v", n, err)
	}
	n, err = ParsePositiveInt("42")
	if err != nil || n != 42 {
		t.Errorf("got %d, %v", n, err)
	}
	if _, err := ParsePositiveInt("nope"); err == nil {
		t.Error("expected error for non-integer")
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Error("nil error should exit 0")
	}
	if ExitCode(errTest{}) != 1 {
		t.Error("any error should exit 1")
	}
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
