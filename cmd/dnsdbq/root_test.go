package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dnsdbq/internal/backend"
	"dnsdbq/internal/qerr"
)

func TestRootDefaults(t *testing.T) {
	t.Parallel()
	cfg := &rootConfig{}
	cmd := buildRootCmd(cfg)

	cases := []struct {
		name string
		want any
	}{
		{"max-in-flight", 8},
		{"config-file", defaultConfigFile},
		{"offset", 0},
	}
	for _, c := range cases {
		f := cmd.Flags().Lookup(c.name)
		if f == nil {
			t.Fatalf("flag %q not registered", c.name)
		}
		if got := f.DefValue; got != fmtDefault(c.want) {
			t.Errorf("%s: default %q, want %q", c.name, got, fmtDefault(c.want))
		}
	}
}

func fmtDefault(v any) string {
	switch x := v.(type) {
	case int:
		return itoa(x)
	case string:
		return x
	default:
		return ""
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestRootShorthands(t *testing.T) {
	t.Parallel()
	cfg := &rootConfig{}
	cmd := buildRootCmd(cfg)
	if err := cmd.ParseFlags([]string{"-r", "example.com", "-t", "A,AAAA", "-l", "10", "-j"}); err != nil {
		t.Fatal(err)
	}
	if cfg.rrsetName != "example.com" {
		t.Errorf("rrsetName: got %q", cfg.rrsetName)
	}
	if len(cfg.rrtypes) != 2 || cfg.rrtypes[0] != "A" || cfg.rrtypes[1] != "AAAA" {
		t.Errorf("rrtypes: got %v", cfg.rrtypes)
	}
	if cfg.queryLimit != 10 {
		t.Errorf("queryLimit: got %d", cfg.queryLimit)
	}
	if !cfg.jsonFlag {
		t.Error("jsonFlag: expected true")
	}
}

func TestAnyQueryShapeSet(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		cfg  *rootConfig
		want bool
	}{
		{"none", &rootConfig{}, false},
		{"rrset-name", &rootConfig{rrsetName: "x"}, true},
		{"rrset-raw", &rootConfig{rrsetRaw: "x"}, true},
		{"rdata-name", &rootConfig{rdataName: "x"}, true},
		{"rdata-ip", &rootConfig{rdataIP: "1.2.3.4"}, true},
		{"rdata-raw", &rootConfig{rdataRaw: "x"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := anyQueryShapeSet(c.cfg); got != c.want {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestExitCodeDelegatesToConfig(t *testing.T) {
	t.Parallel()
	if code := exitCode(nil); code != exitOK {
		t.Errorf("exitCode(nil): got %d, want %d", code, exitOK)
	}
	if code := exitCode(&qerr.ConfigError{Reason: "bad"}); code != exitErr {
		t.Errorf("exitCode(ConfigError): got %d, want %d", code, exitErr)
	}
}

func TestSIGINTExitConstant(t *testing.T) {
	t.Parallel()
	if exitINT != 130 {
		t.Errorf("exitINT: got %d, want 130", exitINT)
	}
}

func TestNewBackendsHasAllThreeSystems(t *testing.T) {
	t.Parallel()
	backends := newBackends()
	for _, name := range []string{"dnsdb2", "dnsdb1", "circl"} {
		b, ok := backends[name]
		if !ok {
			t.Fatalf("missing backend %q", name)
		}
		if b.Name() == "" {
			t.Errorf("backend %q: empty Name()", name)
		}
	}
}

func TestExpandHome(t *testing.T) {
	t.Parallel()
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	cases := []struct {
		in   string
		want string
	}{
		{"/etc/dnsdbq.conf", "/etc/dnsdbq.conf"},
		{"~", home},
		{"~/.dnsdb-query.conf", filepath.Join(home, ".dnsdb-query.conf")},
	}
	for _, c := range cases {
		got, err := expandHome(c.in)
		if err != nil {
			t.Fatalf("expandHome(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("expandHome(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLoadConfigFile_MissingDefaultIsNotError(t *testing.T) {
	t.Parallel()
	backends := map[string]backend.Backend{"dnsdb2": backend.NewDNSDBv2("https://example")}
	if err := loadConfigFile(defaultConfigFile, backends); err != nil {
		t.Errorf("missing default config file should be silently ignored, got %v", err)
	}
}

func TestLoadConfigFile_ExplicitMissingIsError(t *testing.T) {
	t.Parallel()
	backends := map[string]backend.Backend{"dnsdb2": backend.NewDNSDBv2("https://example")}
	err := loadConfigFile("/nonexistent/dnsdbq.conf", backends)
	if err == nil {
		t.Fatal("expected error for explicitly named missing config file")
	}
	var cerr *qerr.ConfigError
	if !errors.As(err, &cerr) {
		t.Errorf("expected *qerr.ConfigError, got %T", err)
	}
}

func TestLoadConfigFile_AppliesTriples(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "dnsdbq.conf")
	if err := os.WriteFile(path, []byte(`DNSDB2_APIKEY="abc123"`+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	b := backend.NewDNSDBv2("https://example")
	backends := map[string]backend.Backend{"dnsdb2": b}
	if err := loadConfigFile(path, backends); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}
	if err := b.Ready(); err != nil {
		t.Errorf("backend should be ready after config applies its API key, got %v", err)
	}
}

func TestHasHomePrefix(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want bool
	}{
		{"~/foo", true},
		{"~", false},
		{"/foo", false},
		{"", false},
	}
	for _, c := range cases {
		if got := hasHomePrefix(c.in); got != c.want {
			t.Errorf("hasHomePrefix(%q): got %v, want %v", c.in, got, c.want)
		}
	}
}
