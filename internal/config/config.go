// Package config holds the CLI surface (§6) and the (system, key, value)
// triple loader that feeds each backend's Setenv hook: a plain struct of
// flag-backed fields, env-var precedence resolution, and TLS config
// construction from PEM files.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strconv"
	"strings"

	"dnsdbq/internal/backend"
	"dnsdbq/internal/qerr"
)

// Sorting selects the external-sort behavior of C8 (§4.8).
type Sorting int

const (
	NoSort Sorting = iota
	NormalSort
	ReverseSort
)

// Batching selects how multiple queries share output framing (§4.7, §5).
type Batching int

const (
	BatchNone Batching = iota
	BatchTerse
	BatchVerbose
)

// Transforms is the bitset named in §6: DATEFIX, REVERSE, CHOMP, QDETAIL.
type Transforms uint8

const (
	DATEFIX Transforms = 1 << iota
	REVERSE
	CHOMP
	QDETAIL
)

// Has reports whether all of want is set.
func (t Transforms) Has(want Transforms) bool { return t&want == want }

// Config is the resolved CLI surface consumed by the core (§6).
type Config struct {
	System string // selects the default backend; DNSDBQ_SYSTEM env fallback

	DebugLevel    int
	DoNotVerify   bool // donotverify: skip TLS certificate verification
	CurlIPResolve string // "" | "4" | "6": pin the transport to one IP family

	AsinfoLookup bool
	AsinfoDomain string

	Sorting  Sorting
	Batching Batching
	Multiple bool
	Quiet    bool
	Verbose  bool

	Transforms Transforms
	Tracing    uint8

	OutputLimit int // <=0 means unlimited
	QueryLimit  int

	TimeFormat string // DNSDBQ_TIME_FORMAT: "iso8601" | "epoch"

	TLSCACert     string
	TLSClientCert string
	TLSKey        string
}

// ResolveEnv applies environment-variable defaults for fields the CLI flag
// layer did not explicitly set; an explicit flag always wins over env.
func (c *Config) ResolveEnv(changed func(string) bool) {
	if !changed("system") {
		if v := os.Getenv("DNSDBQ_SYSTEM"); v != "" {
			c.System = v
		}
	}
	if !changed("time-format") {
		if v := os.Getenv("DNSDBQ_TIME_FORMAT"); v != "" {
			c.TimeFormat = v
		}
	}
}

// Triple is one (system_name, key, value) configuration entry, as produced
// by a config loader and consumed by a backend's Setenv hook.
type Triple struct {
	System string
	Key    string
	Value  string
}

// ApplyTriples feeds each triple whose System matches a known backend's
// Name() into that backend's Setenv, per §6's "backends may inspect
// additional variables via their setenv hook fed by the config loader".
// A triple naming an unknown system is ignored, not an error: config files
// commonly carry entries for backends the binary isn't built with.
func ApplyTriples(triples []Triple, backends map[string]backend.Backend) error {
	for _, t := range triples {
		b, ok := backends[t.System]
		if !ok {
			continue
		}
		if err := b.Setenv(t.Key, t.Value); err != nil {
			return &qerr.ConfigError{Reason: fmt.Sprintf("%s.%s: %v", t.System, t.Key, err)}
		}
	}
	return nil
}

// ParseTriples reads a dnsdbq-style config file: lines of the form
//
//	SYSTEM_KEY="value"
//
// where SYSTEM is the backend name and KEY the setenv key, joined by an
// underscore, matching the shell-sourceable format the original tool reads
// (e.g. DNSDB_APIKEY="..."). The name is split at its first underscore and
// both halves are lowercased. Blank lines and lines starting with '#' are
// ignored.
func ParseTriples(data []byte) ([]Triple, error) {
	var out []Triple
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, &qerr.ConfigError{Reason: fmt.Sprintf("malformed config line %q", line)}
		}
		name := line[:eq]
		value := strings.Trim(line[eq+1:], `"`)
		under := strings.IndexByte(name, '_')
		if under < 0 {
			return nil, &qerr.ConfigError{Reason: fmt.Sprintf("malformed config key %q", name)}
		}
		out = append(out, Triple{
			System: strings.ToLower(name[:under]),
			Key:    strings.ToLower(name[under+1:]),
			Value:  value,
		})
	}
	return out, nil
}

// BuildTLSConfig returns nil when nothing was configured, otherwise a
// *tls.Config built from the CA/client cert flags and DoNotVerify.
func (c *Config) BuildTLSConfig() (*tls.Config, error) {
	if c.TLSCACert == "" && c.TLSClientCert == "" && c.TLSKey == "" && !c.DoNotVerify {
		return nil, nil
	}
	tlsCfg := &tls.Config{
		InsecureSkipVerify: c.DoNotVerify, //nolint:gosec
	}
	if c.TLSCACert != "" {
		pool, err := loadCACert(c.TLSCACert)
		if err != nil {
			return nil, err
		}
		tlsCfg.RootCAs = pool
	}
	if c.TLSClientCert != "" || c.TLSKey != "" {
		cert, err := loadClientCert(c.TLSClientCert, c.TLSKey)
		if err != nil {
			return nil, err
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

func loadCACert(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &qerr.ConfigError{Reason: fmt.Sprintf("reading CA cert: %v", err)}
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, &qerr.ConfigError{Reason: "parsing CA cert: no valid PEM certificate found"}
	}
	return pool, nil
}

func loadClientCert(certPath, keyPath string) (tls.Certificate, error) {
	if certPath == "" || keyPath == "" {
		return tls.Certificate{}, &qerr.ConfigError{Reason: "--tls-client-cert and --tls-key must be used together"}
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, &qerr.ConfigError{Reason: fmt.Sprintf("loading client certificate: %v", err)}
	}
	return cert, nil
}

// ExitCode maps a terminal error to the process exit code described in §6:
// 0 clean, 1 on any fetch failure or fatal configuration error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// ParsePositiveInt parses a CLI-supplied limit flag, treating "" and "0" as
// unlimited (<=0).
func ParsePositiveInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &qerr.ConfigError{Reason: fmt.Sprintf("%q is not an integer", s)}
	}
	return n, nil
}
