package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dnsdbq/internal/backend"
	"dnsdbq/internal/config"
	"dnsdbq/internal/qerr"
)

// exit codes, per §6: 0 clean, 1 on any fetch failure or fatal configuration
// error, 130 on SIGINT/SIGTERM.
const (
	exitOK  = 0
	exitErr = 1
	exitINT = 130
)

const defaultConfigFile = "~/.dnsdb-query.conf"

// rootConfig is the CLI surface (§6), flag-backed and resolved against
// environment variables in PersistentPreRunE, mirroring the teacher's
// rootConfig.resolveEnvVars/resolvePassword precedence.
type rootConfig struct {
	core config.Config

	// query shape: exactly one of these five is set per invocation.
	rrsetName string
	rrsetRaw  string
	rdataName string
	rdataIP   string
	rdataRaw  string

	rrtypes   []string
	bailiwick string
	pfxlen    int

	after, before string

	complete bool
	gravel   bool
	follow   bool

	queryLimit  int
	outputLimit int
	offset      int

	format     string
	jsonFlag   bool
	jsonlFlag  bool
	summarize  bool

	sort        bool
	sortReverse bool
	sortKeys    []string

	multiple      bool
	batchVerbose  bool
	batchTerse    bool

	reverseNames bool
	chompNames   bool
	noDateFix    bool
	queryDetail  bool

	maxInFlight int

	configFile string
}

func newRootCmd() *cobra.Command {
	cfg := &rootConfig{}
	return buildRootCmd(cfg)
}

func buildRootCmd(cfg *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dnsdbq",
		Short:         "passive DNS query client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.multiple && !anyQueryShapeSet(cfg) && term.IsTerminal(int(os.Stdin.Fd())) { //nolint:gosec
				return cmd.Help()
			}
			return runQuery(cmd, cfg)
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.core.ResolveEnv(cmd.Flags().Changed)
			return nil
		},
	}
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	f := cmd.Flags()
	f.StringVarP(&cfg.rrsetName, "rrset-name", "r", "", "look up an rrset by owner name")
	f.StringVar(&cfg.rrsetRaw, "rrset-raw", "", "look up an rrset by raw hex-encoded owner name")
	f.StringVarP(&cfg.rdataName, "rdata-name", "n", "", "look up rdata by name")
	f.StringVarP(&cfg.rdataIP, "rdata-ip", "i", "", "look up rdata by IP address or CIDR")
	f.StringVar(&cfg.rdataRaw, "rdata-raw", "", "look up rdata by raw hex-encoded value")
	f.StringSliceVarP(&cfg.rrtypes, "rrtype", "t", nil, "restrict to these RR types (repeatable, comma-separated)")
	f.StringVarP(&cfg.bailiwick, "bailiwick", "b", "", "restrict an rrset-name query to this bailiwick")
	f.IntVar(&cfg.pfxlen, "pfxlen", 0, "restrict an rdata-ip query to this prefix length")

	f.StringVarP(&cfg.after, "after", "A", "", "only records observed on or after this epoch")
	f.StringVarP(&cfg.before, "before", "B", "", "only records observed on or before this epoch")
	f.BoolVarP(&cfg.complete, "complete", "c", false, "require records to lie wholly within the time fence")
	f.BoolVarP(&cfg.gravel, "gravel", "g", false, "include low-count (gravel) results")
	f.BoolVarP(&cfg.follow, "follow", "F", false, "follow CNAME chains")

	f.IntVarP(&cfg.queryLimit, "limit", "l", 0, "maximum records requested from the backend (0: unlimited)")
	f.IntVarP(&cfg.outputLimit, "output-limit", "L", 0, "maximum records presented (0: unlimited)")
	f.IntVarP(&cfg.offset, "offset", "O", 0, "skip this many records before presenting")

	f.StringVarP(&cfg.format, "format", "p", "", "output format: text, json, jsonl, csv, minimal (default: detected from stdout)")
	f.BoolVarP(&cfg.jsonFlag, "json", "j", false, "shorthand for --format=json")
	f.BoolVarP(&cfg.jsonlFlag, "jsonl", "J", false, "shorthand for --format=jsonl")
	f.BoolVar(&cfg.summarize, "summarize", false, "print aggregate counts instead of records")

	f.BoolVarP(&cfg.sort, "sort", "s", false, "pipe output through an external sort, deduplicating")
	f.BoolVarP(&cfg.sortReverse, "sort-reverse", "S", false, "reverse the sort order")
	f.StringSliceVarP(&cfg.sortKeys, "sort-key", "k", nil, "sort key, repeatable: first, last, duration, count, name, type, data")

	f.BoolVarP(&cfg.multiple, "multiple", "M", false, "read one query per line from stdin")
	f.BoolVar(&cfg.batchVerbose, "batch-verbose", false, "print a header/postscript per batch query and serialize their output")
	f.BoolVar(&cfg.batchTerse, "batch-terse", false, "print a header/postscript per batch query")

	f.BoolVar(&cfg.reverseNames, "reverse-names", false, "render owner names TLD-first")
	f.BoolVar(&cfg.chompNames, "chomp-names", false, "strip the trailing dot from owner names")
	f.BoolVar(&cfg.noDateFix, "no-date-fix", false, "leave JSON timestamps as raw epoch seconds")
	f.BoolVar(&cfg.queryDetail, "query-detail", false, "attach a _dnsdbq query-detail object to JSON output")

	f.IntVar(&cfg.maxInFlight, "max-in-flight", 8, "maximum concurrent HTTP transfers")

	f.StringVarP(&cfg.core.System, "system", "d", "", "backend to query: dnsdb2, dnsdb1, circl (or DNSDBQ_SYSTEM)")
	f.StringVarP(&cfg.configFile, "config-file", "u", defaultConfigFile, "path to a dnsdbq-style config file")
	f.IntVar(&cfg.core.DebugLevel, "debug-level", 0, "increase diagnostic verbosity")
	f.BoolVar(&cfg.core.DoNotVerify, "donotverify", false, "skip TLS certificate verification")
	f.StringVar(&cfg.core.CurlIPResolve, "curl-ipresolve", "", "pin the transport to one IP family: 4 or 6")
	f.BoolVar(&cfg.core.AsinfoLookup, "asinfo-lookup", false, "annotate results with AS-info")
	f.StringVar(&cfg.core.AsinfoDomain, "asinfo-domain", "", "origin zone queried for AS-info TXT records")
	f.BoolVarP(&cfg.core.Quiet, "quiet", "q", false, "suppress non-data diagnostics")
	f.BoolVarP(&cfg.core.Verbose, "verbose", "v", false, "show connection and timing diagnostics")
	f.StringVar(&cfg.core.TimeFormat, "time-format", "", "iso8601 or epoch (or DNSDBQ_TIME_FORMAT)")

	f.StringVar(&cfg.core.TLSCACert, "tls-ca-cert", "", "path to CA certificate PEM file")
	f.StringVar(&cfg.core.TLSClientCert, "tls-client-cert", "", "path to client certificate PEM file")
	f.StringVar(&cfg.core.TLSKey, "tls-key", "", "path to client private key PEM file")

	return cmd
}

func anyQueryShapeSet(cfg *rootConfig) bool {
	return cfg.rrsetName != "" || cfg.rrsetRaw != "" || cfg.rdataName != "" ||
		cfg.rdataIP != "" || cfg.rdataRaw != ""
}

// exitCode maps a terminal error to the process exit code described in §6 and
// §7: configuration/resource errors and any query failure both map to 1.
func exitCode(err error) int {
	return config.ExitCode(err)
}

// newBackends constructs the full set of known backend adapters, rooted at
// their default base URLs; loadConfigFile and any matching CLI flags then
// feed them API keys and overrides via Setenv.
func newBackends() map[string]backend.Backend {
	return map[string]backend.Backend{
		"dnsdb2": backend.NewDNSDBv2("https://api.dnsdb.info/dnsdb/v2"),
		"dnsdb1": backend.NewDNSDBv1("https://api.dnsdb.info"),
		"circl":  backend.NewCIRCL("https://www.circl.lu/pdns/query"),
	}
}

// loadConfigFile reads path (expanding a leading "~/") and applies its
// triples to backends. A missing file at the default path is not an error;
// an explicitly-requested missing file is.
func loadConfigFile(path string, backends map[string]backend.Backend) error {
	expanded, err := expandHome(path)
	if err != nil {
		return &qerr.ConfigError{Reason: err.Error()}
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) && path == defaultConfigFile {
			return nil
		}
		return &qerr.ConfigError{Reason: fmt.Sprintf("reading config file: %v", err)}
	}
	triples, err := config.ParseTriples(data)
	if err != nil {
		return err
	}
	return config.ApplyTriples(triples, backends)
}

func expandHome(path string) (string, error) {
	if path != "~" && !hasHomePrefix(path) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

func hasHomePrefix(path string) bool {
	return len(path) >= 2 && path[0] == '~' && path[1] == '/'
}
