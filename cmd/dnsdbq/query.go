package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dnsdbq/internal/asinfo"
	"dnsdbq/internal/backend"
	"dnsdbq/internal/diag"
	"dnsdbq/internal/orchestrator"
	output "dnsdbq/internal/present"
	"dnsdbq/internal/qerr"
	"dnsdbq/internal/sortstore"
	"dnsdbq/internal/transfer"
	"dnsdbq/internal/tuple"
)

// oneQuery is one query shape, parsed either from the command line flags or
// from one line of batch input (§6's "batch-file front end").
type oneQuery struct {
	mode      backend.Mode
	thing     string
	rrtypes   []string
	bailiwick string
	pfxlen    int
	rrsetSide bool // true for rrset-shaped queries: minimal-mode dedupes on rrname
}

// runQuery is the RunE entry point: it resolves configuration, builds the
// backend set, expands one or more queries, and drives them through the
// orchestrator into the writer/sort stage.
func runQuery(cmd *cobra.Command, cfg *rootConfig) error {
	log := &diag.Logger{Out: cmd.ErrOrStderr(), Quiet: cfg.core.Quiet, Verbose: cfg.core.Verbose, Level: cfg.core.DebugLevel}

	backends := newBackends()
	if err := loadConfigFile(cfg.configFile, backends); err != nil {
		return err
	}
	if apikey := os.Getenv("DNSDB_API_KEY"); apikey != "" {
		if b, ok := backends["dnsdb2"]; ok {
			_ = b.Setenv("apikey", apikey)
		}
		if b, ok := backends["dnsdb1"]; ok {
			_ = b.Setenv("apikey", apikey)
		}
	}

	system := cfg.core.System
	if system == "" {
		system = "dnsdb2"
	}
	b, ok := backends[system]
	if !ok {
		return &qerr.ConfigError{Reason: fmt.Sprintf("unknown system %q", system)}
	}
	if err := b.Ready(); err != nil {
		return &qerr.ConfigError{Reason: err.Error()}
	}

	queries, err := buildQueries(cfg, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return &qerr.ConfigError{Reason: "no query specified: use --rrset-name/--rdata-name/--rdata-ip/--rrset-raw/--rdata-raw or --multiple"}
	}

	qparam, err := buildQParam(cfg)
	if err != nil {
		return err
	}

	format, opts := resolveOutput(cfg, cmd.OutOrStdout())
	writerCfg := sortstore.Config{
		Sorting:     resolveSorting(cfg),
		SortKeys:    resolveSortKeys(cfg.sortKeys),
		Batching:    resolveBatching(cfg),
		Format:      format,
		Options:     opts,
		OutputLimit: cfg.outputLimit,
		AsInfo:      resolveAsInfo(cfg),
		Summarize:   cfg.summarize,
	}
	w, err := sortstore.New(cmd.OutOrStdout(), log, writerCfg)
	if err != nil {
		return &qerr.ResourceError{Reason: err.Error()}
	}

	tlsCfg, err := cfg.core.BuildTLSConfig()
	if err != nil {
		return err
	}
	httpClient := newHTTPClient(tlsCfg, cfg.core.CurlIPResolve)
	eng := transfer.NewEngine(httpClient, cfg.maxInFlight)

	var tracker *orchestrator.ActiveTracker
	if writerCfg.Batching == sortstore.BatchVerbose {
		tracker = orchestrator.NewActiveTracker(eng)
	}

	flags := resolveTupleFlags(cfg)
	for _, q := range queries {
		qd := orchestrator.QDesc{
			Mode:      q.mode,
			Thing:     q.thing,
			RRTypes:   q.rrtypes,
			Bailiwick: q.bailiwick,
			PfxLen:    q.pfxlen,
		}
		query := orchestrator.NewQuery(describeQuery(q), qd, qparam)
		w.AddQuery(query, buildQDetail(qparam, describeQuery(q)), q.rrsetSide)
		if err := query.Launch(eng, b, flags, tracker, log, w); err != nil {
			return err
		}
	}

	eng.Drain()
	eng.Wait()

	if w.ExitBad() {
		return fmt.Errorf("dnsdbq: one or more queries failed")
	}
	return nil
}

func describeQuery(q oneQuery) string {
	return fmt.Sprintf("%s %s", modeLabel(q.mode), q.thing)
}

func modeLabel(m backend.Mode) string {
	switch m {
	case backend.ModeRRsetName:
		return "rrset/name"
	case backend.ModeRRsetRaw:
		return "rrset/raw"
	case backend.ModeRDataName:
		return "rdata/name"
	case backend.ModeRDataIP:
		return "rdata/ip"
	case backend.ModeRDataRaw:
		return "rdata/raw"
	default:
		return "query"
	}
}

// buildQueries returns the flag-driven query (if any shape flag is set) plus
// the batch queries read from stdin when --multiple is given.
func buildQueries(cfg *rootConfig, stdin io.Reader) ([]oneQuery, error) {
	var out []oneQuery
	if anyQueryShapeSet(cfg) {
		q, err := flagQuery(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if cfg.multiple {
		batch, err := readBatch(stdin, cfg.rrtypes, cfg.bailiwick, cfg.pfxlen)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// flagQuery builds the single query described by the command-line shape
// flags; exactly one of rrsetName/rrsetRaw/rdataName/rdataIP/rdataRaw must be
// set, and any other count is returned as a ConfigError.
func flagQuery(cfg *rootConfig) (oneQuery, error) {
	set := 0
	var q oneQuery
	q.rrtypes = cfg.rrtypes
	q.bailiwick = cfg.bailiwick
	q.pfxlen = cfg.pfxlen

	if cfg.rrsetName != "" {
		set++
		q.mode, q.thing, q.rrsetSide = backend.ModeRRsetName, cfg.rrsetName, true
	}
	if cfg.rrsetRaw != "" {
		set++
		q.mode, q.thing, q.rrsetSide = backend.ModeRRsetRaw, cfg.rrsetRaw, true
	}
	if cfg.rdataName != "" {
		set++
		q.mode, q.thing, q.rrsetSide = backend.ModeRDataName, cfg.rdataName, false
	}
	if cfg.rdataIP != "" {
		set++
		q.mode, q.thing, q.rrsetSide = backend.ModeRDataIP, cfg.rdataIP, false
	}
	if cfg.rdataRaw != "" {
		set++
		q.mode, q.thing, q.rrsetSide = backend.ModeRDataRaw, cfg.rdataRaw, false
	}
	if set != 1 {
		return q, &qerr.ConfigError{Reason: "exactly one of --rrset-name/--rrset-raw/--rdata-name/--rdata-ip/--rdata-raw is required"}
	}
	return q, nil
}

// readBatch parses one query per non-blank stdin line, getopt-style: each
// line carries its own -r/-n/-i/-R/-N shape flag and optional -t/-b/-p
// overrides; rrtypes/bailiwick/pfxlen default to the command line's values
// when a line does not override them.
func readBatch(r io.Reader, defaultRRTypes []string, defaultBailiwick string, defaultPfxlen int) ([]oneQuery, error) {
	var out []oneQuery
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q, err := parseBatchLine(line, defaultRRTypes, defaultBailiwick, defaultPfxlen)
		if err != nil {
			return nil, &qerr.ConfigError{Reason: fmt.Sprintf("batch line %q: %v", line, err)}
		}
		out = append(out, q)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading batch input: %w", err)
	}
	return out, nil
}

func parseBatchLine(line string, defaultRRTypes []string, defaultBailiwick string, defaultPfxlen int) (oneQuery, error) {
	fields := strings.Fields(line)
	q := oneQuery{rrtypes: defaultRRTypes, bailiwick: defaultBailiwick, pfxlen: defaultPfxlen}
	set := 0
	for i := 0; i < len(fields); i++ {
		flag := fields[i]
		arg := func() (string, error) {
			if i+1 >= len(fields) {
				return "", fmt.Errorf("%s requires an argument", flag)
			}
			i++
			return fields[i], nil
		}
		switch flag {
		case "-r":
			v, err := arg()
			if err != nil {
				return q, err
			}
			q.mode, q.thing, q.rrsetSide = backend.ModeRRsetName, v, true
			set++
		case "-R":
			v, err := arg()
			if err != nil {
				return q, err
			}
			q.mode, q.thing, q.rrsetSide = backend.ModeRRsetRaw, v, true
			set++
		case "-n":
			v, err := arg()
			if err != nil {
				return q, err
			}
			q.mode, q.thing, q.rrsetSide = backend.ModeRDataName, v, false
			set++
		case "-i":
			v, err := arg()
			if err != nil {
				return q, err
			}
			q.mode, q.thing, q.rrsetSide = backend.ModeRDataIP, v, false
			set++
		case "-N":
			v, err := arg()
			if err != nil {
				return q, err
			}
			q.mode, q.thing, q.rrsetSide = backend.ModeRDataRaw, v, false
			set++
		case "-t":
			v, err := arg()
			if err != nil {
				return q, err
			}
			q.rrtypes = strings.Split(v, ",")
		case "-b":
			v, err := arg()
			if err != nil {
				return q, err
			}
			q.bailiwick = v
		case "-p":
			v, err := arg()
			if err != nil {
				return q, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return q, fmt.Errorf("-p: %w", err)
			}
			q.pfxlen = n
		default:
			return q, fmt.Errorf("unrecognized batch flag %q", flag)
		}
	}
	if set != 1 {
		return q, fmt.Errorf("exactly one of -r/-R/-n/-i/-N is required")
	}
	return q, nil
}

// buildQParam translates the time-fence and limit flags into an
// orchestrator.QParam, parsing --after/--before as epoch seconds.
func buildQParam(cfg *rootConfig) (orchestrator.QParam, error) {
	var p orchestrator.QParam
	if cfg.after != "" {
		v, err := strconv.ParseInt(cfg.after, 10, 64)
		if err != nil {
			return p, &qerr.ConfigError{Reason: fmt.Sprintf("--after: %v", err)}
		}
		p.After, p.HasAfter = v, true
	}
	if cfg.before != "" {
		v, err := strconv.ParseInt(cfg.before, 10, 64)
		if err != nil {
			return p, &qerr.ConfigError{Reason: fmt.Sprintf("--before: %v", err)}
		}
		p.Before, p.HasBefore = v, true
	}
	p.QueryLimit = cfg.queryLimit
	p.OutputLimit = cfg.outputLimit
	p.Offset = cfg.offset
	p.Complete = cfg.complete
	p.Gravel = cfg.gravel
	p.Follow = cfg.follow
	return p, nil
}

func buildQDetail(p orchestrator.QParam, descr string) output.QDetail {
	return output.QDetail{
		Descr:     descr,
		After:     p.After,
		Before:    p.Before,
		HasAfter:  p.HasAfter,
		HasBefore: p.HasBefore,
		Limit:     p.OutputLimit,
		Offset:    p.Offset,
		Gravel:    p.Gravel,
		Complete:  p.Complete,
		Follow:    p.Follow,
	}
}

// resolveOutput picks the presentation format (explicit flag, -j/-J
// shorthand, or TTY-detected default) and the shared rendering options.
func resolveOutput(cfg *rootConfig, stdout io.Writer) (output.Format, output.Options) {
	format := cfg.format
	switch {
	case cfg.jsonFlag:
		format = "json"
	case cfg.jsonlFlag:
		format = "jsonl"
	}
	if format == "" {
		f, ok := stdout.(*os.File)
		if !ok {
			f = nil
		}
		format = output.DetectFormat(f, "")
	}

	opts := output.Options{
		DateFix:    !cfg.noDateFix,
		QDetail:    cfg.queryDetail,
		AsInfo:     cfg.core.AsinfoLookup,
		RRSetQuery: anyQueryShapeSet(cfg) && cfg.rdataName == "" && cfg.rdataIP == "" && cfg.rdataRaw == "",
	}
	return output.Format(format), opts
}

func resolveSorting(cfg *rootConfig) sortstore.SortMode {
	switch {
	case !cfg.sort && len(cfg.sortKeys) == 0:
		return sortstore.NoSort
	case cfg.sortReverse:
		return sortstore.ReverseSort
	default:
		return sortstore.NormalSort
	}
}

func resolveSortKeys(names []string) []sortstore.Key {
	var keys []sortstore.Key
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "first":
			keys = append(keys, sortstore.KeyFirst)
		case "last":
			keys = append(keys, sortstore.KeyLast)
		case "duration":
			keys = append(keys, sortstore.KeyDuration)
		case "count":
			keys = append(keys, sortstore.KeyCount)
		case "name":
			keys = append(keys, sortstore.KeyName)
		case "type":
			keys = append(keys, sortstore.KeyType)
		case "data":
			keys = append(keys, sortstore.KeyData)
		}
	}
	return keys
}

func resolveBatching(cfg *rootConfig) sortstore.Batching {
	switch {
	case cfg.batchVerbose:
		return sortstore.BatchVerbose
	case cfg.batchTerse:
		return sortstore.BatchTerse
	default:
		return sortstore.BatchNone
	}
}

func resolveTupleFlags(cfg *rootConfig) tuple.Flags {
	var f tuple.Flags
	if cfg.reverseNames {
		f |= tuple.Reverse
	}
	if cfg.chompNames {
		f |= tuple.Chomp
	}
	return f
}

// resolveAsInfo returns nil when AS-info is disabled or no origin zone was
// configured; otherwise a closure over a real *net.Resolver, matching the
// pure-function shape C6 exposes.
func resolveAsInfo(cfg *rootConfig) sortstore.AsInfoFunc {
	if !cfg.core.AsinfoLookup || cfg.core.AsinfoDomain == "" {
		return nil
	}
	zone := cfg.core.AsinfoDomain
	resolver := net.DefaultResolver
	return func(rrtype, rdata string) (output.Anno, bool) {
		info, err := asinfo.Lookup(context.Background(), resolver, zone, rrtype, rdata, false)
		if err != nil {
			return output.Anno{Err: err.Error()}, true
		}
		if info == nil {
			return output.Anno{}, false
		}
		return output.Anno{ASN: info.ASN, CIDR: info.CIDR}, true
	}
}
