package sortstore

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"dnsdbq/internal/tuple"
)

// Key names one of the seven allowed external-sort keys (§4.8), 1-indexed
// by their position in the intermediate sort-line format.
type Key int

const (
	KeyFirst Key = iota + 1
	KeyLast
	KeyDuration
	KeyCount
	KeyName
	KeyType
	KeyData
)

// allKeys lists every key in its default sort-line column order; used to
// fill in the remaining -k flags behind whatever the caller explicitly
// requested, so -u still dedups on the full record (§4.8).
var allKeys = []Key{KeyFirst, KeyLast, KeyDuration, KeyCount, KeyName, KeyType, KeyData}

func (k Key) numeric() bool {
	switch k {
	case KeyFirst, KeyLast, KeyDuration, KeyCount:
		return true
	default:
		return false
	}
}

// sortProcess wraps the /usr/bin/sort subprocess: a pipe for tuples going
// in as key lines, a pipe for sorted, deduplicated lines coming back out.
type sortProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// newSortProcess starts `sort -u -k... ` (path, or /usr/bin/sort when path
// is empty) with the given key order (filled out to all seven per §4.8) and
// LC_ALL=C pinned (§6).
func newSortProcess(path string, keys []Key, reverse bool) (*sortProcess, error) {
	if path == "" {
		path = "/usr/bin/sort"
	}
	args := buildSortArgs(keys, reverse)
	cmd := exec.Command(path, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", path, err)
	}
	return &sortProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

// buildSortArgs renders the -u plus one -k<N>[n][r] per key, user-requested
// keys first (in the order given, deduplicated), then the rest of allKeys
// to complete the set.
func buildSortArgs(keys []Key, reverse bool) []string {
	seen := make(map[Key]bool, len(allKeys))
	ordered := make([]Key, 0, len(allKeys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		ordered = append(ordered, k)
	}
	for _, k := range allKeys {
		if !seen[k] {
			seen[k] = true
			ordered = append(ordered, k)
		}
	}

	args := []string{"-u"}
	for _, k := range ordered {
		col := strconv.Itoa(int(k))
		mods := ""
		if k.numeric() {
			mods += "n"
		}
		if reverse {
			mods += "r"
		}
		args = append(args, fmt.Sprintf("-k%s,%s%s", col, col, mods))
	}
	return args
}

// writeLine emits one sort-line for t: "<first> <last> <duration> <count>
// <rrname-key> <rrtype> <rdata-key> <raw-json>\n" (§4.8, §6). The raw-JSON
// field is the original source line, so a later re-parse round-trips it
// bit-exact (§8 property 5).
func (p *sortProcess) writeLine(t *tuple.Tuple) error {
	first, last, dur := uint64Field(t.TimeFirst), uint64Field(t.TimeLast), durationField(t)
	count := uint64Field(t.Count)
	nameKey := tuple.SortableRRName(t.RRName)
	dataKey := ""
	if len(t.RData) > 0 {
		dataKey = tuple.SortableRData(t.RRType, t.RData[0])
	}
	raw := strings.TrimRight(string(t.Raw), "\r\n")
	line := fmt.Sprintf("%d %d %d %d %s %s %s %s\n", first, last, dur, count, nameKey, t.RRType, dataKey, raw)
	_, err := io.WriteString(p.stdin, line)
	return err
}

func uint64Field(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}

func durationField(t *tuple.Tuple) uint64 {
	if t.TimeFirst == nil || t.TimeLast == nil || *t.TimeLast < *t.TimeFirst {
		return 0
	}
	return *t.TimeLast - *t.TimeFirst
}

// finish closes stdin (so sort sees EOF and begins emitting output),
// reads back up to limit lines (0 means unlimited), and — when the limit
// cuts the read short — SIGTERMs the subprocess rather than letting it
// block writing into a reader nobody is draining (§5: "killing the sort
// subprocess with SIGTERM to avoid SIGPIPE").
func (p *sortProcess) finish(limit int) ([]string, error) {
	if err := p.stdin.Close(); err != nil {
		return nil, fmt.Errorf("closing sort stdin: %w", err)
	}
	lines, truncated, err := scanSortOutput(p.stdout, limit)
	if truncated {
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
	}
	_ = p.stdout.Close()
	waitErr := p.cmd.Wait()
	if err != nil {
		return lines, err
	}
	if !truncated && waitErr != nil {
		return lines, fmt.Errorf("sort: %w", waitErr)
	}
	return lines, nil
}
