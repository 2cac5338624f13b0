// Package qerr implements the error taxonomy of §7: typed errors for
// transport, HTTP status, SAF-terminal, parse, and configuration failures,
// each carrying enough to decide an exit code without re-inspecting the
// condition that produced it: one small struct per category, a formatting
// method, and a mapping function rather than sentinel values.
package qerr

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
)

// Category classifies an error for exit-code and postscript purposes (§7).
type Category int

const (
	CategoryTransport Category = iota
	CategoryHTTPStatus
	CategorySAFTerminal
	CategoryParse
	CategoryConfig
	CategoryResource
)

func (c Category) String() string {
	switch c {
	case CategoryTransport:
		return "transport"
	case CategoryHTTPStatus:
		return "http-status"
	case CategorySAFTerminal:
		return "saf-terminal"
	case CategoryParse:
		return "parse"
	case CategoryConfig:
		return "config"
	case CategoryResource:
		return "resource"
	default:
		return "unknown"
	}
}

// TransportKind narrows a CategoryTransport error per §7's "DNS-resolution,
// connect, TLS, write-error-stopped-intentionally, other" list.
type TransportKind int

const (
	TransportDNS TransportKind = iota
	TransportConnect
	TransportTLS
	TransportStopped
	TransportOther
)

// TransportError is a non-EOF failure observed while reading a transfer.
// The first three kinds (DNS, connect, TLS) set the process exit code;
// TransportStopped never does, since it reflects an intentional local
// cancellation rather than a remote failure.
type TransportError struct {
	Kind TransportKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClassifyTransport inspects a non-EOF transport error and returns the kind
// of failure it represents, per §4.2's "map the transport result to one of
// {ok, dns-failure, connect-failure, other-failure}" (TransportStopped is
// never produced here; callers set it directly when a fetch was cancelled
// intentionally rather than failing).
func ClassifyTransport(err error) TransportKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return TransportDNS
	}
	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return TransportTLS
	}
	var hostErr x509.HostnameError
	if errors.As(err, &hostErr) {
		return TransportTLS
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return TransportTLS
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return TransportConnect
		}
		if opErr.Op == "tls" {
			return TransportTLS
		}
	}
	return TransportOther
}

// ExitAffecting reports whether this error should set the process exit
// code to 1 per §7.
func (e *TransportError) ExitAffecting() bool {
	switch e.Kind {
	case TransportDNS, TransportConnect, TransportTLS:
		return true
	default:
		return false
	}
}

// HTTPStatusError records the first non-2xx response observed for a query;
// §7 says only the first such response is kept; later ones are dropped
// without overwriting it.
type HTTPStatusError struct {
	Code    int
	Message string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

// SAFTerminalError wraps a SAF terminal state, succeeded included (§4.4).
// Status "we_limited" is a local early-stop, not a server signal: Silent
// reports it, and the writer neither prints it nor counts it toward the
// exit code, whatever the quiet setting (§7).
type SAFTerminalError struct {
	Status string
	Detail string
}

func (e *SAFTerminalError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("SAF terminal status %q", e.Status)
	}
	return fmt.Sprintf("SAF terminal status %q: %s", e.Status, e.Detail)
}

// Silent reports whether this terminal status should stay out of the
// postscript outright: "we_limited" reflects a local early-stop via
// output_limit, not a server-reported error (§7), and is suppressed
// regardless of quiet mode (quiet mode itself is handled by diag.Logger).
func (e *SAFTerminalError) Silent() bool {
	return e.Status == "we_limited"
}

// ParseError records a malformed record; per §7 these are never fatal, the
// record is simply skipped.
type ParseError struct {
	Line   []byte
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %s", e.Reason)
}

// ConfigError is fatal: per §7, configuration problems abort the program.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// ResourceError is fatal: allocation failure or similar exhaustion (§7).
type ResourceError struct {
	Reason string
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource exhaustion: %s", e.Reason)
}

// Fatal reports whether err should abort the whole program rather than
// being logged and absorbed locally, per §7's propagation policy.
func Fatal(err error) bool {
	switch err.(type) {
	case *ConfigError, *ResourceError:
		return true
	default:
		return false
	}
}

// CategoryOf classifies err per §7 for diagnostic tagging. It returns -1
// for an error that didn't originate in this package.
func CategoryOf(err error) Category {
	switch err.(type) {
	case *TransportError:
		return CategoryTransport
	case *HTTPStatusError:
		return CategoryHTTPStatus
	case *SAFTerminalError:
		return CategorySAFTerminal
	case *ParseError:
		return CategoryParse
	case *ConfigError:
		return CategoryConfig
	case *ResourceError:
		return CategoryResource
	default:
		return Category(-1)
	}
}
