package main

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// newHTTPClient builds the *http.Client every transfer shares, honoring
// --donotverify/--tls-* (via tlsCfg, already built by config.BuildTLSConfig)
// and --curl-ipresolve's IP-family pin (§6).
func newHTTPClient(tlsCfg *tls.Config, ipResolve string) *http.Client {
	dialer := &net.Dialer{Timeout: 30 * time.Second}
	transport := &http.Transport{
		TLSClientConfig: tlsCfg,
		DialContext:     pinnedDialContext(dialer, ipResolve),
	}
	return &http.Client{Transport: transport}
}

// pinnedDialContext wraps dialer.DialContext to force "tcp4" or "tcp6" when
// ipResolve names one; any other value (including "") dials either family.
func pinnedDialContext(dialer *net.Dialer, ipResolve string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	network := ""
	switch ipResolve {
	case "4":
		network = "tcp4"
	case "6":
		network = "tcp6"
	}
	return func(ctx context.Context, defaultNetwork, addr string) (net.Conn, error) {
		if network == "" {
			return dialer.DialContext(ctx, defaultNetwork, addr)
		}
		return dialer.DialContext(ctx, network, addr)
	}
}
