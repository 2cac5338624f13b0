package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dnsdbq/internal/qerr"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)

	ctxErr := ctx.Err()
	stop()

	if err != nil {
		if ctxErr != nil {
			os.Exit(exitINT)
		}
		printErr(err)
		os.Exit(exitCode(err))
	}
	if ctxErr != nil {
		os.Exit(exitINT)
	}
}

// printErr reports err to stderr, tagging it with its §7 category when it
// originated in the qerr taxonomy. Configuration/resource errors abort
// before any query ran; everything else (transport, SAF, HTTP status) was
// already absorbed per-query and surfaces here only as the writer's "one
// or more queries failed" summary, which carries no category of its own.
func printErr(err error) {
	cat := qerr.CategoryOf(err)
	switch {
	case qerr.Fatal(err):
		_, _ = fmt.Fprintf(os.Stderr, "dnsdbq: fatal (%s): %v\n", cat, err)
	case cat >= 0:
		_, _ = fmt.Fprintf(os.Stderr, "dnsdbq: %s: %v\n", cat, err)
	default:
		_, _ = fmt.Fprintf(os.Stderr, "dnsdbq: %v\n", err)
	}
}
