// Command schedctl talks to a running scheduling-service: it lists slots,
// books and moves appointments, prints the day board, probes gRPC health and
// tails the appointment events published from the outbox.
package main

import (
	"os"

	"github.com/md-rashed-zaman/salonsched/libs/runtime"
)

func main() {
	ctx, stop := runtime.SignalContext()
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
