// Command seed fetches template repositories into new project
// directories through a local repository cache.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := newCLI(os.Stdout, os.Stderr)
	if err := c.root().ExecuteContext(ctx); err != nil {
		c.printError(err)
		stop()
		os.Exit(1)
	}
}
