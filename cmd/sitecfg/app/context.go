package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignals stop a running reconcile or watch loop.
var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// ContextWithSignals returns a context cancelled on SIGINT or SIGTERM.
// A canceled reconcile releases the store lock before the process exits.
func ContextWithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}
