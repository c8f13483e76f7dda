//go:build windows

package mcp

import (
	"os"
	"os/signal"
)

// notifySignals relays Ctrl+C; Windows has no SIGTERM.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
