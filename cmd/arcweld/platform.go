// +build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// registerSignals closes cancel on SIGINT/SIGTSTP, adapted from the
// teacher's platform.go: instead of tearing down a GRBL serial connection,
// it feeds the welder's cooperative-cancellation path (spec §5).
func registerSignals(cancel chan struct{}) {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt, syscall.SIGTSTP)
	go func() {
		<-sigchan
		close(cancel)
	}()
}
