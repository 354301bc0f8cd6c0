//+build windows

package main

import (
	"os"
	"os/signal"
)

func registerSignals(cancel chan struct{}) {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt)
	go func() {
		<-sigchan
		close(cancel)
	}()
}
