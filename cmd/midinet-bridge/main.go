package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hakolsound/midinet/internal/bridge"
	"github.com/hakolsound/midinet/internal/logging"
)

func main() {
	log := logging.NewZapLogger()

	daemon := bridge.New(log)

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var once sync.Once
	stop := func(reason string) {
		once.Do(func() {
			log.Info(reason)
			cancel()
		})
	}
	go func() {
		sig := <-sigChan
		stop("received shutdown signal: " + sig.String())
	}()

	if err := daemon.Run(ctx); err != nil && err != context.Canceled {
		log.Error("bridge daemon exited with error", log.Field().Error("error", err))
		os.Exit(1)
	}
}
