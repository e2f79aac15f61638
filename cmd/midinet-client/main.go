package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/hakolsound/midinet/internal/client"
	"github.com/hakolsound/midinet/internal/config"
	"github.com/hakolsound/midinet/internal/logging"
)

func main() {
	configPath := pflag.StringP("config", "c", "/etc/midinet/client.toml", "path to client config file")
	pflag.Parse()

	log := logging.NewZapLogger()

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		log.Fatal("failed to load client config", log.Field().Error("error", err))
		return
	}

	daemon, err := client.New(cfg, log)
	if err != nil {
		log.Fatal("failed to build client daemon", log.Field().Error("error", err))
		return
	}

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
		log.Error("client daemon exited with error", log.Field().Error("error", err))
		os.Exit(1)
	}
}
