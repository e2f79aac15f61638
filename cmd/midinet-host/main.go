package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/hakolsound/midinet/internal/config"
	"github.com/hakolsound/midinet/internal/host"
	"github.com/hakolsound/midinet/internal/logging"
)

func main() {
	configPath := pflag.StringP("config", "c", "/etc/midinet/host.toml", "path to host config file")
	primaryDeviceID := pflag.Int("primary-device", 0, "device id of the primary physical controller")
	secondaryDeviceID := pflag.Int("secondary-device", 1, "device id of the secondary physical controller")
	pflag.Parse()

	log := logging.NewZapLogger()

	cfg, err := config.LoadHost(*configPath)
	if err != nil {
		log.Fatal("failed to load host config", log.Field().Error("error", err))
		return
	}

	daemon, err := host.New(cfg, *primaryDeviceID, *secondaryDeviceID, log)
	if err != nil {
		log.Fatal("failed to build host daemon", log.Field().Error("error", err))
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
		log.Error("host daemon exited with error", log.Field().Error("error", err))
		os.Exit(1)
	}
}
