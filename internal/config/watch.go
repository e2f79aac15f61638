package config

import (
	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/pipeline"
)

// pipelineEnvelope decodes only the [pipeline] table out of a config
// file, for hot-reload without touching network/failover settings that
// the spec does not call hot-reloadable.
type pipelineEnvelope struct {
	Pipeline pipeline.Config `toml:"pipeline"`
}

// WatchPipeline watches path for writes and, on each one, re-decodes
// just its [pipeline] table and pushes the result into live. Malformed
// reloads are logged and ignored; the previous config keeps running.
// The returned function stops the watch.
func WatchPipeline(path string, live *pipeline.Pipeline, logger contracts.Logger) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloadPipeline(path, live, logger)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if logger != nil {
					logger.Warn("config watch error", logger.Field().Error("error", err))
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}

func reloadPipeline(path string, live *pipeline.Pipeline, logger contracts.Logger) {
	var env pipelineEnvelope
	env.Pipeline = *pipeline.NewConfig()
	if _, err := toml.DecodeFile(path, &env); err != nil {
		if logger != nil {
			logger.Warn("pipeline hot-reload failed, keeping previous config",
				logger.Field().Error("error", err))
		}
		return
	}
	cfg := env.Pipeline
	live.SetConfig(&cfg)
	if logger != nil {
		logger.Info("pipeline config hot-reloaded")
	}
}
