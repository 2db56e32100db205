package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/olivercrane/vasari/engine"
	"github.com/olivercrane/vasari/engine/core"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the engine configuration file")
	flag.Parse()

	cfg, err := engine.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal(err.Error())
	}

	app, err := engine.New(cfg)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := app.Initialize(*configPath); err != nil {
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		_ = app.Shutdown()
		os.Exit(0)
	}()

	if err := app.Run(); err != nil {
		_ = app.Shutdown()
		core.LogFatal(err.Error())
	}

	if err := app.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
}
