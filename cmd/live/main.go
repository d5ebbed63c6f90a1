// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/mobility_mapper/internal/app"
	"github.com/relabs-tech/mobility_mapper/internal/config"
	"github.com/relabs-tech/mobility_mapper/internal/log"
)

func main() {
	configPath := flag.String("config", "mobility_config.txt", "configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := log.Init(config.Get().LogDebug); err != nil {
		log.Fatalf("%v", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("starting mobility live engine (input=%s, mode=%s)", config.Get().Input, config.Get().PositionMode)
	if err := app.RunLive(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	log.Infof("live: shut down")
}
