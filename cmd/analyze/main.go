// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/relabs-tech/mobility_mapper/internal/app"
	"github.com/relabs-tech/mobility_mapper/internal/config"
	"github.com/relabs-tech/mobility_mapper/internal/log"
)

func main() {
	configPath := flag.String("config", "mobility_config.txt", "configuration file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config file] <log.csv>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := log.Init(config.Get().LogDebug); err != nil {
		log.Fatalf("%v", err)
	}
	defer log.Sync()

	if err := app.RunAnalyze(flag.Arg(0)); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
