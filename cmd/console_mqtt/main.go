package main

import (
	"github.com/relabs-tech/mobility_mapper/internal/app"
	"github.com/relabs-tech/mobility_mapper/internal/config"
	"github.com/relabs-tech/mobility_mapper/internal/log"
)

func main() {
	// Load configuration
	if err := config.InitGlobal("mobility_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := log.Init(config.Get().LogDebug); err != nil {
		log.Fatalf("%v", err)
	}
	defer log.Sync()

	log.Infof("starting mobility console (MQTT subscriber)")
	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
