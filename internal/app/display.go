// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/mobility_mapper/internal/config"
	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/log"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/render"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// panelData folds MQTT events into the status the panel shows.
type panelData struct {
	mu     sync.Mutex
	status render.Status
	// zone events seen since the last summary
	stairs, ramps int
}

func (d *panelData) onSample(p samplePayload) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status.Coord = p.coord()
	if d.status.Mode == "" {
		if d.status.Coord == position.Local {
			d.status.Mode = position.ModePDR
		} else {
			d.status.Mode = position.ModeGPS
		}
	}
	d.status.Samples = max(d.status.Samples, p.Index+1)
	d.status.Position, d.status.HavePosition = p.Position, true
}

func (d *panelData) onZone(z zones.Zone) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if z.Kind == zones.Stair {
		d.stairs++
	} else {
		d.ramps++
	}
	d.status.Stairs, d.status.Ramps = d.stairs, d.ramps
}

func (d *panelData) onGait(g gait.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status.Cadence, d.status.HaveCadence = g.Cadence, true
}

// onSummary takes the authoritative counts of a finished session.
func (d *panelData) onSummary(sum pipeline.Summary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status.Mode = sum.Mode
	d.status.Samples = sum.Samples
	d.status.Stairs, d.status.Ramps = sum.StairZones, sum.RampZones
	d.stairs, d.ramps = 0, 0
	if sum.Gait != nil {
		d.status.Cadence, d.status.HaveCadence = sum.Gait.Cadence, true
	}
}

func (d *panelData) snapshot() render.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// RunDisplay mirrors the live session on an SSD1306 panel, fed from the
// MQTT topics published by the live command.
func RunDisplay() error {
	cfg := config.Get()
	if err := cfg.RequireDisplay(); err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Infof("display: panel initialized on I2C bus %q", cfg.DisplayI2CBus)

	img := image1bit.NewVerticalLSB(dev.Bounds())
	on := image.NewUniform(image1bit.On)

	data := &panelData{}
	render.DrawPanel(img, on, data.snapshot())
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		log.Warnf("display: splash error: %v", err)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, "display")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeJSON(client, cfg.TopicSamples, "display", data.onSample); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicZones, "display", data.onZone); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicGait, "display", data.onGait); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicSummary, "display", data.onSummary); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Infof("display: starting update loop")
	for range ticker.C {
		render.DrawPanel(img, on, data.snapshot())
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Warnf("display: update error: %v", err)
		}
	}
	return nil
}
