// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/relabs-tech/mobility_mapper/internal/config"
	"github.com/relabs-tech/mobility_mapper/internal/gps"
	"github.com/relabs-tech/mobility_mapper/internal/imu"
	"github.com/relabs-tech/mobility_mapper/internal/log"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/render"
	"github.com/relabs-tech/mobility_mapper/internal/sensors"
	"github.com/relabs-tech/mobility_mapper/internal/store"
	"github.com/relabs-tech/mobility_mapper/internal/transport"
)

const (
	// readings held to choose a mode when POSITION_MODE=auto
	probeReadings = 50
	// frames between summary refreshes for the web state
	snapshotEvery = 25
	// one websocket sample event per this many samples
	wsSampleEvery = 5
)

// feedItem is one reading from the live input: a raw line from a socket
// or serial port, or a frame read straight from a device.
type feedItem struct {
	raw    string
	frame  imu.RawFrame
	parsed bool
	at     time.Time
}

type feed interface {
	next() (feedItem, error)
	Close() error
}

type lineFeed struct{ src transport.LineSource }

func (l lineFeed) next() (feedItem, error) {
	line, err := l.src.ReadLine()
	return feedItem{raw: line, at: time.Now()}, err
}

func (l lineFeed) Close() error { return l.src.Close() }

type frameFeed struct{ src imu.FrameSource }

func (f frameFeed) next() (feedItem, error) {
	fr, err := f.src.Next()
	return feedItem{frame: fr, parsed: true, at: time.Now()}, err
}

func (f frameFeed) Close() error {
	if c, ok := f.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// openFeed opens the input selected by INPUT.
func openFeed(cfg *config.Config) (feed, error) {
	interval := time.Duration(cfg.IMUSampleInterval) * time.Millisecond

	switch cfg.Input {
	case "udp":
		src, err := transport.ListenUDP(cfg.UDPListenAddr)
		if err != nil {
			return nil, err
		}
		log.Infof("live: listening for UDP frames on %s", src.Addr())
		return lineFeed{src}, nil

	case "tcp":
		src, err := transport.ListenTCP(cfg.TCPListenAddr)
		if err != nil {
			return nil, err
		}
		src.OnConnect = func(remote net.Addr) {
			log.Infof("live: TCP device connected from %s", remote)
		}
		log.Infof("live: waiting for a TCP device on %s", src.Addr())
		return lineFeed{src}, nil

	case "serial":
		src, err := transport.OpenSerialSource(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return nil, err
		}
		log.Infof("live: serial port opened on %s at %d baud", cfg.SerialPort, cfg.SerialBaudRate)
		return lineFeed{src}, nil

	case "imu":
		w, err := sensors.NewWearable(cfg.IMUSPIDevice, cfg.IMUCSPin, interval)
		if err != nil {
			return nil, err
		}
		return frameFeed{w}, nil

	case "sim":
		opts := sensors.DefaultSimOptions()
		opts.SamplingPeriod = cfg.SamplingPeriod
		if cfg.PositionMode == position.ModeGPS {
			opts.OriginLat = (cfg.Bounds.LatMin + cfg.Bounds.LatMax) / 2
			opts.OriginLon = (cfg.Bounds.LonMin + cfg.Bounds.LonMax) / 2
		}
		log.Infof("live: simulating a walk every %s", interval)
		return frameFeed{sensors.NewSimulated(opts, interval)}, nil
	}
	return nil, fmt.Errorf("unknown INPUT %q", cfg.Input)
}

// liveRunner drives one session from a feed.
type liveRunner struct {
	opts  pipeline.Options
	feed  feed
	rx    *gps.Receiver       // optional
	rec   *transport.Recorder // optional
	state *LiveState          // optional
	sinks []pipeline.Sink

	probe     int
	processed int
}

// run reads the feed until ctx is done or the feed ends, then closes the
// session. With an auto mode the first probe readings are held until the
// mode is chosen, then replayed; an attached GPS receiver selects GPS
// straight away.
func (r *liveRunner) run(ctx context.Context) (pipeline.Summary, error) {
	stop := context.AfterFunc(ctx, func() { r.feed.Close() })
	defer stop()

	var (
		sess    *pipeline.Session
		pending []feedItem
		err     error
	)
	switch {
	case r.opts.Mode != position.ModeAuto:
		sess, err = r.start(r.opts.Mode)
	case r.rx != nil:
		sess, err = r.start(position.ModeGPS)
	}
	if err != nil {
		return pipeline.Summary{}, err
	}

	var readErr error
	for ctx.Err() == nil {
		item, err := r.feed.next()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				readErr = fmt.Errorf("live: read: %w", err)
			}
			break
		}

		if sess != nil {
			r.handle(sess, item)
			continue
		}
		pending = append(pending, item)
		if len(pending) < r.probe {
			continue
		}
		if sess, err = r.startFromProbe(pending); err != nil {
			return pipeline.Summary{}, err
		}
		pending = nil
	}

	if sess == nil {
		if len(pending) == 0 {
			return pipeline.Summary{}, errors.Join(errors.New("live: no frames received"), readErr)
		}
		if sess, err = r.startFromProbe(pending); err != nil {
			return pipeline.Summary{}, err
		}
	}

	sum, err := sess.Close()
	if err != nil {
		return sum, err
	}
	return sum, readErr
}

func (r *liveRunner) start(mode position.Mode) (*pipeline.Session, error) {
	opts := r.opts
	opts.Mode = mode
	if r.state != nil {
		r.state.Start(mode)
	}
	sess, err := pipeline.NewSession(opts, r.sinks...)
	if err != nil {
		return nil, err
	}
	log.Infof("live: session %s started in %s mode", sess.ID(), mode)
	return sess, nil
}

func (r *liveRunner) startFromProbe(items []feedItem) (*pipeline.Session, error) {
	frames := make([]imu.RawFrame, 0, len(items))
	for _, it := range items {
		f := it.frame
		if !it.parsed {
			var err error
			if f, err = imu.ParseFrame(it.raw); err != nil {
				continue
			}
		}
		frames = append(frames, transport.MergeFix(f, r.rx))
	}

	sess, err := r.start(position.ResolveMode(position.ModeAuto, frames))
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		r.handle(sess, it)
	}
	return sess, nil
}

func (r *liveRunner) handle(sess *pipeline.Session, item feedItem) {
	f := item.frame
	if !item.parsed {
		var err error
		if f, err = sess.Parse(item.raw); err != nil {
			log.Debugf("live: dropped line: %v", err)
			return
		}
	}
	f = transport.MergeFix(f, r.rx)

	if r.rec != nil {
		if err := r.rec.Write(f, item.at); err != nil {
			log.Warnf("live: record error: %v", err)
		}
	}
	if err := sess.Process(f); err != nil {
		log.Debugf("live: dropped frame: %v", err)
	}

	r.processed++
	if r.state != nil && r.processed%snapshotEvery == 0 {
		r.state.SetSummary(sess.Snapshot())
	}
}

// RunLive ingests the configured input until ctx is cancelled, fanning
// events out to the web server, MQTT and the session database.
func RunLive(ctx context.Context) error {
	cfg := config.Get()
	if err := cfg.RequireInput(); err != nil {
		return err
	}

	var rx *gps.Receiver
	if cfg.GPSSerialPort != "" {
		r, closer, err := startGPSReceiver(cfg.GPSSerialPort, cfg.GPSBaudRate)
		if err != nil {
			return fmt.Errorf("gps receiver: %w", err)
		}
		defer closer.Close()
		rx = r
	}

	fd, err := openFeed(cfg)
	if err != nil {
		return err
	}
	defer fd.Close()

	state := NewLiveState()
	hub := NewHub(wsSampleEvery)
	sinks := []pipeline.Sink{state, hub}

	if cfg.MQTTBroker != "" {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDLive, "live")
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		sinks = append(sinks, NewMQTTSink(client, topicsFromConfig(cfg)))
	}

	var ss sessionStore
	if cfg.DatabasePath != "" {
		st, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close()
		ss = st
		sinks = append(sinks, store.NewSink(st))
		log.Infof("live: saving sessions to %s", cfg.DatabasePath)
	}

	var rec *transport.Recorder
	if cfg.RecordRawFrames {
		r, path, err := transport.CreateLogFile(cfg.OutputDir, time.Now())
		if err != nil {
			return err
		}
		defer r.Close()
		rec = r
		log.Infof("live: recording raw frames to %s", path)
	}

	if cfg.WebServerPort > 0 {
		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", cfg.WebServerPort),
			Handler: NewWebHandler(state, hub, ss, WebOptions{
				Timeline: render.TimelineOptions{
					Title:          "Feature timeline",
					VarThreshold:   cfg.VarThreshold,
					PitchThreshold: cfg.PitchThreshold,
				},
				ZoneRadius: render.ZoneRadius{Scale: cfg.ZoneRadiusScale, Min: cfg.ZoneMinRadius},
			}),
		}
		go func() {
			log.Infof("web: listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("web: server error: %v", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(sctx)
		}()
	}

	r := &liveRunner{
		opts:  pipeline.OptionsFromConfig(cfg),
		feed:  fd,
		rx:    rx,
		rec:   rec,
		state: state,
		sinks: sinks,
		probe: probeReadings,
	}
	sum, err := r.run(ctx)
	if sum.ID != "" {
		log.Infof("live: session %s closed: %d samples, %d stair / %d ramp zones, %d frames dropped (%d malformed, %d out of bounds)",
			sum.ID, sum.Samples, sum.StairZones, sum.RampZones,
			sum.Frames.Dropped(), sum.Frames.Malformed, sum.Frames.OutOfBounds)
	}
	return err
}
