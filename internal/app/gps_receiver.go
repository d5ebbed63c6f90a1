package app

import (
	"io"

	"github.com/relabs-tech/mobility_mapper/internal/gps"
	"github.com/relabs-tech/mobility_mapper/internal/log"
	"github.com/relabs-tech/mobility_mapper/internal/transport"
)

// startGPSReceiver opens the NMEA receiver on the serial port and keeps
// the returned receiver updated from a background goroutine until the
// port is closed.
func startGPSReceiver(port string, baud int) (*gps.Receiver, io.Closer, error) {
	src, err := transport.OpenSerialSource(port, baud)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("gps: serial port opened on %s at %d baud", port, baud)

	rx := gps.NewReceiver()
	go func() {
		if err := transport.FeedNMEA(src, rx); err != nil {
			log.Warnf("gps: read error: %v", err)
		}
		log.Infof("gps: reader stopped")
	}()
	return rx, src, nil
}
