package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/gps"
	"github.com/relabs-tech/mobility_mapper/internal/imu"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/transport"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

type fakeFeed struct {
	items  []feedItem
	err    error // returned once items run out, io.EOF if nil
	closed atomic.Bool
}

func linesFeed(lines ...string) *fakeFeed {
	f := &fakeFeed{}
	for _, l := range lines {
		f.items = append(f.items, feedItem{raw: l})
	}
	return f
}

func (f *fakeFeed) next() (feedItem, error) {
	if len(f.items) == 0 {
		if f.err != nil {
			return feedItem{}, f.err
		}
		return feedItem{}, io.EOF
	}
	it := f.items[0]
	f.items = f.items[1:]
	return it, nil
}

func (f *fakeFeed) Close() error {
	f.closed.Store(true)
	return nil
}

func liveOptions(mode position.Mode) pipeline.Options {
	return pipeline.Options{
		Mode:       mode,
		Position:   position.DefaultOptions(),
		Bounds:     gps.DefaultBounds(),
		WindowSize: 10,
		StepSize:   5,
		Zones:      zones.Params{VarThreshold: 0.05, PitchThreshold: 0.2, MinPoints: 3},
		Gait:       gait.MethodOff,
	}
}

func seoulLine(i int) string {
	return fmt.Sprintf("%.6f,%.6f,0.01,0,1,0,0,0,0,0,0", 37.5665+float64(i)*1e-5, 126.978+float64(i)*1e-5)
}

func TestLiveProbePicksGPS(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, seoulLine(i))
		if i == 2 {
			lines = append(lines, "garbage")
		}
	}
	state := NewLiveState()
	col := &pipeline.Collector{}
	r := &liveRunner{
		opts:  liveOptions(position.ModeAuto),
		feed:  linesFeed(lines...),
		state: state,
		sinks: []pipeline.Sink{state, col},
		probe: 5,
	}

	sum, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, position.ModeGPS, sum.Mode)
	assert.Equal(t, 20, sum.Frames.Accepted)
	assert.Equal(t, 1, sum.Frames.Malformed)
	assert.Equal(t, 20, sum.Samples)
	assert.Len(t, col.Samples, 20)
	assert.Equal(t, 20, r.processed)

	st := state.Status()
	assert.Equal(t, position.ModeGPS, st.Mode)
	assert.Equal(t, position.Geographic, st.Coord)
	got, ok := state.Summary()
	require.True(t, ok)
	assert.Equal(t, sum.ID, got.ID)
}

func TestLiveProbePicksPDR(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, "0,0,0,0,1,0,0,0,0,0,0")
	}
	r := &liveRunner{
		opts:  liveOptions(position.ModeAuto),
		feed:  linesFeed(lines...),
		sinks: []pipeline.Sink{pipeline.NopSink{}},
		probe: 50,
	}

	// fewer readings than the probe: the mode is chosen at stream end
	sum, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, position.ModePDR, sum.Mode)
	assert.Equal(t, 30, sum.Frames.Accepted)
	assert.Equal(t, 30, sum.Samples)
}

func TestLiveFixedModeRecordsFrames(t *testing.T) {
	var buf bytes.Buffer
	rec, err := transport.NewRecorder(&buf)
	require.NoError(t, err)

	r := &liveRunner{
		opts:  liveOptions(position.ModeGPS),
		feed:  linesFeed(seoulLine(0), "1,2,3", seoulLine(1), seoulLine(2)),
		rec:   rec,
		probe: 50,
	}
	sum, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Frames.Accepted)
	assert.Equal(t, 1, sum.Frames.Malformed)

	rows := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, rows, 4)
	assert.True(t, strings.HasPrefix(rows[0], "lat,lon,ax"))
	assert.True(t, strings.HasPrefix(rows[1], "37.5665,126.978,"))
}

func TestLiveReceiverFillsMissingFix(t *testing.T) {
	rx := gps.NewReceiver()
	require.True(t, rx.Feed("$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70"))

	opts := liveOptions(position.ModeAuto)
	opts.Bounds = gps.Bounds{LatMin: 50, LatMax: 53, LonMin: -2, LonMax: 1}

	col := &pipeline.Collector{}
	fd := &fakeFeed{}
	for i := 0; i < 5; i++ {
		fd.items = append(fd.items, feedItem{frame: imu.RawFrame{Az: 1}, parsed: true})
	}
	r := &liveRunner{opts: opts, feed: fd, rx: rx, sinks: []pipeline.Sink{col}, probe: 50}

	sum, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, position.ModeGPS, sum.Mode)
	assert.Equal(t, 5, sum.Frames.Accepted)
	require.Len(t, col.Samples, 5)
	assert.InDelta(t, 51.563667, col.Samples[0].Frame.Lat, 1e-5)
}

func TestLiveNoFrames(t *testing.T) {
	r := &liveRunner{
		opts:  liveOptions(position.ModeAuto),
		feed:  linesFeed(),
		probe: 5,
	}
	_, err := r.run(context.Background())
	assert.ErrorContains(t, err, "no frames received")
}

func TestLiveReadErrorReturnedAfterClose(t *testing.T) {
	fd := linesFeed(seoulLine(0), seoulLine(1))
	fd.err = errors.New("port unplugged")
	col := &pipeline.Collector{}
	r := &liveRunner{opts: liveOptions(position.ModeGPS), feed: fd, sinks: []pipeline.Sink{col}, probe: 5}

	sum, err := r.run(context.Background())
	assert.ErrorContains(t, err, "port unplugged")
	assert.Equal(t, 2, sum.Samples)
	require.NotNil(t, col.Summary)
}

func TestLiveCancelClosesFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fd := linesFeed(seoulLine(0))
	r := &liveRunner{opts: liveOptions(position.ModeGPS), feed: fd, probe: 5}
	sum, err := r.run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Samples)
	assert.Eventually(t, fd.closed.Load, time.Second, 5*time.Millisecond)
}
