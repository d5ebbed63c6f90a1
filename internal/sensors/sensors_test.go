package sensors

import (
	"errors"
	"testing"
	"time"

	"github.com/relabs-tech/mobility_mapper/internal/dsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMPU struct {
	c    Counts
	fail bool
}

func (f *fakeMPU) GetAccelerationX() (int16, error) { return f.c.Ax, nil }
func (f *fakeMPU) GetAccelerationY() (int16, error) { return f.c.Ay, nil }
func (f *fakeMPU) GetAccelerationZ() (int16, error) { return f.c.Az, nil }
func (f *fakeMPU) GetRotationX() (int16, error)     { return f.c.Gx, nil }
func (f *fakeMPU) GetRotationY() (int16, error)     { return f.c.Gy, nil }
func (f *fakeMPU) GetRotationZ() (int16, error) {
	if f.fail {
		return 0, errors.New("spi timeout")
	}
	return f.c.Gz, nil
}

func TestCountsFrame(t *testing.T) {
	f := Counts{Ax: 8192, Az: 16384, Gy: -262, Gz: 131}.Frame()
	assert.Equal(t, 0.5, f.Ax)
	assert.Equal(t, 1.0, f.Az)
	assert.Equal(t, -2.0, f.Gy)
	assert.Equal(t, 1.0, f.Gz)
	assert.False(t, f.HasGPS())
}

func TestWearableNext(t *testing.T) {
	dev := &fakeMPU{c: Counts{Az: 16384, Gz: 1310}}
	w := newWearable(dev, 0)

	f, err := w.Next()
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.Az)
	assert.Equal(t, 10.0, f.Gz)
	assert.Equal(t, 1, w.Reads())

	dev.fail = true
	_, err = w.Next()
	assert.ErrorContains(t, err, "gyro Z")
	assert.Equal(t, 1, w.Reads())
}

func TestPacerSpacesReads(t *testing.T) {
	now := time.Unix(0, 0)
	var slept []time.Duration
	p := newPacer(20 * time.Millisecond)
	p.now = func() time.Time { return now }
	p.sleep = func(d time.Duration) { slept = append(slept, d); now = now.Add(d) }

	p.wait()
	now = now.Add(5 * time.Millisecond)
	p.wait()
	assert.Equal(t, []time.Duration{15 * time.Millisecond}, slept)

	// far behind: restart instead of catching up
	now = now.Add(time.Second)
	p.wait()
	assert.Len(t, slept, 1)
}

func TestSimulatedWalkHasSteps(t *testing.T) {
	opts := DefaultSimOptions()
	s := NewSimulated(opts, 0)

	az := make([]float64, 500) // 10 s of flat walking
	for i := range az {
		f, err := s.Next()
		require.NoError(t, err)
		az[i] = f.Az
		assert.False(t, f.HasGPS())
	}
	peaks := dsp.FindPeaks(dsp.Smooth(az, 5), dsp.PeakOptions{Height: 1, Prominence: 0.15, Distance: 20})
	assert.Len(t, peaks, 19)
}

func TestSimulatedGPSTrack(t *testing.T) {
	opts := DefaultSimOptions()
	opts.OriginLat, opts.OriginLon = 37.5, 127.0
	s := NewSimulated(opts, 0)

	var last float64
	for i := 0; i < 100; i++ {
		f, err := s.Next()
		require.NoError(t, err)
		require.True(t, f.HasGPS())
		last = f.Lat
	}
	// 2 s north at 1.3 m/s
	assert.InDelta(t, 37.5+2.6/metresPerDegree, last, 1e-9)
}
