package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/validate"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSummary(id string, started time.Time) pipeline.Summary {
	return pipeline.Summary{
		ID:              id,
		Mode:            position.ModePDR,
		Started:         started,
		Ended:           started.Add(90 * time.Second),
		Frames:          validate.Stats{Accepted: 4500, Malformed: 3, OutOfBounds: 0},
		Samples:         4500,
		Windows:         449,
		StairZones:      1,
		RampZones:       1,
		SuppressedRamps: 2,
		Steps:           160,
		Gait: &gait.Result{
			Method:      gait.MethodZUPT,
			Steps:       80,
			Cadence:     106.7,
			Elapsed:     89.98,
			MeanContact: 0.62,
			StdContact:  0.05,
		},
	}
}

var testZones = []zones.Zone{
	{Kind: zones.Stair, Center: position.Position{X: 12.5, Y: -3}, MemberCount: 6, MaxVariance: 0.21, MeanPitch: 0.05, FirstSample: 1000, LastSample: 1069, CenterSample: 1035},
	{Kind: zones.Ramp, Center: position.Position{X: 40, Y: 8.25}, MemberCount: 4, MaxVariance: 0.01, MeanPitch: 0.31, FirstSample: 2000, LastSample: 2049, CenterSample: 2025},
}

func TestOpenMigratesToLatest(t *testing.T) {
	s := openTestStore(t)

	v, dirty, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), v)
	assert.False(t, dirty)

	// already current
	require.NoError(t, s.MigrateUp())

	require.NoError(t, s.MigrateDown())
	v, _, err = s.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
}

func TestSaveAndLoadSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := testSummary("a7c1", time.Date(2026, 3, 14, 9, 30, 0, 123000000, time.UTC))

	require.NoError(t, s.SaveSession(ctx, want, testZones))

	got, err := s.Session(ctx, "a7c1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	zs, err := s.Zones(ctx, "a7c1")
	require.NoError(t, err)
	assert.Equal(t, testZones, zs)
}

func TestSaveReplacesSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sum := testSummary("b2", time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.SaveSession(ctx, sum, testZones))

	sum.Gait = nil
	sum.GaitError = "gait: cannot segment"
	require.NoError(t, s.SaveSession(ctx, sum, testZones[:1]))

	got, err := s.Session(ctx, "b2")
	require.NoError(t, err)
	assert.Nil(t, got.Gait)
	assert.Equal(t, "gait: cannot segment", got.GaitError)

	zs, err := s.Zones(ctx, "b2")
	require.NoError(t, err)
	assert.Len(t, zs, 1)
}

func TestSessionNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Session(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, s.SaveSession(ctx, testSummary(id, base.Add(time.Duration(i)*time.Hour)), nil))
	}

	all, err := s.Sessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].ID)
	assert.Equal(t, "first", all[2].ID)

	two, err := s.Sessions(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestSinkSavesOnSummary(t *testing.T) {
	s := openTestStore(t)
	k := NewSink(s)

	for _, z := range testZones {
		k.OnZone(z)
	}
	sum := testSummary("live-1", time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	k.OnSummary(sum)
	require.NoError(t, k.Err())

	zs, err := s.Zones(context.Background(), "live-1")
	require.NoError(t, err)
	assert.Len(t, zs, 2)
}
