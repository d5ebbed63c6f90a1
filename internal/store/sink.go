package store

import (
	"context"
	"sync"
	"time"

	"github.com/relabs-tech/mobility_mapper/internal/log"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

const saveTimeout = 10 * time.Second

// Sink saves a session when its summary arrives. Zones are buffered until
// then.
type Sink struct {
	pipeline.NopSink

	store *Store

	mu    sync.Mutex
	zones []zones.Zone
	err   error
}

func NewSink(s *Store) *Sink { return &Sink{store: s} }

func (k *Sink) OnZone(z zones.Zone) {
	k.mu.Lock()
	k.zones = append(k.zones, z)
	k.mu.Unlock()
}

func (k *Sink) OnSummary(sum pipeline.Summary) {
	k.mu.Lock()
	zs := k.zones
	k.zones = nil
	k.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	err := k.store.SaveSession(ctx, sum, zs)
	if err != nil {
		log.Errorf("store: save session %s: %v", sum.ID, err)
	} else {
		log.Infof("store: saved session %s (%d zones)", sum.ID, len(zs))
	}

	k.mu.Lock()
	k.err = err
	k.mu.Unlock()
}

// Err returns the result of the last save.
func (k *Sink) Err() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.err
}
