package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

type fakeToken struct {
	timeout bool
	err     error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu    sync.Mutex
	msgs  []published
	token fakeToken
}

func (p *fakePublisher) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic, retained, payload.([]byte)})
	return p.token
}

var testTopics = Topics{
	Samples:  "m/samples",
	Features: "m/features",
	Zones:    "m/zones",
	Gait:     "m/gait",
	Summary:  "m/summary",
}

func TestMQTTSinkTopics(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewMQTTSink(pub, testTopics)

	sink.OnSample(position.CorrectedSample{Index: 3, Position: position.Position{X: 1, Y: 2}, Coord: position.Local})
	sink.OnFeature(features.FeatureWindow{Index: 1})
	sink.OnZone(zones.Zone{Kind: zones.Stair, MemberCount: 3})
	sink.OnSummary(pipeline.Summary{ID: "s", Gait: &gait.Result{Method: gait.MethodZUPT, Steps: 4}})

	require.Len(t, pub.msgs, 5)
	var topics []string
	for _, m := range pub.msgs {
		topics = append(topics, m.topic)
	}
	assert.Equal(t, []string{"m/samples", "m/features", "m/zones", "m/gait", "m/summary"}, topics)
	assert.False(t, pub.msgs[0].retained)
	assert.False(t, pub.msgs[1].retained)
	assert.True(t, pub.msgs[2].retained)
	assert.True(t, pub.msgs[3].retained)
	assert.True(t, pub.msgs[4].retained)

	var sp samplePayload
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &sp))
	assert.Equal(t, 3, sp.Index)
	assert.Equal(t, "local", sp.Coord)
	assert.Equal(t, position.Local, sp.coord())

	var z zones.Zone
	require.NoError(t, json.Unmarshal(pub.msgs[2].payload, &z))
	assert.Equal(t, zones.Stair, z.Kind)
	assert.Equal(t, 0, sink.Errors())
}

func TestMQTTSinkSkipsEmptyTopics(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewMQTTSink(pub, Topics{Summary: "m/summary"})

	sink.OnSample(position.CorrectedSample{})
	sink.OnZone(zones.Zone{})
	sink.OnSummary(pipeline.Summary{ID: "s"})

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "m/summary", pub.msgs[0].topic)
}

func TestMQTTSinkCountsFailures(t *testing.T) {
	pub := &fakePublisher{token: fakeToken{timeout: true}}
	sink := NewMQTTSink(pub, testTopics)
	sink.OnSample(position.CorrectedSample{})
	sink.OnZone(zones.Zone{})
	assert.Equal(t, 1, sink.Errors())

	pub.token = fakeToken{err: errors.New("not connected")}
	sink.OnSummary(pipeline.Summary{})
	assert.Equal(t, 2, sink.Errors())
}
