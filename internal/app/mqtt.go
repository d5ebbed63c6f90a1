package app

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/mobility_mapper/internal/config"
	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/log"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

const publishTimeout = 2 * time.Second

// connectMQTT connects a client to the configured broker.
func connectMQTT(broker, clientID, component string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	log.Infof("%s: connected to MQTT broker at %s", component, broker)
	return client, nil
}

// Topics names the MQTT topic of each event type.
type Topics struct {
	Samples  string
	Features string
	Zones    string
	Gait     string
	Summary  string
}

func topicsFromConfig(cfg *config.Config) Topics {
	return Topics{
		Samples:  cfg.TopicSamples,
		Features: cfg.TopicFeatures,
		Zones:    cfg.TopicZones,
		Gait:     cfg.TopicGait,
		Summary:  cfg.TopicSummary,
	}
}

// publisher is the part of mqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes session events as JSON. Samples and features are
// fire-and-forget; zones, gait and the summary wait for the broker and
// are retained so late subscribers see the latest.
type MQTTSink struct {
	client publisher
	topics Topics

	mu     sync.Mutex
	errors int
}

func NewMQTTSink(client publisher, topics Topics) *MQTTSink {
	return &MQTTSink{client: client, topics: topics}
}

func (m *MQTTSink) publish(topic string, v interface{}, wait bool) {
	if topic == "" {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Warnf("live: %s marshal error: %v", topic, err)
		return
	}

	token := m.client.Publish(topic, 0, wait, payload)
	if !wait {
		return
	}
	if !token.WaitTimeout(publishTimeout) {
		m.failed(topic, fmt.Errorf("timeout after %s", publishTimeout))
		return
	}
	if err := token.Error(); err != nil {
		m.failed(topic, err)
	}
}

func (m *MQTTSink) failed(topic string, err error) {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
	log.Warnf("live: publish %s error: %v", topic, err)
}

// Errors is the number of failed confirmed publishes.
func (m *MQTTSink) Errors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors
}

// samplePayload adds the coordinate frame a bare sample's JSON leaves out.
type samplePayload struct {
	position.CorrectedSample
	Coord string `json:"coord"`
}

func (p samplePayload) coord() position.CoordFrame {
	if p.Coord == position.Local.String() {
		return position.Local
	}
	return position.Geographic
}

func (m *MQTTSink) OnSample(cs position.CorrectedSample) {
	m.publish(m.topics.Samples, samplePayload{cs, cs.Coord.String()}, false)
}

func (m *MQTTSink) OnFeature(fw features.FeatureWindow) { m.publish(m.topics.Features, fw, false) }
func (m *MQTTSink) OnZone(z zones.Zone)                 { m.publish(m.topics.Zones, z, true) }

func (m *MQTTSink) OnSummary(sum pipeline.Summary) {
	if sum.Gait != nil {
		m.publish(m.topics.Gait, sum.Gait, true)
	}
	m.publish(m.topics.Summary, sum, true)
}
