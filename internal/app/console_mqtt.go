package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/mobility_mapper/internal/config"
	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/log"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// subscribeJSON subscribes to topic and decodes each message into T
// before calling handle. An empty topic is skipped.
func subscribeJSON[T any](client mqtt.Client, topic, component string, handle func(T)) error {
	if topic == "" {
		return nil
	}
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.Warnf("%s: %s unmarshal error: %v", component, topic, err)
			return
		}
		handle(v)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	log.Infof("%s: subscribed to %s", component, topic)
	return nil
}

// RunConsoleMQTT prints zone, gait, feature and summary events from the
// broker until interrupted.
func RunConsoleMQTT() error {
	cfg := config.Get()
	if err := cfg.RequireMQTT(); err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, "console")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeJSON(client, cfg.TopicFeatures, "console", func(fw features.FeatureWindow) {
		fmt.Println(formatFeature(fw))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicZones, "console", func(z zones.Zone) {
		fmt.Println(formatZone(z))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicGait, "console", func(g gait.Result) {
		fmt.Println(formatGait(g))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicSummary, "console", func(sum pipeline.Summary) {
		fmt.Println(formatSummary(sum))
	}); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Infof("console: shutting down")
	return nil
}

func formatFeature(fw features.FeatureWindow) string {
	return fmt.Sprintf("[FEAT] #%-5d samples %d-%d  var=%.4f  pitch=%.4f  pos=(%.6f, %.6f)",
		fw.Index, fw.StartSample, fw.EndSample, fw.VerticalVariance, fw.MeanAbsPitch, fw.Position.X, fw.Position.Y)
}

func formatZone(z zones.Zone) string {
	return fmt.Sprintf("[ZONE] %-15s at (%.6f, %.6f)  points=%d  max_var=%.4f  avg_pitch=%.4f  samples %d-%d",
		z.Kind.Label(), z.Center.X, z.Center.Y, z.MemberCount, z.MaxVariance, z.MeanPitch, z.FirstSample, z.LastSample)
}

func formatGait(g gait.Result) string {
	s := fmt.Sprintf("[GAIT] %s  steps=%d  cadence=%.1f spm  over %.1fs", g.Method, g.Steps, g.Cadence, g.Elapsed)
	if g.MeanContact > 0 {
		s += fmt.Sprintf("  contact=%.3f±%.3fs", g.MeanContact, g.StdContact)
	}
	return s
}

func formatSummary(sum pipeline.Summary) string {
	return fmt.Sprintf("[SUM ] %s %s  frames=%d dropped=%d  samples=%d  stairs=%d ramps=%d",
		sum.ID, sum.Mode, sum.Frames.Accepted, sum.Frames.Dropped(), sum.Samples, sum.StairZones, sum.RampZones)
}
