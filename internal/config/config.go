package config

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/gps"
	"github.com/relabs-tech/mobility_mapper/internal/orientation"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// Config holds all application configuration values.
type Config struct {
	// Feature windows and zone clustering
	WindowSize         int
	StepSize           int
	MinPointsInCluster int
	VarThreshold       float64 // g²
	PitchThreshold     float64 // radians
	ZoneRadiusScale    float64 // metres per member window
	ZoneMinRadius      float64 // metres

	// Sensor mounting
	MountForwardAxis  orientation.Axis
	MountLateralAxis  orientation.Axis
	MountVerticalAxis orientation.Axis

	// Position correction
	PositionMode      position.Mode
	KalmanR           float64
	KalmanQ           float64
	SamplingPeriod    float64 // seconds
	PDRStepLength     float64 // metres
	PDRPeakProminence float64 // g
	PDRMinStepPeriod  float64 // seconds
	PDRSmoothWindow   int     // samples
	PDRInitialHeading float64 // degrees, 0 = +X
	PDRMaxPending     int     // samples

	// Gait
	GaitMode          gait.Method
	ZUPTGyroThreshold float64 // deg/s
	ZUPTSmoothWindow  int     // samples
	GaitPeakHeight    float64 // g
	GaitMinStepPeriod float64 // seconds

	// GPS validity box
	Bounds gps.Bounds

	// Input: "udp", "tcp", "serial", "imu" or "sim"
	Input          string
	UDPListenAddr  string
	TCPListenAddr  string
	SerialPort     string
	SerialBaudRate int

	// GPS receiver attached to the wearable
	GPSSerialPort string
	GPSBaudRate   int

	// IMU Hardware
	IMUSPIDevice      string
	IMUCSPin          string
	IMUSampleInterval int // milliseconds

	// MQTT
	MQTTBroker          string
	MQTTClientIDLive    string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string

	// Topics
	TopicSamples  string
	TopicFeatures string
	TopicZones    string
	TopicGait     string
	TopicSummary  string

	// Web Server
	WebServerPort int

	// Output
	DatabasePath    string
	OutputDir       string
	RecordRawFrames bool

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds

	LogDebug bool
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the chest-mount tuning with local transports.
func Default() *Config {
	return &Config{
		WindowSize:         20,
		StepSize:           10,
		MinPointsInCluster: 3,
		VarThreshold:       0.03,
		PitchThreshold:     0.2,
		ZoneRadiusScale:    1,
		ZoneMinRadius:      5,

		MountForwardAxis:  orientation.AxisX,
		MountLateralAxis:  orientation.AxisY,
		MountVerticalAxis: orientation.AxisZ,

		PositionMode:      position.ModeAuto,
		KalmanR:           20,
		KalmanQ:           0.01,
		SamplingPeriod:    0.02,
		PDRStepLength:     0.65,
		PDRPeakProminence: 0.15,
		PDRMinStepPeriod:  0.4,
		PDRSmoothWindow:   5,
		PDRMaxPending:     500,

		GaitMode:          gait.MethodZUPT,
		ZUPTGyroThreshold: 20,
		ZUPTSmoothWindow:  5,
		GaitPeakHeight:    1.2,
		GaitMinStepPeriod: 0.3,

		Bounds: gps.DefaultBounds(),

		Input:          "udp",
		UDPListenAddr:  ":9000",
		TCPListenAddr:  ":9001",
		SerialBaudRate: 115200,
		GPSBaudRate:    9600,

		IMUSampleInterval: 20,

		MQTTClientIDLive:    "mobility-live",
		MQTTClientIDConsole: "mobility-console",
		MQTTClientIDDisplay: "mobility-display",

		TopicSamples:  "mobility/samples",
		TopicFeatures: "mobility/features",
		TopicZones:    "mobility/zones",
		TopicGait:     "mobility/gait",
		TopicSummary:  "mobility/summary",

		WebServerPort: 8080,
		OutputDir:     ".",

		DisplayI2CBus:         "",
		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default().
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be finite, got %q", key, value)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Feature windows and zone clustering
	case "WINDOW_SIZE":
		c.WindowSize, err = parseInt(key, value)
	case "STEP_SIZE":
		c.StepSize, err = parseInt(key, value)
	case "MIN_POINTS_IN_CLUSTER":
		c.MinPointsInCluster, err = parseInt(key, value)
	case "VAR_THRESHOLD":
		c.VarThreshold, err = parseFloat(key, value)
	case "PITCH_THRESHOLD":
		c.PitchThreshold, err = parseFloat(key, value)
	case "ZONE_RADIUS_SCALE":
		c.ZoneRadiusScale, err = parseFloat(key, value)
	case "ZONE_MIN_RADIUS":
		c.ZoneMinRadius, err = parseFloat(key, value)

	// Sensor mounting
	case "MOUNT_FORWARD_AXIS":
		c.MountForwardAxis, err = orientation.ParseAxis(value)
	case "MOUNT_LATERAL_AXIS":
		c.MountLateralAxis, err = orientation.ParseAxis(value)
	case "MOUNT_VERTICAL_AXIS":
		c.MountVerticalAxis, err = orientation.ParseAxis(value)

	// Position correction
	case "POSITION_MODE":
		c.PositionMode, err = position.ParseMode(value)
	case "KALMAN_R":
		c.KalmanR, err = parseFloat(key, value)
	case "KALMAN_Q":
		c.KalmanQ, err = parseFloat(key, value)
	case "SAMPLING_PERIOD":
		c.SamplingPeriod, err = parseFloat(key, value)
	case "PDR_STEP_LENGTH":
		c.PDRStepLength, err = parseFloat(key, value)
	case "PDR_PEAK_PROMINENCE":
		c.PDRPeakProminence, err = parseFloat(key, value)
	case "PDR_MIN_STEP_PERIOD":
		c.PDRMinStepPeriod, err = parseFloat(key, value)
	case "PDR_SMOOTH_WINDOW":
		c.PDRSmoothWindow, err = parseInt(key, value)
	case "PDR_INITIAL_HEADING":
		c.PDRInitialHeading, err = parseFloat(key, value)
	case "PDR_MAX_PENDING":
		c.PDRMaxPending, err = parseInt(key, value)

	// Gait
	case "GAIT_MODE":
		c.GaitMode, err = gait.ParseMethod(value)
	case "ZUPT_GYRO_THRESHOLD":
		c.ZUPTGyroThreshold, err = parseFloat(key, value)
	case "ZUPT_SMOOTH_WINDOW":
		c.ZUPTSmoothWindow, err = parseInt(key, value)
	case "GAIT_PEAK_HEIGHT":
		c.GaitPeakHeight, err = parseFloat(key, value)
	case "GAIT_MIN_STEP_PERIOD":
		c.GaitMinStepPeriod, err = parseFloat(key, value)

	// GPS validity box
	case "BOUNDS_LAT_MIN":
		c.Bounds.LatMin, err = parseFloat(key, value)
	case "BOUNDS_LAT_MAX":
		c.Bounds.LatMax, err = parseFloat(key, value)
	case "BOUNDS_LON_MIN":
		c.Bounds.LonMin, err = parseFloat(key, value)
	case "BOUNDS_LON_MAX":
		c.Bounds.LonMax, err = parseFloat(key, value)

	// Input
	case "INPUT":
		switch v := strings.ToLower(value); v {
		case "udp", "tcp", "serial", "imu", "sim":
			c.Input = v
		default:
			return fmt.Errorf("INPUT must be udp, tcp, serial, imu or sim, got %q", value)
		}
	case "UDP_LISTEN_ADDR":
		c.UDPListenAddr = value
	case "TCP_LISTEN_ADDR":
		c.TCPListenAddr = value
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_SAMPLE_INTERVAL":
		c.IMUSampleInterval, err = parseInt(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_LIVE":
		c.MQTTClientIDLive = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_SAMPLES":
		c.TopicSamples = value
	case "TOPIC_FEATURES":
		c.TopicFeatures = value
	case "TOPIC_ZONES":
		c.TopicZones = value
	case "TOPIC_GAIT":
		c.TopicGait = value
	case "TOPIC_SUMMARY":
		c.TopicSummary = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	// Output
	case "DATABASE_PATH":
		c.DatabasePath = value
	case "OUTPUT_DIR":
		c.OutputDir = value
	case "RECORD_RAW_FRAMES":
		c.RecordRawFrames, err = parseBool(key, value)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)

	case "LOG_DEBUG":
		c.LogDebug, err = parseBool(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks ranges and cross-field consistency.
func (c *Config) validate() error {
	if c.WindowSize < 2 {
		return fmt.Errorf("WINDOW_SIZE must be at least 2, got %d", c.WindowSize)
	}
	if c.StepSize < 1 {
		return fmt.Errorf("STEP_SIZE must be positive, got %d", c.StepSize)
	}
	if c.MinPointsInCluster < 1 {
		return fmt.Errorf("MIN_POINTS_IN_CLUSTER must be positive, got %d", c.MinPointsInCluster)
	}
	if c.VarThreshold < 0 || c.PitchThreshold < 0 {
		return fmt.Errorf("VAR_THRESHOLD and PITCH_THRESHOLD must not be negative")
	}
	if c.ZoneRadiusScale < 0 || c.ZoneMinRadius < 0 {
		return fmt.Errorf("ZONE_RADIUS_SCALE and ZONE_MIN_RADIUS must not be negative")
	}
	if err := c.Mounting().Validate(); err != nil {
		return fmt.Errorf("MOUNT_*_AXIS: %w", err)
	}
	if c.KalmanR <= 0 || c.KalmanQ <= 0 {
		return fmt.Errorf("KALMAN_R and KALMAN_Q must be positive")
	}
	if c.SamplingPeriod <= 0 {
		return fmt.Errorf("SAMPLING_PERIOD must be positive, got %v", c.SamplingPeriod)
	}
	if c.PDRStepLength <= 0 {
		return fmt.Errorf("PDR_STEP_LENGTH must be positive, got %v", c.PDRStepLength)
	}
	if c.PDRMinStepPeriod < c.SamplingPeriod {
		return fmt.Errorf("PDR_MIN_STEP_PERIOD must be at least one SAMPLING_PERIOD")
	}
	if c.PDRSmoothWindow < 1 || c.ZUPTSmoothWindow < 1 {
		return fmt.Errorf("PDR_SMOOTH_WINDOW and ZUPT_SMOOTH_WINDOW must be positive")
	}
	if c.PDRMaxPending < 0 {
		return fmt.Errorf("PDR_MAX_PENDING must not be negative")
	}
	if err := c.Bounds.Validate(); err != nil {
		return fmt.Errorf("BOUNDS_*: %w", err)
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT out of range: %d", c.WebServerPort)
	}
	return nil
}

// RequireInput checks the keys the selected INPUT needs.
func (c *Config) RequireInput() error {
	switch c.Input {
	case "udp":
		if c.UDPListenAddr == "" {
			return fmt.Errorf("UDP_LISTEN_ADDR is required for INPUT=udp")
		}
	case "tcp":
		if c.TCPListenAddr == "" {
			return fmt.Errorf("TCP_LISTEN_ADDR is required for INPUT=tcp")
		}
	case "serial":
		if c.SerialPort == "" || c.SerialBaudRate == 0 {
			return fmt.Errorf("SERIAL_PORT and SERIAL_BAUD_RATE are required for INPUT=serial")
		}
	case "imu":
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for INPUT=imu")
		}
		if c.IMUSampleInterval <= 0 {
			return fmt.Errorf("IMU_SAMPLE_INTERVAL must be positive for INPUT=imu")
		}
	case "sim":
		if c.IMUSampleInterval <= 0 {
			return fmt.Errorf("IMU_SAMPLE_INTERVAL must be positive for INPUT=sim")
		}
	default:
		return fmt.Errorf("unknown INPUT %q", c.Input)
	}
	return nil
}

// RequireMQTT checks the keys the MQTT subscribers need.
func (c *Config) RequireMQTT() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	return nil
}

// RequireDisplay checks the keys the status panel needs.
func (c *Config) RequireDisplay() error {
	if err := c.RequireMQTT(); err != nil {
		return err
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	return nil
}

// Mounting returns the configured sensor axis mapping.
func (c *Config) Mounting() orientation.Mounting {
	return orientation.Mounting{
		Forward:  c.MountForwardAxis,
		Lateral:  c.MountLateralAxis,
		Vertical: c.MountVerticalAxis,
	}
}

// PositionOptions returns the corrector tunables.
func (c *Config) PositionOptions() position.Options {
	return position.Options{
		KalmanR:        c.KalmanR,
		KalmanQ:        c.KalmanQ,
		SamplingPeriod: c.SamplingPeriod,
		StepLength:     c.PDRStepLength,
		PeakProminence: c.PDRPeakProminence,
		MinStepPeriod:  c.PDRMinStepPeriod,
		SmoothWindow:   c.PDRSmoothWindow,
		InitialHeading: c.PDRInitialHeading * math.Pi / 180,
		MaxPending:     c.PDRMaxPending,
		Mounting:       c.Mounting(),
	}
}

// GaitOptions returns the gait analyzer tunables.
func (c *Config) GaitOptions() gait.Options {
	return gait.Options{
		SamplingPeriod: c.SamplingPeriod,
		Mounting:       c.Mounting(),
		GyroThreshold:  c.ZUPTGyroThreshold,
		SmoothWindow:   c.ZUPTSmoothWindow,
		PeakHeight:     c.GaitPeakHeight,
		MinStepPeriod:  c.GaitMinStepPeriod,
	}
}

// ZoneParams returns the classifier thresholds.
func (c *Config) ZoneParams() zones.Params {
	return zones.Params{
		VarThreshold:   c.VarThreshold,
		PitchThreshold: c.PitchThreshold,
		MinPoints:      c.MinPointsInCluster,
	}
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
