// Package config loads the node configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/home-sentinel/internal/gpio"
)

type Config struct {
	Node      NodeConfig    `yaml:"node"`
	Store     StoreConfig   `yaml:"store"`
	Link      LinkConfig    `yaml:"link"`
	NTP       NTPConfig     `yaml:"ntp"`
	HTTP      HTTPConfig    `yaml:"http"`
	Log       LogConfig     `yaml:"log"`
	GPIO      GPIOConfig    `yaml:"gpio"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	Sensors   SensorsConfig `yaml:"sensors"`
}

type NodeConfig struct {
	ID   string        `yaml:"id"`
	Tick time.Duration `yaml:"tick"`
}

type StoreConfig struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	TopicPrefix    string        `yaml:"topic_prefix"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

type LinkConfig struct {
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

type NTPConfig struct {
	Server   string `yaml:"server"`
	Disabled bool   `yaml:"disabled"`
}

// HTTPConfig configures the status server. Addr "off" disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Enabled reports whether the status server should run.
func (h HTTPConfig) Enabled() bool {
	return h.Addr != "off"
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

type GPIOConfig struct {
	Chip string `yaml:"chip"`
}

type SensorsConfig struct {
	Gas        GasConfig         `yaml:"gas"`
	Door       DoorConfig        `yaml:"door"`
	Vibration  VibrationConfig   `yaml:"vibration"`
	Proximity  []ProximityConfig `yaml:"proximity"`
	CardReader CardReaderConfig  `yaml:"card_reader"`
}

// SensorBase holds the settings shared by every sensor. A nil Enabled means
// enabled.
type SensorBase struct {
	ID       string        `yaml:"id"`
	Enabled  *bool         `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// IsEnabled reports the configured initial state.
func (s SensorBase) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

func (s *SensorBase) defaults(id string, interval time.Duration) {
	if s.ID == "" {
		s.ID = id
	}
	if s.Interval == 0 {
		s.Interval = interval
	}
}

type GasConfig struct {
	SensorBase `yaml:",inline"`
	Threshold  *float64  `yaml:"threshold"`
	Epsilon    float64   `yaml:"epsilon"`
	ADC        ADCConfig `yaml:"adc"`
}

// PPMThreshold returns the GAS_LEAK threshold. An explicit 0 alerts on any
// positive reading.
func (g GasConfig) PPMThreshold() float64 {
	if g.Threshold == nil {
		return DefaultGasThreshold
	}
	return *g.Threshold
}

// ADCConfig selects the IIO channel and the counts-to-ppm conversion.
type ADCConfig struct {
	Device     int     `yaml:"device"`
	Channel    int     `yaml:"channel"`
	Path       string  `yaml:"path"`
	FullScale  float64 `yaml:"full_scale"`
	VRef       float64 `yaml:"vref"`
	PPMPerVolt float64 `yaml:"ppm_per_volt"`
}

type DoorConfig struct {
	SensorBase     `yaml:",inline"`
	Pin            int            `yaml:"pin"`
	OpenThreshold  time.Duration  `yaml:"open_threshold"`
	LeftOpenRepeat *time.Duration `yaml:"left_open_repeat"`
	Heartbeat      time.Duration  `yaml:"heartbeat"`
	Locked         bool           `yaml:"locked"`
}

// Repeat returns the DOOR_LEFT_OPEN repeat spacing.
func (d DoorConfig) Repeat() time.Duration {
	if d.LeftOpenRepeat == nil {
		return DefaultLeftOpenRepeat
	}
	return *d.LeftOpenRepeat
}

type VibrationConfig struct {
	SensorBase `yaml:",inline"`
	Pin        int           `yaml:"pin"`
	Window     time.Duration `yaml:"window"`
	Threshold  *uint         `yaml:"threshold"`
}

// HitThreshold returns the hit count a window may reach without alerting.
// An explicit 0 alerts on the first hit.
func (v VibrationConfig) HitThreshold() uint {
	if v.Threshold == nil {
		return DefaultVibrationThreshold
	}
	return *v.Threshold
}

type ProximityConfig struct {
	SensorBase  `yaml:",inline"`
	TrigPin     int           `yaml:"trig_pin"`
	EchoPin     int           `yaml:"echo_pin"`
	ThresholdCM float64       `yaml:"threshold_cm"`
	Epsilon     float64       `yaml:"epsilon"`
	EchoTimeout time.Duration `yaml:"echo_timeout"`
}

type CardReaderConfig struct {
	SensorBase     `yaml:",inline"`
	Port           string        `yaml:"port"`
	Baud           int           `yaml:"baud"`
	Suppression    time.Duration `yaml:"suppression"`
	ReinitInterval time.Duration `yaml:"reinit_interval"`
}

// Defaults.
const (
	DefaultTick              = 100 * time.Millisecond
	DefaultHeartbeat         = 15 * time.Minute
	DefaultSensorInterval    = 5 * time.Second
	DefaultLeftOpenRepeat    = 60 * time.Second
	DefaultReconnectInterval = 30 * time.Second

	DefaultGasThreshold       = 900.0
	DefaultVibrationThreshold = 5
)

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Node.ID == "" {
		c.Node.ID = "home-sentinel"
	}
	if c.Node.Tick == 0 {
		c.Node.Tick = DefaultTick
	}
	if c.Heartbeat == 0 {
		c.Heartbeat = DefaultHeartbeat
	}

	if c.Store.Broker == "" {
		c.Store.Broker = "tcp://localhost:1883"
	}
	if c.Store.ClientID == "" {
		c.Store.ClientID = c.Node.ID
	}
	if c.Store.TopicPrefix == "" {
		c.Store.TopicPrefix = "home/" + c.Node.ID
	}
	if c.Store.ConnectTimeout == 0 {
		c.Store.ConnectTimeout = 10 * time.Second
	}
	if c.Store.PublishTimeout == 0 {
		c.Store.PublishTimeout = 3 * time.Second
	}
	if c.Link.ReconnectInterval == 0 {
		c.Link.ReconnectInterval = DefaultReconnectInterval
	}
	if c.NTP.Server == "" {
		c.NTP.Server = "pool.ntp.org"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = "gpiochip0"
	}

	s := &c.Sensors

	s.Gas.defaults("gas_sensor_1", DefaultSensorInterval)
	if s.Gas.Epsilon == 0 {
		s.Gas.Epsilon = 5
	}
	if s.Gas.ADC.FullScale == 0 {
		s.Gas.ADC.FullScale = 4095
	}
	if s.Gas.ADC.VRef == 0 {
		s.Gas.ADC.VRef = 3.3
	}
	if s.Gas.ADC.PPMPerVolt == 0 {
		s.Gas.ADC.PPMPerVolt = 1000
	}

	s.Door.defaults("door_sensor_1", 100*time.Millisecond)
	if s.Door.Pin == 0 {
		s.Door.Pin = gpio.DefaultPinDoor
	}
	if s.Door.OpenThreshold == 0 {
		s.Door.OpenThreshold = 2 * time.Second
	}
	if s.Door.Heartbeat == 0 {
		s.Door.Heartbeat = DefaultSensorInterval
	}

	s.Vibration.defaults("vibration_sensor_1", DefaultSensorInterval)
	if s.Vibration.Pin == 0 {
		s.Vibration.Pin = gpio.DefaultPinVibration
	}
	if s.Vibration.Window == 0 {
		s.Vibration.Window = 5 * time.Second
	}

	if s.Proximity == nil {
		s.Proximity = []ProximityConfig{
			{TrigPin: gpio.DefaultPinTrig1, EchoPin: gpio.DefaultPinEcho1},
			{TrigPin: gpio.DefaultPinTrig2, EchoPin: gpio.DefaultPinEcho2},
		}
	}
	for i := range s.Proximity {
		p := &s.Proximity[i]
		p.defaults(fmt.Sprintf("ultrasonic_sensor_%d", i+1), DefaultSensorInterval)
		if p.ThresholdCM == 0 {
			p.ThresholdCM = 20
		}
		if p.Epsilon == 0 {
			p.Epsilon = 1
		}
		if p.EchoTimeout == 0 {
			p.EchoTimeout = 30 * time.Millisecond
		}
	}

	s.CardReader.defaults("nfc_reader_1", 200*time.Millisecond)
	if s.CardReader.Port == "" {
		s.CardReader.Port = "/dev/ttyUSB0"
	}
	if s.CardReader.Baud == 0 {
		s.CardReader.Baud = 9600
	}
	if s.CardReader.Suppression == 0 {
		s.CardReader.Suppression = time.Second
	}
	if s.CardReader.ReinitInterval == 0 {
		s.CardReader.ReinitInterval = c.Link.ReconnectInterval
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Node.Tick <= 0 {
		errs = append(errs, errors.New("node.tick must be positive"))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, errors.New("heartbeat must not be negative"))
	}
	if !strings.Contains(c.Store.Broker, "://") {
		errs = append(errs, fmt.Errorf("store.broker %q must include a scheme", c.Store.Broker))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	s := c.Sensors
	seen := make(map[string]bool)
	for _, b := range c.sensorBases() {
		if seen[b.ID] {
			errs = append(errs, fmt.Errorf("duplicate sensor id %q", b.ID))
		}
		seen[b.ID] = true
		if b.Interval <= 0 {
			errs = append(errs, fmt.Errorf("sensor %s: interval must be positive", b.ID))
		}
	}
	if s.Gas.PPMThreshold() < 0 {
		errs = append(errs, errors.New("sensors.gas.threshold must not be negative"))
	}
	if s.CardReader.ReinitInterval < 0 {
		errs = append(errs, errors.New("sensors.card_reader.reinit_interval must not be negative"))
	}
	if s.Door.LeftOpenRepeat != nil && *s.Door.LeftOpenRepeat < 0 {
		errs = append(errs, errors.New("sensors.door.left_open_repeat must not be negative"))
	}
	for _, p := range s.Proximity {
		if p.TrigPin == p.EchoPin {
			errs = append(errs, fmt.Errorf("sensor %s: trig and echo pins must differ", p.ID))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) sensorBases() []SensorBase {
	s := c.Sensors
	out := []SensorBase{s.Gas.SensorBase, s.Door.SensorBase, s.Vibration.SensorBase}
	for _, p := range s.Proximity {
		out = append(out, p.SensorBase)
	}
	return append(out, s.CardReader.SensorBase)
}
