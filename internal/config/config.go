// Package config loads and validates the daemon's YAML configuration.
// Defaults are applied by pre-populating the target struct, so a field
// absent from the file keeps its default and an explicit value wins.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"myohub/internal/uinput"
)

type Config struct {
	Band    BandConfig    `yaml:"band"`
	Record  RecordConfig  `yaml:"record"`
	Web     WebConfig     `yaml:"web"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	UDP     UDPConfig     `yaml:"udp"`
	Uinput  UinputConfig  `yaml:"uinput"`
	Haptics HapticsConfig `yaml:"haptics"`
	Display DisplayConfig `yaml:"display"`
	History HistoryConfig `yaml:"history"`
}

type BandConfig struct {
	// Transport selects the frame source: sim, ble, serial or replay.
	Transport string       `yaml:"transport"`
	BLE       BLEConfig    `yaml:"ble"`
	Serial    SerialConfig `yaml:"serial"`
	Replay    ReplayConfig `yaml:"replay"`
	Sim       SimConfig    `yaml:"sim"`
}

type BLEConfig struct {
	// Address pins a specific band; DeviceName pins by advertised name.
	// With neither set, the first device advertising the band's control
	// service wins.
	Address        string        `yaml:"address"`
	DeviceName     string        `yaml:"device_name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type SimConfig struct {
	// Script names a YAML session script; empty runs the built-in one.
	Script string `yaml:"script"`
	Loop   bool   `yaml:"loop"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

type MQTTConfig struct {
	Enable      bool   `yaml:"enable"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type UDPConfig struct {
	Enable bool     `yaml:"enable"`
	Dests  []string `yaml:"dests"`
}

type UinputConfig struct {
	Enable bool              `yaml:"enable"`
	Keymap map[string]string `yaml:"keymap"`
}

type HapticsConfig struct {
	Enable    bool   `yaml:"enable"`
	Chip      string `yaml:"chip"`
	MotorLine int    `yaml:"motor_line"`
	LEDLine   int    `yaml:"led_line"`
}

type DisplayConfig struct {
	Enable bool   `yaml:"enable"`
	I2CBus string `yaml:"i2c_bus"`
	Addr   uint16 `yaml:"addr"`
}

type HistoryConfig struct {
	MaxEvents int           `yaml:"max_events"`
	MaxAge    time.Duration `yaml:"max_age"`
}

func defaults() Config {
	var cfg Config
	cfg.Band.Transport = "sim"
	cfg.Band.BLE.ConnectTimeout = 30 * time.Second
	cfg.Band.BLE.ReconnectDelay = 2 * time.Second
	cfg.Band.Serial.Device = "/dev/ttyAMA0"
	cfg.Band.Serial.Baud = 115200
	cfg.Band.Replay.Speed = 1
	cfg.Band.Sim.Loop = true
	cfg.Web.Enable = true
	cfg.Web.Listen = ":8080"
	cfg.MQTT.Broker = "tcp://127.0.0.1:1883"
	cfg.MQTT.ClientID = "myohub"
	cfg.MQTT.TopicPrefix = "myohub"
	cfg.Haptics.Chip = "gpiochip0"
	cfg.Haptics.MotorLine = 18
	cfg.Haptics.LEDLine = 23
	cfg.Display.Addr = 0x3C
	cfg.History.MaxEvents = 256
	cfg.History.MaxAge = time.Hour
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := defaults()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			msgs := make([]string, 0, len(te.Errors))
			for _, m := range te.Errors {
				// Strip the "line N: " prefix; the field path says enough.
				if i := strings.Index(m, ": "); i >= 0 {
					m = m[i+2:]
				}
				msgs = append(msgs, m)
			}
			return Config{}, fmt.Errorf("config contains unknown fields: %s", strings.Join(msgs, "; "))
		}
		return Config{}, err
	}

	switch cfg.Band.Transport {
	case "sim", "ble", "serial", "replay":
	default:
		return Config{}, fmt.Errorf("band.transport must be one of sim, ble, serial, replay")
	}

	if cfg.Band.Transport == "replay" && cfg.Band.Replay.Path == "" {
		return Config{}, fmt.Errorf("band.replay.path is required when band.transport is 'replay'")
	}
	if cfg.Band.Replay.Speed == 0 {
		cfg.Band.Replay.Speed = 1
	}
	if cfg.Band.Replay.Speed < 0 {
		return Config{}, fmt.Errorf("band.replay.speed must be > 0")
	}

	if cfg.Record.Enable {
		if cfg.Record.Path == "" {
			return Config{}, fmt.Errorf("record.path is required when record.enable is true")
		}
		if cfg.Band.Transport == "replay" {
			return Config{}, fmt.Errorf("record cannot be enabled when band.transport is 'replay'")
		}
	}

	if cfg.Web.Enable && cfg.Web.Listen == "" {
		return Config{}, fmt.Errorf("web.listen is required when web.enable is true")
	}
	if cfg.MQTT.Enable && cfg.MQTT.Broker == "" {
		return Config{}, fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
	}
	if cfg.UDP.Enable && len(cfg.UDP.Dests) == 0 {
		return Config{}, fmt.Errorf("udp.dests is required when udp.enable is true")
	}

	if cfg.Uinput.Enable || len(cfg.Uinput.Keymap) > 0 {
		if _, err := uinput.BuildKeymap(cfg.Uinput.Keymap); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}
