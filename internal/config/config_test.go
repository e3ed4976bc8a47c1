package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "band:\n  transport: sim\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Web.Enable || cfg.Web.Listen != ":8080" {
		t.Fatalf("web=%+v want enabled on :8080", cfg.Web)
	}
	if cfg.MQTT.Broker != "tcp://127.0.0.1:1883" || cfg.MQTT.ClientID != "myohub" || cfg.MQTT.TopicPrefix != "myohub" {
		t.Fatalf("mqtt=%+v", cfg.MQTT)
	}
	if cfg.Band.BLE.ConnectTimeout != 30*time.Second || cfg.Band.BLE.ReconnectDelay != 2*time.Second {
		t.Fatalf("ble=%+v", cfg.Band.BLE)
	}
	if cfg.Band.Serial.Device != "/dev/ttyAMA0" || cfg.Band.Serial.Baud != 115200 {
		t.Fatalf("serial=%+v", cfg.Band.Serial)
	}
	if cfg.Band.Replay.Speed != 1 {
		t.Fatalf("replay speed=%v want 1", cfg.Band.Replay.Speed)
	}
	if !cfg.Band.Sim.Loop {
		t.Fatalf("sim loop should default to true")
	}
	if cfg.Haptics.Chip != "gpiochip0" || cfg.Haptics.MotorLine != 18 || cfg.Haptics.LEDLine != 23 {
		t.Fatalf("haptics=%+v", cfg.Haptics)
	}
	if cfg.Display.Addr != 0x3C {
		t.Fatalf("display addr=%#x want 0x3c", cfg.Display.Addr)
	}
	if cfg.History.MaxEvents != 256 || cfg.History.MaxAge != time.Hour {
		t.Fatalf("history=%+v", cfg.History)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Band.Transport != "sim" {
		t.Fatalf("transport=%q want sim", cfg.Band.Transport)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func TestLoad_TransportValidated(t *testing.T) {
	path := writeTempConfig(t, "band:\n  transport: telepathy\n")
	_, err := Load(path)
	requireErrEq(t, err, "band.transport must be one of sim, ble, serial, replay")
}

func TestLoad_ReplayRequiresPath(t *testing.T) {
	path := writeTempConfig(t, "band:\n  transport: replay\n")
	_, err := Load(path)
	requireErrEq(t, err, "band.replay.path is required when band.transport is 'replay'")
}

func TestLoad_ReplaySpeedDefaultsToOne(t *testing.T) {
	path := writeTempConfig(t, "band:\n  transport: replay\n  replay:\n    path: './x.log'\n    speed: 0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Band.Replay.Speed != 1 {
		t.Fatalf("speed=%v want 1", cfg.Band.Replay.Speed)
	}
}

func TestLoad_ReplayNegativeSpeedRejected(t *testing.T) {
	path := writeTempConfig(t, "band:\n  transport: replay\n  replay:\n    path: './x.log'\n    speed: -1\n")
	_, err := Load(path)
	requireErrEq(t, err, "band.replay.speed must be > 0")
}

func TestLoad_RecordRequiresPath(t *testing.T) {
	path := writeTempConfig(t, "record:\n  enable: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "record.path is required when record.enable is true")
}

func TestLoad_RecordRejectedWithReplay(t *testing.T) {
	path := writeTempConfig(t, "band:\n  transport: replay\n  replay:\n    path: './x.log'\nrecord:\n  enable: true\n  path: './y.log'\n")
	_, err := Load(path)
	requireErrEq(t, err, "record cannot be enabled when band.transport is 'replay'")
}

func TestLoad_SimLoopExplicitFalseWins(t *testing.T) {
	path := writeTempConfig(t, "band:\n  transport: sim\n  sim:\n    loop: false\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Band.Sim.Loop {
		t.Fatalf("explicit loop: false did not override the default")
	}
}

func TestLoad_WebListenRequired(t *testing.T) {
	path := writeTempConfig(t, "web:\n  enable: true\n  listen: ''\n")
	_, err := Load(path)
	requireErrEq(t, err, "web.listen is required when web.enable is true")
}

func TestLoad_UDPRequiresDests(t *testing.T) {
	path := writeTempConfig(t, "udp:\n  enable: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "udp.dests is required when udp.enable is true")
}

func TestLoad_KeymapValidated(t *testing.T) {
	path := writeTempConfig(t, "uinput:\n  enable: true\n  keymap:\n    UP: KEY_FROB\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("error=%v want an unknown key rejection", err)
	}
}

func TestLoad_KeymapCheckedEvenWhenDisabled(t *testing.T) {
	path := writeTempConfig(t, "uinput:\n  enable: false\n  keymap:\n    SIDEWAYS: KEY_UP\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown gesture") {
		t.Fatalf("error=%v want an unknown gesture rejection", err)
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, "band:\n  transport: sim\n  warp_drive: 9\n")
	_, err := Load(path)
	requireErrEq(t, err, "config contains unknown fields: field warp_drive not found in type config.BandConfig")
}
