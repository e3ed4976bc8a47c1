package ble

import (
	"context"
	"testing"
	"time"

	"tinygo.org/x/bluetooth"

	"myohub/internal/band"
)

func TestBandUUIDsParse(t *testing.T) {
	uuids := []string{
		band.ControlServiceUUID,
		band.CommandCharUUID,
		band.IMUServiceUUID,
		band.IMUDataCharUUID,
		band.EMGServiceUUID,
	}
	uuids = append(uuids, band.EMGDataCharUUIDs[:]...)
	for _, s := range uuids {
		if _, err := bluetooth.ParseUUID(s); err != nil {
			t.Errorf("ParseUUID(%q): %v", s, err)
		}
	}
	if got, want := len(emgDataCharUUIDs), len(band.EMGDataCharUUIDs); got != want {
		t.Errorf("emg characteristic uuids = %d, want %d", got, want)
	}
}

func TestNewBridge_AppliesDefaults(t *testing.T) {
	b := NewBridge(Config{})
	if b.cfg.ScanTimeout != 30*time.Second {
		t.Errorf("ScanTimeout = %v, want 30s", b.cfg.ScanTimeout)
	}
	if b.cfg.ReconnectDelay != 2*time.Second {
		t.Errorf("ReconnectDelay = %v, want 2s", b.cfg.ReconnectDelay)
	}

	b = NewBridge(Config{ScanTimeout: time.Second, ReconnectDelay: 100 * time.Millisecond})
	if b.cfg.ScanTimeout != time.Second {
		t.Errorf("ScanTimeout = %v, want 1s", b.cfg.ScanTimeout)
	}
	if b.cfg.ReconnectDelay != 100*time.Millisecond {
		t.Errorf("ReconnectDelay = %v, want 100ms", b.cfg.ReconnectDelay)
	}
}

func TestBridge_SelectsBands(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config

		addr       string
		local      string
		hasControl bool
		want       bool
	}{
		{
			name: "address pin is case insensitive",
			cfg:  Config{Address: "C4:8E:00:11:22:33"},
			addr: "c4:8e:00:11:22:33", want: true,
		},
		{
			name: "address pin rejects other bands even when the service matches",
			cfg:  Config{Address: "C4:8E:00:11:22:33"},
			addr: "aa:bb:cc:dd:ee:ff", hasControl: true, want: false,
		},
		{
			name:  "name pin matches the advertised local name",
			cfg:   Config{Name: "Myo"},
			local: "Myo", want: true,
		},
		{
			name:  "name pin rejects other names even when the service matches",
			cfg:   Config{Name: "Myo"},
			local: "Fitness Tracker", hasControl: true, want: false,
		},
		{
			name:       "unpinned takes any device advertising the control service",
			cfg:        Config{},
			hasControl: true, want: true,
		},
		{
			name: "unpinned ignores devices without the control service",
			cfg:  Config{},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBridge(tc.cfg)
			if got := b.wants(tc.addr, tc.local, tc.hasControl); got != tc.want {
				t.Errorf("wants(%q, %q, %v) = %v, want %v", tc.addr, tc.local, tc.hasControl, got, tc.want)
			}
		})
	}
}

func TestBridge_GuardsNilAndDisconnected(t *testing.T) {
	var nb *Bridge
	if err := nb.Configure(context.Background()); err == nil {
		t.Error("Configure on nil bridge did not fail")
	}
	if err := nb.Run(context.Background(), nil); err == nil {
		t.Error("Run on nil bridge did not fail")
	}
	if err := nb.Vibrate(band.VibrateShort); err == nil {
		t.Error("Vibrate on nil bridge did not fail")
	}
	if err := nb.Close(); err != nil {
		t.Errorf("Close on nil bridge: %v", err)
	}

	b := NewBridge(Config{})
	if err := b.Run(context.Background(), nil); err == nil {
		t.Error("Run with nil sink did not fail")
	}
	if err := b.Vibrate(band.VibrateShort); err == nil {
		t.Error("Vibrate without a link did not fail")
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
