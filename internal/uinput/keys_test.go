package uinput

import (
	"strings"
	"testing"

	"myohub/internal/gesture"
)

func TestParseKey(t *testing.T) {
	cases := []struct {
		in   string
		want Key
		ok   bool
	}{
		{"KEY_UP", KeyUp, true},
		{"up", KeyUp, true},
		{"VolumeDown", KeyVolumeDown, true},
		{" key_playpause ", KeyPlayPause, true},
		{"PAGEDOWN", KeyPageDown, true},
		{"KEY_FROB", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseKey(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseKey(%q) = %v, %v, want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestKeyString(t *testing.T) {
	if got := KeyUp.String(); got != "KEY_UP" {
		t.Errorf("KeyUp.String() = %q", got)
	}
	if got := Key(999).String(); got != "KEY_999" {
		t.Errorf("Key(999).String() = %q", got)
	}
}

func TestDefaultKeymapBindsEveryGesture(t *testing.T) {
	km := DefaultKeymap()
	labels := []gesture.Label{
		gesture.Up, gesture.Down, gesture.Left, gesture.Right,
		gesture.CircleCW, gesture.CircleCCW, gesture.RotateCW, gesture.RotateCCW,
	}
	for _, l := range labels {
		if _, ok := km[l]; !ok {
			t.Errorf("no default binding for %s", l)
		}
	}
	if _, ok := km[gesture.Unknown]; ok {
		t.Error("UNKNOWN must not be bound")
	}
	if km[gesture.CircleCW] != KeyVolumeUp || km[gesture.RotateCCW] != KeyPreviousSong {
		t.Errorf("unexpected defaults: %v", km)
	}
}

func TestBuildKeymap(t *testing.T) {
	km, err := BuildKeymap(map[string]string{
		"UP":        "key_pageup",
		"circle_cw": "MUTE",
	})
	if err != nil {
		t.Fatalf("BuildKeymap: %v", err)
	}
	if km[gesture.Up] != KeyPageUp {
		t.Errorf("UP = %v, want KEY_PAGEUP", km[gesture.Up])
	}
	if km[gesture.CircleCW] != KeyMute {
		t.Errorf("CIRCLE_CW = %v, want KEY_MUTE", km[gesture.CircleCW])
	}
	if km[gesture.Down] != KeyDown {
		t.Errorf("DOWN lost its default: %v", km[gesture.Down])
	}
}

func TestBuildKeymapRejects(t *testing.T) {
	cases := []struct {
		name      string
		overrides map[string]string
		wantErr   string
	}{
		{"unknown gesture", map[string]string{"WIGGLE": "KEY_UP"}, "unknown gesture"},
		{"unknown key", map[string]string{"UP": "KEY_FROB"}, "unknown key"},
		{"unknown label binding", map[string]string{"UNKNOWN": "KEY_UP"}, "cannot be bound"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := BuildKeymap(tc.overrides); err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("BuildKeymap(%v) err = %v, want %q", tc.overrides, err, tc.wantErr)
			}
		})
	}
}
