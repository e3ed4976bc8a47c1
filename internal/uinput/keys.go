// Package uinput taps keys on a virtual Linux keyboard when gestures
// fire, so recognized gestures drive whatever application has focus.
package uinput

import (
	"fmt"
	"strings"

	"myohub/internal/gesture"
)

// Key is an evdev key code.
type Key uint16

// Codes from linux/input-event-codes.h.
const (
	KeyEsc          Key = 1
	KeyBackspace    Key = 14
	KeyTab          Key = 15
	KeyEnter        Key = 28
	KeySpace        Key = 57
	KeyHome         Key = 102
	KeyUp           Key = 103
	KeyPageUp       Key = 104
	KeyLeft         Key = 105
	KeyRight        Key = 106
	KeyEnd          Key = 107
	KeyDown         Key = 108
	KeyPageDown     Key = 109
	KeyMute         Key = 113
	KeyVolumeDown   Key = 114
	KeyVolumeUp     Key = 115
	KeyNextSong     Key = 163
	KeyPlayPause    Key = 164
	KeyPreviousSong Key = 165
)

// keyNames maps config names (without the KEY_ prefix) to codes.
var keyNames = map[string]Key{
	"ESC":          KeyEsc,
	"BACKSPACE":    KeyBackspace,
	"TAB":          KeyTab,
	"ENTER":        KeyEnter,
	"SPACE":        KeySpace,
	"HOME":         KeyHome,
	"UP":           KeyUp,
	"PAGEUP":       KeyPageUp,
	"LEFT":         KeyLeft,
	"RIGHT":        KeyRight,
	"END":          KeyEnd,
	"DOWN":         KeyDown,
	"PAGEDOWN":     KeyPageDown,
	"MUTE":         KeyMute,
	"VOLUMEDOWN":   KeyVolumeDown,
	"VOLUMEUP":     KeyVolumeUp,
	"NEXTSONG":     KeyNextSong,
	"PLAYPAUSE":    KeyPlayPause,
	"PREVIOUSSONG": KeyPreviousSong,
}

// ParseKey resolves a key name, with or without the KEY_ prefix and in
// any case.
func ParseKey(name string) (Key, bool) {
	s := strings.ToUpper(strings.TrimSpace(name))
	s = strings.TrimPrefix(s, "KEY_")
	k, ok := keyNames[s]
	return k, ok
}

func (k Key) String() string {
	for name, code := range keyNames {
		if code == k {
			return "KEY_" + name
		}
	}
	return fmt.Sprintf("KEY_%d", uint16(k))
}

// DefaultKeymap is the out-of-the-box gesture binding: arrows for
// swipes, volume for circles, track skip for rotations.
func DefaultKeymap() map[gesture.Label]Key {
	return map[gesture.Label]Key{
		gesture.Up:        KeyUp,
		gesture.Down:      KeyDown,
		gesture.Left:      KeyLeft,
		gesture.Right:     KeyRight,
		gesture.CircleCW:  KeyVolumeUp,
		gesture.CircleCCW: KeyVolumeDown,
		gesture.RotateCW:  KeyNextSong,
		gesture.RotateCCW: KeyPreviousSong,
	}
}

// BuildKeymap starts from the defaults and applies overrides keyed by
// gesture label. UNKNOWN cannot be bound; the engine never emits it.
func BuildKeymap(overrides map[string]string) (map[gesture.Label]Key, error) {
	km := DefaultKeymap()
	for g, name := range overrides {
		label, ok := gesture.ParseLabel(strings.ToUpper(strings.TrimSpace(g)))
		if !ok {
			return nil, fmt.Errorf("uinput: keymap: unknown gesture %q", g)
		}
		if label == gesture.Unknown {
			return nil, fmt.Errorf("uinput: keymap: UNKNOWN cannot be bound")
		}
		key, ok := ParseKey(name)
		if !ok {
			return nil, fmt.Errorf("uinput: keymap %s: unknown key %q", label, name)
		}
		km[label] = key
	}
	return km, nil
}
