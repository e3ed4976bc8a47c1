package uinput

import (
	"context"
	"log"

	"myohub/internal/events"
	"myohub/internal/gesture"
)

// DeviceName is what the virtual keyboard registers as on the host.
const DeviceName = "myohub virtual keyboard"

// tapper is the minimal interface the keyboard needs from the device
// backend.
type tapper interface {
	Tap(Key) error
	Close() error
}

// Keyboard turns gesture events into key taps on a virtual keyboard.
type Keyboard struct {
	dev    tapper
	keymap map[gesture.Label]Key
}

// NewKeyboard creates the uinput device exposing every key the keymap
// binds. A nil or empty keymap means the defaults.
func NewKeyboard(keymap map[gesture.Label]Key) (*Keyboard, error) {
	if len(keymap) == 0 {
		keymap = DefaultKeymap()
	}
	seen := make(map[Key]bool, len(keymap))
	keys := make([]Key, 0, len(keymap))
	for _, k := range keymap {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	dev, err := Open(DeviceName, keys)
	if err != nil {
		return nil, err
	}
	log.Printf("uinput: virtual keyboard up, %d keys bound", len(keys))
	return &Keyboard{dev: dev, keymap: keymap}, nil
}

// HandleEvent taps the bound key for gesture events. Other event kinds
// and unbound gestures are ignored.
func (k *Keyboard) HandleEvent(ev events.Event) {
	if k == nil || ev.Kind != events.KindGesture {
		return
	}
	label, ok := gesture.ParseLabel(ev.Gesture)
	if !ok {
		return
	}
	key, ok := k.keymap[label]
	if !ok {
		return
	}
	if err := k.dev.Tap(key); err != nil {
		log.Printf("uinput: tap %v: %v", key, err)
	}
}

// Run consumes events from ch until ctx is done or the channel closes.
func (k *Keyboard) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			k.HandleEvent(ev)
		}
	}
}

// Close tears the virtual device down.
func (k *Keyboard) Close() error {
	if k == nil || k.dev == nil {
		return nil
	}
	return k.dev.Close()
}
