package uinput

import (
	"context"
	"fmt"
	"testing"
	"time"

	"myohub/internal/events"
	"myohub/internal/gesture"
)

type fakeTapper struct {
	taps   []Key
	fail   bool
	closed bool
}

func (f *fakeTapper) Tap(k Key) error {
	if f.fail {
		return fmt.Errorf("tap refused")
	}
	f.taps = append(f.taps, k)
	return nil
}

func (f *fakeTapper) Close() error {
	f.closed = true
	return nil
}

func testKeyboard(dev tapper) *Keyboard {
	return &Keyboard{dev: dev, keymap: DefaultKeymap()}
}

func TestKeyboard_HandleEventTapsBoundKeys(t *testing.T) {
	dev := &fakeTapper{}
	kb := testKeyboard(dev)

	kb.HandleEvent(events.NewGesture(gesture.Right))
	kb.HandleEvent(events.NewLock(true))
	kb.HandleEvent(events.NewSynced())
	kb.HandleEvent(events.Event{Kind: events.KindGesture, Gesture: "nonsense"})
	kb.HandleEvent(events.NewGesture(gesture.CircleCCW))

	want := []Key{KeyRight, KeyVolumeDown}
	if len(dev.taps) != len(want) {
		t.Fatalf("taps = %v, want %v", dev.taps, want)
	}
	for i := range want {
		if dev.taps[i] != want[i] {
			t.Errorf("tap %d = %v, want %v", i, dev.taps[i], want[i])
		}
	}
}

func TestKeyboard_HandleEventSkipsUnboundGestures(t *testing.T) {
	dev := &fakeTapper{}
	kb := &Keyboard{dev: dev, keymap: map[gesture.Label]Key{gesture.Up: KeyUp}}

	kb.HandleEvent(events.NewGesture(gesture.Down))
	if len(dev.taps) != 0 {
		t.Errorf("unbound gesture tapped %v", dev.taps)
	}
}

func TestKeyboard_HandleEventSurvivesTapErrors(t *testing.T) {
	dev := &fakeTapper{fail: true}
	kb := testKeyboard(dev)

	kb.HandleEvent(events.NewGesture(gesture.Up))
	dev.fail = false
	kb.HandleEvent(events.NewGesture(gesture.Up))
	if len(dev.taps) != 1 {
		t.Errorf("taps after recovery = %v, want one", dev.taps)
	}
}

func TestKeyboard_RunDrainsChannel(t *testing.T) {
	dev := &fakeTapper{}
	kb := testKeyboard(dev)

	ch := make(chan events.Event, 4)
	ch <- events.NewGesture(gesture.Up)
	ch <- events.NewGesture(gesture.Left)
	close(ch)

	done := make(chan struct{})
	go func() {
		kb.Run(context.Background(), ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after channel close")
	}

	want := []Key{KeyUp, KeyLeft}
	if len(dev.taps) != len(want) || dev.taps[0] != want[0] || dev.taps[1] != want[1] {
		t.Errorf("taps = %v, want %v", dev.taps, want)
	}
}

func TestKeyboard_RunStopsOnContext(t *testing.T) {
	kb := testKeyboard(&fakeTapper{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		kb.Run(ctx, make(chan events.Event))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestKeyboard_CloseAndNilSafety(t *testing.T) {
	dev := &fakeTapper{}
	kb := testKeyboard(dev)
	if err := kb.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !dev.closed {
		t.Error("device not closed")
	}

	var nk *Keyboard
	nk.HandleEvent(events.NewGesture(gesture.Up))
	if err := nk.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}
