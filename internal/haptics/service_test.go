package haptics

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"myohub/internal/events"
	"myohub/internal/gesture"
)

type fakeGPIO struct {
	mu       sync.Mutex
	motorOns int
	led      bool
	ledSet   bool
	closed   bool

	motorCh chan bool
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{motorCh: make(chan bool, 16)}
}

func (f *fakeGPIO) SetMotor(on bool) error {
	f.mu.Lock()
	if on {
		f.motorOns++
	}
	f.mu.Unlock()
	select {
	case f.motorCh <- on:
	default:
	}
	return nil
}

func (f *fakeGPIO) SetLED(on bool) error {
	f.mu.Lock()
	f.led = on
	f.ledSet = true
	f.mu.Unlock()
	return nil
}

func (f *fakeGPIO) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeGPIO) ledState() (on, set bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.led, f.ledSet
}

func (f *fakeGPIO) ons() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.motorOns
}

func swapGPIO(t *testing.T, drv gpioDriver, err error) {
	t.Helper()
	old := openGPIOFn
	openGPIOFn = func(chip string, motorLine, ledLine int) (gpioDriver, error) { return drv, err }
	t.Cleanup(func() { openGPIOFn = old })
}

// shrinkPulses keeps the tests from sleeping real pulse widths.
func shrinkPulses(t *testing.T) {
	t.Helper()
	oldG, oldL, oldS := gesturePulse, lockPulse, syncPulse
	gesturePulse = pulseSpec{width: time.Millisecond, count: 1}
	lockPulse = pulseSpec{width: time.Millisecond, gap: time.Millisecond, count: 2}
	syncPulse = pulseSpec{width: time.Millisecond, count: 1}
	t.Cleanup(func() { gesturePulse, lockPulse, syncPulse = oldG, oldL, oldS })
}

func waitEdge(t *testing.T, ch chan bool, want bool) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("motor edge = %v, want %v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for motor %v", want)
	}
}

func TestService_StartDisabledTouchesNoHardware(t *testing.T) {
	swapGPIO(t, nil, fmt.Errorf("no gpio on this host"))

	s := New(Config{Enable: false})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.HandleEvent(events.NewGesture(gesture.Up))
	s.Close()
}

func TestService_StartFailsWhenGPIOUnavailable(t *testing.T) {
	swapGPIO(t, nil, fmt.Errorf("haptics: open /dev/gpiochip0: no such device"))

	s := New(Config{Enable: true})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded without a gpio backend")
	}
}

func TestService_GestureEventPulsesMotor(t *testing.T) {
	shrinkPulses(t)
	fake := newFakeGPIO()
	swapGPIO(t, fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(Config{Enable: true})
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	s.HandleEvent(events.NewGesture(gesture.Right))
	waitEdge(t, fake.motorCh, true)
	waitEdge(t, fake.motorCh, false)
	if got := fake.ons(); got != 1 {
		t.Errorf("motor ons = %d, want 1", got)
	}
}

func TestService_LockEventDrivesLEDAndDoubleBuzz(t *testing.T) {
	shrinkPulses(t)
	fake := newFakeGPIO()
	swapGPIO(t, fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(Config{Enable: true})
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	s.HandleEvent(events.NewLock(false))
	if on, set := fake.ledState(); !set || !on {
		t.Errorf("led after unlock = %v (set=%v), want on", on, set)
	}
	waitEdge(t, fake.motorCh, true)
	waitEdge(t, fake.motorCh, false)
	waitEdge(t, fake.motorCh, true)
	waitEdge(t, fake.motorCh, false)
	if got := fake.ons(); got != 2 {
		t.Errorf("motor ons = %d, want 2", got)
	}

	s.HandleEvent(events.NewLock(true))
	if on, _ := fake.ledState(); on {
		t.Error("led still on after lock")
	}
}

func TestService_SyncedEventBuzzes(t *testing.T) {
	shrinkPulses(t)
	fake := newFakeGPIO()
	swapGPIO(t, fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(Config{Enable: true})
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	s.HandleEvent(events.NewSynced())
	waitEdge(t, fake.motorCh, true)
	waitEdge(t, fake.motorCh, false)
}

func TestService_RunConsumesEventChannel(t *testing.T) {
	shrinkPulses(t)
	fake := newFakeGPIO()
	swapGPIO(t, fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(Config{Enable: true})
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	ch := make(chan events.Event, 2)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, ch)
		close(done)
	}()

	ch <- events.NewGesture(gesture.Left)
	waitEdge(t, fake.motorCh, true)
	waitEdge(t, fake.motorCh, false)

	close(ch)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after channel close")
	}
}

func TestService_CloseReleasesDriverAndQuietsEvents(t *testing.T) {
	shrinkPulses(t)
	fake := newFakeGPIO()
	swapGPIO(t, fake, nil)

	s := New(Config{Enable: true})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Close()
	s.Close()

	fake.mu.Lock()
	closed := fake.closed
	fake.mu.Unlock()
	if !closed {
		t.Error("driver not closed")
	}

	before := fake.ons()
	s.HandleEvent(events.NewGesture(gesture.Up))
	time.Sleep(10 * time.Millisecond)
	if got := fake.ons(); got != before {
		t.Errorf("motor buzzed after Close: %d -> %d", before, got)
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	s := New(Config{Enable: true})
	if s.cfg.Chip != "gpiochip0" || s.cfg.MotorLine != 18 || s.cfg.LEDLine != 23 {
		t.Errorf("defaults = %+v", s.cfg)
	}

	s = New(Config{Chip: "gpiochip4", MotorLine: -1, LEDLine: 5})
	if s.cfg.Chip != "gpiochip4" || s.cfg.MotorLine != -1 || s.cfg.LEDLine != 5 {
		t.Errorf("explicit config lost: %+v", s.cfg)
	}
}
