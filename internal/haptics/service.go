// Package haptics mirrors the band's vibration vocabulary on local GPIO
// hardware: a motor line pulsed on events and an LED showing whether the
// band is unlocked. Meant for tethered and simulated setups where no
// band motor exists.
package haptics

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"myohub/internal/events"
)

var openGPIOFn = openGPIO

// pulseSpec is one motor buzz: count pulses of width, gap apart.
type pulseSpec struct {
	width time.Duration
	gap   time.Duration
	count int
}

var (
	gesturePulse = pulseSpec{width: 100 * time.Millisecond, count: 1}
	lockPulse    = pulseSpec{width: 80 * time.Millisecond, gap: 80 * time.Millisecond, count: 2}
	syncPulse    = pulseSpec{width: 400 * time.Millisecond, count: 1}
)

type Config struct {
	Enable bool

	// Chip is the GPIO character device, by name or path.
	Chip string
	// MotorLine and LEDLine are line offsets on Chip. Zero means the
	// default (18 and 23); a negative offset disables that line.
	MotorLine int
	LEDLine   int
}

type Service struct {
	cfg Config

	drvMu sync.Mutex
	drv   gpioDriver

	pulses chan pulseSpec

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config) *Service {
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	if cfg.MotorLine == 0 {
		cfg.MotorLine = 18
	}
	if cfg.LEDLine == 0 {
		cfg.LEDLine = 23
	}
	return &Service{
		cfg:    cfg,
		pulses: make(chan pulseSpec, 2),
		stopCh: make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("haptics: service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}

	drv, err := openGPIOFn(s.cfg.Chip, s.cfg.MotorLine, s.cfg.LEDLine)
	if err != nil {
		return err
	}
	s.drvMu.Lock()
	s.drv = drv
	s.drvMu.Unlock()
	log.Printf("haptics: gpio up chip=%s motor=%d led=%d", s.cfg.Chip, s.cfg.MotorLine, s.cfg.LEDLine)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pulseLoop(ctx, drv)
	}()

	// Release the lines if the runtime context is canceled.
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return nil
}

// HandleEvent buzzes the motor per event kind and keeps the LED on the
// lock state. LED on means the band is unlocked and recording.
func (s *Service) HandleEvent(ev events.Event) {
	if s == nil {
		return
	}
	s.drvMu.Lock()
	drv := s.drv
	s.drvMu.Unlock()
	if drv == nil {
		return
	}

	switch ev.Kind {
	case events.KindGesture:
		s.buzz(gesturePulse)
	case events.KindLock:
		if err := drv.SetLED(!ev.Locked); err != nil {
			log.Printf("haptics: led: %v", err)
		}
		s.buzz(lockPulse)
	case events.KindSynced:
		s.buzz(syncPulse)
	}
}

// Run consumes events from ch until ctx is done or the channel closes.
func (s *Service) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.HandleEvent(ev)
		}
	}
}

// buzz queues a pulse without blocking. While one is playing an extra
// overlapping buzz adds nothing, so it is dropped.
func (s *Service) buzz(p pulseSpec) {
	select {
	case s.pulses <- p:
	default:
	}
}

func (s *Service) pulseLoop(ctx context.Context, drv gpioDriver) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case p := <-s.pulses:
			s.playPulse(ctx, drv, p)
		}
	}
}

func (s *Service) playPulse(ctx context.Context, drv gpioDriver, p pulseSpec) {
	for i := 0; i < p.count; i++ {
		if i > 0 && !s.sleep(ctx, p.gap) {
			return
		}
		if err := drv.SetMotor(true); err != nil {
			log.Printf("haptics: motor on: %v", err)
			return
		}
		interrupted := !s.sleep(ctx, p.width)
		if err := drv.SetMotor(false); err != nil {
			log.Printf("haptics: motor off: %v", err)
			return
		}
		if interrupted {
			return
		}
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.stopCh:
		return false
	case <-t.C:
		return true
	}
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()

	s.drvMu.Lock()
	drv := s.drv
	s.drv = nil
	s.drvMu.Unlock()
	if drv != nil {
		_ = drv.Close()
	}
}
