// Package display drives a 128x64 SSD1306 status panel over I2C showing
// sync and lock state, the last recognized gesture and the EMG activity
// level.
package display

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"sync"
	"time"

	"myohub/internal/engine"
	"myohub/internal/events"
)

var openPanelFn = openPanel

// refreshInterval paces the background repaint; events repaint sooner.
var refreshInterval = 500 * time.Millisecond

type Config struct {
	Enable bool

	// Bus is the I2C bus name or number; empty picks the first one.
	Bus string
	// Addr is the panel's 7-bit address. Zero means 0x3C, the only
	// address the driver supports.
	Addr uint16
}

type Service struct {
	cfg    Config
	source func() engine.Snapshot

	mu     sync.Mutex
	dev    panel
	busCl  io.Closer
	redraw chan struct{}

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New prepares the panel service. source supplies the engine snapshot
// each repaint renders.
func New(cfg Config, source func() engine.Snapshot) *Service {
	if cfg.Addr == 0 {
		cfg.Addr = 0x3C
	}
	return &Service{
		cfg:    cfg,
		source: source,
		redraw: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("display: service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if s.source == nil {
		return fmt.Errorf("display: no snapshot source")
	}

	dev, busCl, err := openPanelFn(s.cfg.Bus, s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.dev = dev
	s.busCl = busCl
	s.mu.Unlock()
	log.Printf("display: ssd1306 up bus=%q addr=0x%02X", s.cfg.Bus, s.cfg.Addr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()

	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return nil
}

func (s *Service) run(ctx context.Context) {
	t := time.NewTicker(refreshInterval)
	defer t.Stop()

	s.paint()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-t.C:
			s.paint()
		case <-s.redraw:
			s.paint()
		}
	}
}

func (s *Service) paint() {
	s.mu.Lock()
	dev := s.dev
	s.mu.Unlock()
	if dev == nil {
		return
	}
	img := renderFrame(s.source())
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		log.Printf("display: draw: %v", err)
	}
}

// HandleEvent schedules an immediate repaint. The frame content always
// comes from the snapshot source, so a coalesced repaint never shows
// stale state.
func (s *Service) HandleEvent(events.Event) {
	if s == nil {
		return
	}
	select {
	case s.redraw <- struct{}{}:
	default:
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

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()

	s.mu.Lock()
	dev := s.dev
	busCl := s.busCl
	s.dev = nil
	s.busCl = nil
	s.mu.Unlock()

	if dev != nil {
		_ = dev.Halt()
	}
	if busCl != nil {
		_ = busCl.Close()
	}
}
