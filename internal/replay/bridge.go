package replay

import (
	"context"
	"fmt"
	"log"
	"time"

	"myohub/internal/band"
)

type BridgeConfig struct {
	// Path of the session log.
	Path string
	// Speed scales playback: 1 = real time, 2 = double speed.
	Speed float64
	// Loop restarts the session when it ends.
	Loop bool
}

// Bridge replays a recorded session as if a band were connected.
type Bridge struct {
	cfg  BridgeConfig
	recs []Record

	sleep func(ctx context.Context, d time.Duration) error
}

func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	recs, err := ReadSessionFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("replay: load session: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("replay: session %s has no records", cfg.Path)
	}
	return &Bridge{cfg: cfg, recs: recs, sleep: sleepCtx}, nil
}

// Configure is a no-op; the recording already streams everything.
func (b *Bridge) Configure(ctx context.Context) error {
	return nil
}

// Vibrate has no motor to drive during playback.
func (b *Bridge) Vibrate(v band.Vibration) error {
	log.Printf("replay: vibrate pattern=%d ignored", v)
	return nil
}

func (b *Bridge) Close() error { return nil }

// Run walks the records with their relative timing, delivering decoded
// frames to sink until the session ends or ctx is canceled.
func (b *Bridge) Run(ctx context.Context, sink band.Sink) error {
	if sink == nil {
		return fmt.Errorf("replay: sink is nil")
	}
	for {
		var origin, lastAt time.Duration
		var haveLast bool
		dropped := 0

		for _, r := range b.recs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.Frame == nil {
				// START marker.
				origin = r.At
				lastAt = 0
				haveLast = false
				continue
			}

			at := r.At - origin
			if at < 0 {
				at = 0
			}
			if haveLast {
				wait := time.Duration(float64(at-lastAt) / b.cfg.Speed)
				if wait > 0 {
					if err := b.sleep(ctx, wait); err != nil {
						return err
					}
				}
			}

			if !deliver(r.Frame, sink) {
				dropped++
			}
			lastAt = at
			haveLast = true
		}

		if dropped > 0 {
			log.Printf("replay: session pass dropped %d undecodable frames", dropped)
		}
		if !b.cfg.Loop {
			return nil
		}
	}
}

func deliver(frame []byte, sink band.Sink) bool {
	msg, crcOK, err := band.Unframe(frame)
	if err != nil || !crcOK {
		return false
	}
	return band.Dispatch(msg, sink) == nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
