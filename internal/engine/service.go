// Package engine implements the gesture recognition core: a rolling EMG
// activity tracker with one-shot amplitude calibration, the pose-driven
// lock/unlock state machine, and the motion trail classifier trigger. The
// service consumes frames from a band bridge and reports gestures and lock
// transitions through callbacks.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"myohub/internal/band"
	"myohub/internal/gesture"
	"myohub/internal/mat3"
)

const (
	// emgCacheSize is the number of EMG frames in the rolling activity
	// window.
	emgCacheSize = 10

	// emgSyncTime is the one-shot calibration window, measured from the
	// first EMG frame.
	emgSyncTime = 3000 * time.Millisecond

	// afterSyncWait must elapse after the calibration window before the
	// lock mechanism arms.
	afterSyncWait = 500 * time.Millisecond

	// lockToggleThreshold splits the activity ratio into relaxed (below)
	// and pose (at or above).
	lockToggleThreshold = 0.5
)

// Config carries the engine dependencies and callbacks.
type Config struct {
	// Bridge is the band transport. Required for Start; tests may push
	// frames into the handlers directly instead.
	Bridge band.Bridge

	// OnGesture fires once per unlock window whose trail classifies to a
	// known label.
	OnGesture func(gesture.Label)

	// OnLockChange fires on every transition of the locked flag.
	OnLockChange func(locked bool)

	// OnSynced fires once, when the EMG calibration window completes.
	OnSynced func()

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Snapshot is a value copy of the engine state for status reporting.
type Snapshot struct {
	Synced        bool      `json:"synced"`
	TimeConnected time.Time `json:"time_connected"`
	EMGSum        int64     `json:"emg_sum"`
	EMGSync       int64     `json:"emg_sync"`
	ActivityRatio float64   `json:"activity_ratio"`

	Locked     bool `json:"locked"`
	BufferFill int  `json:"buffer_fill"`

	IMUFrames   uint64 `json:"imu_frames"`
	EMGFrames   uint64 `json:"emg_frames"`
	Gestures    uint64 `json:"gestures"`
	LockChanges uint64 `json:"lock_changes"`

	LastGesture   gesture.Label   `json:"last_gesture"`
	LastGestureAt time.Time       `json:"last_gesture_at"`
	LastTrail     []gesture.Point `json:"last_trail,omitempty"`
	LastRoll      float64         `json:"last_roll"`
}

// Service is the gesture recognition engine. Frame handlers and Snapshot
// are safe for concurrent use.
type Service struct {
	cfg Config

	mu sync.Mutex

	emgCache      [emgCacheSize][8]int8
	emgSum        int64
	emgSync       int64
	emgSynced     bool
	timeConnected time.Time

	inverseInit mat3.Matrix
	refreshInit bool

	locked     bool
	lockToggle bool
	buffer     gesture.Buffer

	imuFrames   uint64
	emgFrames   uint64
	gestures    uint64
	lockChanges uint64

	lastGesture   gesture.Label
	lastGestureAt time.Time
	lastTrail     []gesture.Point
	lastRoll      float64

	stopOnce sync.Once
}

// New creates an engine service. The band starts locked; the first
// pose-and-release after calibration unlocks it.
func New(cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		cfg:         cfg,
		refreshInit: true,
		locked:      true,
		lockToggle:  true,
		lastGesture: gesture.Unknown,
	}
}

// Start configures the band, marks the start of the calibration window with
// a long vibration, and begins frame delivery in the background.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("engine: service is nil")
	}
	if s.cfg.Bridge == nil {
		return fmt.Errorf("engine: bridge is required")
	}
	if err := s.cfg.Bridge.Configure(ctx); err != nil {
		return fmt.Errorf("engine: configure band: %w", err)
	}
	if err := s.cfg.Bridge.Vibrate(band.VibrateLong); err != nil {
		log.Printf("engine: sync start vibration failed: %v", err)
	}
	log.Printf("engine: calibrating; make a strong fist for the next %v", emgSyncTime)
	go s.run(ctx)
	return nil
}

func (s *Service) run(ctx context.Context) {
	err := s.cfg.Bridge.Run(ctx, s)
	if err != nil && ctx.Err() == nil {
		log.Printf("engine: band stream stopped: %v", err)
	}
}

// Close releases the band bridge. Safe to call more than once and on a nil
// service.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		if s.cfg.Bridge != nil {
			if err := s.cfg.Bridge.Close(); err != nil {
				log.Printf("engine: close bridge: %v", err)
			}
		}
	})
}

// Snapshot returns a copy of the current engine state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ratio := 0.0
	if s.emgSync > 0 {
		ratio = float64(s.emgSum) / float64(s.emgSync)
	}
	snap := Snapshot{
		Synced:        s.emgSynced,
		TimeConnected: s.timeConnected,
		EMGSum:        s.emgSum,
		EMGSync:       s.emgSync,
		ActivityRatio: ratio,
		Locked:        s.locked,
		BufferFill:    s.buffer.Len(),
		IMUFrames:     s.imuFrames,
		EMGFrames:     s.emgFrames,
		Gestures:      s.gestures,
		LockChanges:   s.lockChanges,
		LastGesture:   s.lastGesture,
		LastGestureAt: s.lastGestureAt,
		LastRoll:      s.lastRoll,
	}
	if len(s.lastTrail) > 0 {
		snap.LastTrail = append([]gesture.Point(nil), s.lastTrail...)
	}
	return snap
}
