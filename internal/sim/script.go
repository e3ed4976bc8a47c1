// Package sim synthesizes band traffic from scripted scenarios: flat EMG
// activity envelopes and orientation paths that walk the recognition
// pipeline through calibration, lock toggles and gestures without hardware.
package sim

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"myohub/internal/band"
)

// Segment kinds.
const (
	KindQuiet   = "quiet"   // relaxed arm, faint muscle noise
	KindWait    = "wait"    // dead silence, zero activity
	KindBurst   = "burst"   // strong fist, calibration-grade activity
	KindPose    = "pose"    // held fist, toggles the lock
	KindGesture = "gesture" // relaxed arm tracing a shape
)

// Gesture shapes.
const (
	ShapeUp        = "up"
	ShapeDown      = "down"
	ShapeLeft      = "left"
	ShapeRight     = "right"
	ShapeCircleCW  = "circle_cw"
	ShapeCircleCCW = "circle_ccw"
	ShapeRotateCW  = "rotate_cw"
	ShapeRotateCCW = "rotate_ccw"
)

// Script is a deterministic, script-driven session description.
//
// Time is expressed as Go duration strings (e.g. "250ms", "3s").
// Segments play back-to-back in order.
//
// YAML schema (v1):
//
//	version: 1
//	loop: false
//	imu_rate_hz: 50
//	emg_rate_hz: 200
//	segments:
//	  - kind: quiet
//	    duration: 500ms
//	  - kind: burst        # strong fist while the band calibrates
//	    duration: 3200ms
//	  - kind: gesture
//	    shape: circle_cw
//	    duration: 900ms
//	    extent: 0.8
//	  - kind: pose         # fist; classifies the trail, then locks
//	    duration: 300ms
//
// Segment kinds: quiet, wait, burst, pose, gesture.
// Gesture shapes: up, down, left, right, circle_cw, circle_ccw,
// rotate_cw, rotate_ccw.
//
// EMG levels are flat per-channel envelopes; level 0 selects the kind
// default (quiet 2, wait 0, burst 100, pose 80, gesture 2).
//
// Keep this struct stable: scripts are test fixtures.
//
//nolint:revive // exported for YAML, but used primarily internally
type Script struct {
	Version   int       `yaml:"version"`
	Loop      bool      `yaml:"loop"`
	IMURateHz int       `yaml:"imu_rate_hz"`
	EMGRateHz int       `yaml:"emg_rate_hz"`
	Segments  []Segment `yaml:"segments"`
}

// Segment is one phase of a scripted session.
//
//nolint:revive
type Segment struct {
	Kind     string        `yaml:"kind"`
	Duration time.Duration `yaml:"duration"`
	// Level is the EMG activity per channel, 1..127. Zero means the
	// kind default.
	Level int `yaml:"level"`
	// Shape selects the path of a gesture segment.
	Shape string `yaml:"shape"`
	// Extent scales the path: swipe length and circle diameter in trail
	// units, rotation angle in radians. Zero means the shape default.
	Extent float64 `yaml:"extent"`
}

// LoadScript reads and unmarshals a YAML script from path.
func LoadScript(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	return ParseScriptYAML(b)
}

// ParseScriptYAML parses a YAML script.
func ParseScriptYAML(b []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Script{}, fmt.Errorf("sim: parse script: %w", err)
	}
	return s, nil
}

// segment is the resolved runtime form with defaults applied and an
// absolute start offset.
type segment struct {
	kind   string
	shape  string
	start  time.Duration
	dur    time.Duration
	level  int8
	extent float64
}

// Scenario is the validated, runtime representation.
//
// EMGAt and IMUAt compute the deterministic frames at a given elapsed
// time, so playback and tests share one source of truth.
type Scenario struct {
	loop      bool
	segs      []segment
	duration  time.Duration
	emgPeriod time.Duration
	imuEvery  int
}

// NewScenario validates script and returns a runtime Scenario.
func NewScenario(script Script) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("sim: unsupported script version %d", script.Version)
	}
	if len(script.Segments) == 0 {
		return nil, fmt.Errorf("sim: script has no segments")
	}

	imuRate := script.IMURateHz
	if imuRate == 0 {
		imuRate = 50
	}
	emgRate := script.EMGRateHz
	if emgRate == 0 {
		emgRate = 200
	}
	if imuRate <= 0 || emgRate <= 0 {
		return nil, fmt.Errorf("sim: rates must be positive (imu %d, emg %d)", imuRate, emgRate)
	}
	if emgRate < imuRate || emgRate%imuRate != 0 {
		return nil, fmt.Errorf("sim: emg_rate_hz %d must be a multiple of imu_rate_hz %d", emgRate, imuRate)
	}

	scen := &Scenario{
		loop:      script.Loop,
		segs:      make([]segment, 0, len(script.Segments)),
		emgPeriod: time.Second / time.Duration(emgRate),
		imuEvery:  emgRate / imuRate,
	}

	at := time.Duration(0)
	for i, in := range script.Segments {
		seg, err := resolveSegment(i, in)
		if err != nil {
			return nil, err
		}
		seg.start = at
		at += seg.dur
		scen.segs = append(scen.segs, seg)
	}
	scen.duration = at
	return scen, nil
}

func resolveSegment(i int, in Segment) (segment, error) {
	seg := segment{kind: in.Kind, shape: in.Shape, dur: in.Duration, extent: in.Extent}

	var defLevel int
	switch in.Kind {
	case KindQuiet:
		defLevel = 2
	case KindWait:
		defLevel = 0
	case KindBurst:
		defLevel = 100
	case KindPose:
		defLevel = 80
		if seg.dur == 0 {
			seg.dur = 300 * time.Millisecond
		}
	case KindGesture:
		defLevel = 2
		if seg.dur == 0 {
			seg.dur = time.Second
		}
	default:
		return segment{}, fmt.Errorf("sim: segment %d: unknown kind %q", i, in.Kind)
	}
	if seg.dur <= 0 {
		return segment{}, fmt.Errorf("sim: segment %d: duration is required", i)
	}

	level := in.Level
	if level == 0 {
		level = defLevel
	}
	if level < 0 || level > 127 {
		return segment{}, fmt.Errorf("sim: segment %d: level %d out of range 0..127", i, in.Level)
	}
	seg.level = int8(level)

	if in.Kind != KindGesture {
		if in.Shape != "" {
			return segment{}, fmt.Errorf("sim: segment %d: shape is only valid for gesture segments", i)
		}
		if in.Extent != 0 {
			return segment{}, fmt.Errorf("sim: segment %d: extent is only valid for gesture segments", i)
		}
		return seg, nil
	}

	var defExtent float64
	switch in.Shape {
	case ShapeUp, ShapeDown, ShapeLeft, ShapeRight:
		defExtent = 0.6
	case ShapeCircleCW, ShapeCircleCCW:
		defExtent = 0.8
	case ShapeRotateCW, ShapeRotateCCW:
		defExtent = 1.0
	default:
		return segment{}, fmt.Errorf("sim: segment %d: unknown shape %q", i, in.Shape)
	}
	if seg.extent == 0 {
		seg.extent = defExtent
	}
	// Path angles pass through asin; keep them inside its domain.
	if seg.extent < 0 || seg.extent > 1.5 {
		return segment{}, fmt.Errorf("sim: segment %d: extent %.2f out of range (max 1.5)", i, in.Extent)
	}
	return seg, nil
}

// Duration returns the scripted length of one pass.
func (s *Scenario) Duration() time.Duration {
	if s == nil {
		return 0
	}
	return s.duration
}

// Loops reports whether playback restarts after the last segment.
func (s *Scenario) Loops() bool { return s != nil && s.loop }

// EMGPeriod returns the spacing between EMG frames.
func (s *Scenario) EMGPeriod() time.Duration {
	if s == nil {
		return 0
	}
	return s.emgPeriod
}

// IMUEvery returns how many EMG frames pass between IMU frames.
func (s *Scenario) IMUEvery() int {
	if s == nil {
		return 1
	}
	return s.imuEvery
}

// wrap maps elapsed onto one pass, looping if the script loops.
// ok is false once a non-looping script has played out.
func (s *Scenario) wrap(elapsed time.Duration) (time.Duration, bool) {
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= s.duration {
		if !s.loop {
			return 0, false
		}
		elapsed = elapsed % s.duration
	}
	return elapsed, true
}

func (s *Scenario) segmentAt(e time.Duration) *segment {
	for i := range s.segs {
		seg := &s.segs[i]
		if e < seg.start+seg.dur {
			return seg
		}
	}
	return &s.segs[len(s.segs)-1]
}

// EMGAt returns the EMG frame the band would emit at elapsed. ok is
// false once a non-looping script has finished.
func (s *Scenario) EMGAt(elapsed time.Duration) (band.EMGFrame, bool) {
	if s == nil {
		return band.EMGFrame{}, false
	}
	e, ok := s.wrap(elapsed)
	if !ok {
		return band.EMGFrame{}, false
	}
	seg := s.segmentAt(e)
	var f band.EMGFrame
	for i := range f {
		f[i] = seg.level
	}
	return f, true
}

// IMUAt returns the IMU frame the band would emit at elapsed.
//
// Orientation is continuous across segments: each finished gesture leaves
// the arm where its path ended, and the next gesture starts from there,
// the way a real arm would. Non-gesture segments hold still.
func (s *Scenario) IMUAt(elapsed time.Duration) (band.IMUFrame, bool) {
	if s == nil {
		return band.IMUFrame{}, false
	}
	e, ok := s.wrap(elapsed)
	if !ok {
		return band.IMUFrame{}, false
	}

	held := quatIdentity
	q := quatIdentity
	for i := range s.segs {
		seg := &s.segs[i]
		if seg.start+seg.dur <= e {
			if seg.kind == KindGesture {
				held = quatMul(gestureQuat(seg, 1), held)
			}
			continue
		}
		q = held
		if seg.kind == KindGesture {
			p := float64(e-seg.start) / float64(seg.dur)
			q = quatMul(gestureQuat(seg, p), held)
		}
		break
	}
	return imuFrameFor(q), true
}

// DefaultScript is a complete looping demonstration pass: calibration,
// then one of each gesture with the pose choreography the lock state
// machine expects. Each pass ends locked so loops replay identically.
func DefaultScript() Script {
	segs := []Segment{
		{Kind: KindQuiet, Duration: 500 * time.Millisecond},
		{Kind: KindBurst, Duration: 3200 * time.Millisecond},
		{Kind: KindQuiet, Duration: 200 * time.Millisecond},
	}
	shapes := []string{
		ShapeRight, ShapeLeft, ShapeUp, ShapeDown,
		ShapeCircleCW, ShapeCircleCCW, ShapeRotateCW, ShapeRotateCCW,
	}
	for i, shape := range shapes {
		segs = append(segs,
			Segment{Kind: KindGesture, Shape: shape, Duration: 900 * time.Millisecond},
			Segment{Kind: KindPose, Duration: 300 * time.Millisecond},
		)
		if i == len(shapes)-1 {
			break
		}
		// Releasing the classify pose locks the band; a second pose
		// cycle reopens it for the next gesture.
		segs = append(segs,
			Segment{Kind: KindQuiet, Duration: 300 * time.Millisecond},
			Segment{Kind: KindPose, Duration: 300 * time.Millisecond},
			Segment{Kind: KindQuiet, Duration: 200 * time.Millisecond},
		)
	}
	return Script{Version: 1, Loop: true, Segments: segs}
}
