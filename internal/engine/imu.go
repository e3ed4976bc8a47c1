package engine

import (
	"math"

	"myohub/internal/band"
	"myohub/internal/gesture"
	"myohub/internal/mat3"
)

// HandleIMU ingests one orientation frame. It rebases the rotation against
// the reference captured at the last pose onset, runs the lock state
// machine, and appends to the motion trail while unlocked. Callbacks fire
// after the state update, in the order the transitions occurred.
func (s *Service) HandleIMU(f band.IMUFrame) {
	if s == nil {
		return
	}

	s.mu.Lock()
	s.imuFrames++

	q := f.Orientation
	r := mat3.FromQuaternion(
		float64(q[0])/band.OrientationScale,
		float64(q[1])/band.OrientationScale,
		float64(q[2])/band.OrientationScale,
		float64(q[3])/band.OrientationScale,
	)

	if s.refreshInit {
		s.inverseInit = r.Inverse()
		s.refreshInit = false
	}

	local := r.Mul(s.inverseInit)
	roll := math.Asin(clipAsin(local[1][0]))

	// The lock machinery stays dormant until calibration has finished and
	// the settling delay has passed.
	now := s.cfg.Now()
	if !s.emgSynced || !now.After(s.timeConnected.Add(emgSyncTime+afterSyncWait)) {
		s.mu.Unlock()
		return
	}

	var (
		lockEvent    bool
		lockedNow    bool
		gestureEvent bool
		label        gesture.Label
	)

	relaxed := false
	if s.emgSync > 0 {
		relaxed = float64(s.emgSum)/float64(s.emgSync) < lockToggleThreshold
	}

	if relaxed {
		// A full trail with the arm relaxed means the gesture never
		// completed; discard it and force the re-lock on this same frame.
		if !s.locked && s.buffer.Full() {
			s.buffer.Reset()
			s.lockToggle = false
		}
		if !s.lockToggle {
			s.lockToggle = true
			s.locked = !s.locked
			if !s.locked {
				s.buffer.Reset()
			}
			s.lockChanges++
			lockEvent = true
			lockedNow = s.locked
		}
	} else if s.lockToggle {
		// Pose onset: rebase the orientation reference on the next frame,
		// and while unlocked, close out the trail and classify it.
		s.refreshInit = true
		s.lockToggle = false
		if !s.locked {
			points, trailRoll := s.buffer.Snapshot()
			s.lastTrail = points
			s.lastRoll = trailRoll
			got := gesture.Classify(points, trailRoll)
			if got != gesture.Unknown {
				s.gestures++
				s.lastGesture = got
				s.lastGestureAt = now
				gestureEvent = true
				label = got
			}
		}
	}

	if !s.locked {
		s.buffer.Append(local[2][1], local[2][0], roll)
	}
	s.mu.Unlock()

	if gestureEvent && s.cfg.OnGesture != nil {
		s.cfg.OnGesture(label)
	}
	if lockEvent && s.cfg.OnLockChange != nil {
		s.cfg.OnLockChange(lockedNow)
	}
}

func clipAsin(v float64) float64 {
	return math.Max(-0.99999, math.Min(v, 0.99999))
}
