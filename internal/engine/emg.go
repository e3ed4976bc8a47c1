package engine

import (
	"log"

	"myohub/internal/band"
)

// HandleEMG ingests one 8-channel EMG frame: it shifts the rolling cache,
// recomputes the activity sum, and drives the one-shot amplitude
// calibration that ends with a short confirmation vibration.
func (s *Service) HandleEMG(f band.EMGFrame) {
	if s == nil {
		return
	}

	s.mu.Lock()
	s.emgFrames++

	// Newest frame at row 0, oldest row falls off the end.
	copy(s.emgCache[1:], s.emgCache[:emgCacheSize-1])
	s.emgCache[0] = [8]int8(f)

	var sum int64
	for i := range s.emgCache {
		for _, v := range s.emgCache[i] {
			if v < 0 {
				sum -= int64(v)
			} else {
				sum += int64(v)
			}
		}
	}
	s.emgSum = sum

	now := s.cfg.Now()
	if s.timeConnected.IsZero() {
		s.timeConnected = now
	}

	justSynced := false
	var reference int64
	if now.Before(s.timeConnected.Add(emgSyncTime)) {
		if s.emgSum > s.emgSync {
			s.emgSync = s.emgSum
		}
	} else if !s.emgSynced {
		s.emgSynced = true
		justSynced = true
		reference = s.emgSync
	}
	s.mu.Unlock()

	if justSynced {
		log.Printf("engine: emg calibration done reference=%d", reference)
		if s.cfg.Bridge != nil {
			if err := s.cfg.Bridge.Vibrate(band.VibrateShort); err != nil {
				log.Printf("engine: sync end vibration failed: %v", err)
			}
		}
		if s.cfg.OnSynced != nil {
			s.cfg.OnSynced()
		}
	}
}
