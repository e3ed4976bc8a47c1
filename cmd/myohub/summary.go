package main

import (
	"fmt"
	"strings"
	"time"

	"myohub/internal/band"
	"myohub/internal/replay"
)

// sessionSummary aggregates a session log: how many messages of each
// type it holds and how long the recording ran.
type sessionSummary struct {
	Segments int
	Frames   int
	Invalid  int

	IMUMessages int
	EMGMessages int
	EMGSamples  int
	Commands    int

	Duration time.Duration
}

func summarizeSession(records []replay.Record) sessionSummary {
	var s sessionSummary
	if len(records) == 0 {
		return s
	}

	segments := 0
	hasFrames := false
	var segMax time.Duration

	for _, r := range records {
		if r.Frame == nil {
			// START marker: close the running segment.
			s.Duration += segMax
			segMax = 0
			segments++
			continue
		}
		hasFrames = true

		s.Frames++
		if r.At > segMax {
			segMax = r.At
		}

		msg, crcOK, err := band.Unframe(r.Frame)
		if err != nil || !crcOK || len(msg) == 0 {
			s.Invalid++
			continue
		}
		switch msg[0] {
		case band.MsgIMU:
			s.IMUMessages++
		case band.MsgEMG:
			// The band batches two EMG samples per message.
			s.EMGMessages++
			s.EMGSamples += 2
		case band.MsgCommand:
			s.Commands++
		default:
			s.Invalid++
		}
	}
	s.Duration += segMax

	if segments == 0 && hasFrames {
		segments = 1
	}
	s.Segments = segments

	return s
}

func printSessionSummary(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	recs, err := replay.ReadSessionFile(path)
	if err != nil {
		return err
	}

	s := summarizeSession(recs)

	fmt.Printf("path: %s\n", path)
	fmt.Printf("segments: %d\n", s.Segments)
	fmt.Printf("frames: %d\n", s.Frames)
	fmt.Printf("invalid_frames: %d\n", s.Invalid)
	fmt.Printf("duration: %s\n", s.Duration)
	fmt.Printf("imu_messages: %d\n", s.IMUMessages)
	fmt.Printf("emg_messages: %d\n", s.EMGMessages)
	fmt.Printf("emg_samples: %d\n", s.EMGSamples)
	fmt.Printf("commands: %d\n", s.Commands)
	if sec := s.Duration.Seconds(); sec > 0 {
		fmt.Printf("imu_rate_hz: %.1f\n", float64(s.IMUMessages)/sec)
		fmt.Printf("emg_rate_hz: %.1f\n", float64(s.EMGSamples)/sec)
	}
	return nil
}
