package main

import (
	"bytes"
	"os"
	"testing"
	"time"

	"myohub/internal/band"
	"myohub/internal/replay"
)

func TestSummarizeSession_CountsPerType(t *testing.T) {
	imu := band.FrameIMU(band.IMUFrame{Orientation: [4]int16{0, 0, 0, 16384}})
	emg := band.FrameEMG(band.EMGFrame{}, band.EMGFrame{})
	cmd := band.FrameCommand(band.VibrateCommand(band.VibrateShort))
	bad := []byte{0x7E, 0x01, 0x02, 0x7D, 0x7E} // truncated escape

	recs := []replay.Record{
		{At: 0, Frame: nil},
		{At: 0, Frame: imu},
		{At: 20 * time.Millisecond, Frame: emg},
		{At: 40 * time.Millisecond, Frame: bad},
		{At: 0, Frame: nil},
		{At: 1 * time.Second, Frame: emg},
		{At: 2 * time.Second, Frame: cmd},
	}

	s := summarizeSession(recs)
	if s.Segments != 2 {
		t.Fatalf("segments=%d want %d", s.Segments, 2)
	}
	if s.Frames != 5 {
		t.Fatalf("frames=%d want %d", s.Frames, 5)
	}
	if s.Invalid != 1 {
		t.Fatalf("invalid=%d want %d", s.Invalid, 1)
	}
	if s.IMUMessages != 1 {
		t.Fatalf("imu=%d want %d", s.IMUMessages, 1)
	}
	if s.EMGMessages != 2 {
		t.Fatalf("emg=%d want %d", s.EMGMessages, 2)
	}
	if s.EMGSamples != 4 {
		t.Fatalf("emgSamples=%d want %d", s.EMGSamples, 4)
	}
	if s.Commands != 1 {
		t.Fatalf("commands=%d want %d", s.Commands, 1)
	}
	if s.Duration != 2040*time.Millisecond {
		t.Fatalf("duration=%s want %s", s.Duration, 2040*time.Millisecond)
	}
}

func TestSummarizeSession_CorruptFrameCounted(t *testing.T) {
	good := band.FrameIMU(band.IMUFrame{Orientation: [4]int16{0, 0, 0, 16384}})
	corrupt := append([]byte(nil), good...)
	corrupt[2] ^= 0xFF // flip a payload byte, CRC no longer matches

	s := summarizeSession([]replay.Record{
		{At: 0, Frame: good},
		{At: time.Millisecond, Frame: corrupt},
	})
	if s.Segments != 1 {
		t.Fatalf("segments=%d want %d", s.Segments, 1)
	}
	if s.IMUMessages != 1 || s.Invalid != 1 {
		t.Fatalf("imu=%d invalid=%d want 1/1", s.IMUMessages, s.Invalid)
	}
}

func TestSummarizeSession_Empty(t *testing.T) {
	s := summarizeSession(nil)
	if s.Segments != 0 || s.Frames != 0 || s.Duration != 0 {
		t.Fatalf("summary of empty log = %+v", s)
	}
}

func TestPrintSessionSummary_PrintsExpectedFields(t *testing.T) {
	tmp := t.TempDir()
	logPath := tmp + "/session.log"

	w, err := replay.CreateWriter(logPath)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	now := time.Now()
	if err := w.WriteFrame(now, band.FrameIMU(band.IMUFrame{Orientation: [4]int16{0, 0, 0, 16384}})); err != nil {
		_ = w.Close()
		t.Fatalf("WriteFrame() error: %v", err)
	}
	if err := w.WriteFrame(now.Add(1*time.Second), band.FrameEMG(band.EMGFrame{}, band.EMGFrame{})); err != nil {
		_ = w.Close()
		t.Fatalf("WriteFrame() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	oldStdout := os.Stdout
	r, wpipe, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe() error: %v", err)
	}
	os.Stdout = wpipe

	printErr := printSessionSummary(logPath)

	_ = wpipe.Close()
	os.Stdout = oldStdout

	if printErr != nil {
		_ = r.Close()
		t.Fatalf("printSessionSummary() error: %v", printErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	_ = r.Close()
	out := buf.String()

	// Smoke-check for key lines.
	for _, want := range []string{
		"path: ",
		"segments: 1",
		"frames: 2",
		"invalid_frames: 0",
		"duration: ",
		"imu_messages: 1",
		"emg_messages: 1",
		"emg_samples: 2",
		"imu_rate_hz: ",
		"emg_rate_hz: ",
	} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Fatalf("missing %q in output: %q", want, out)
		}
	}
}

func TestPrintSessionSummary_MissingFile(t *testing.T) {
	if err := printSessionSummary(t.TempDir() + "/nope.log"); err == nil {
		t.Fatalf("expected error")
	}
	if err := printSessionSummary("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
