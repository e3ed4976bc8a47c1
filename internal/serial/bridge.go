// Package serial drives a band tethered through a UART or USB serial
// adapter speaking the flag-delimited frame transport.
package serial

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"myohub/internal/band"
)

// Config controls the serial bridge.
//
// Device may be empty to auto-detect across /dev/ttyACM* and
// /dev/ttyUSB*. Baud must be a rate the platform implementation
// supports; zero means 115200.
type Config struct {
	Device string
	Baud   int
}

// Bridge streams decoded samples from a serial port and writes framed
// commands back over the same port.
type Bridge struct {
	device string
	baud   int

	wmu    sync.Mutex
	port   io.ReadWriteCloser
	closed bool
}

// NewBridge opens the device in raw mode. Band mode selection happens
// later, in Configure.
func NewBridge(cfg Config) (*Bridge, error) {
	device := cfg.Device
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			return nil, fmt.Errorf("serial: auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
		}
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = 115200
	}
	f, err := openSerial(device, baud)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s baud=%d: %w", device, baud, err)
	}
	log.Printf("serial: band device=%s baud=%d", device, baud)
	return &Bridge{device: device, baud: baud, port: f}, nil
}

// Configure puts the band into filtered-EMG plus IMU streaming and
// disables the idle sleep timer so a still arm keeps the link alive.
func (b *Bridge) Configure(ctx context.Context) error {
	if b == nil || b.port == nil {
		return fmt.Errorf("serial: bridge is not open")
	}
	if err := b.writeCommand(band.StreamingCommand()); err != nil {
		return fmt.Errorf("serial: set streaming mode: %w", err)
	}
	if err := b.writeCommand(band.SleepCommand(band.SleepNever)); err != nil {
		return fmt.Errorf("serial: set sleep mode: %w", err)
	}
	return nil
}

// Vibrate drives the band motor.
func (b *Bridge) Vibrate(v band.Vibration) error {
	if b == nil || b.port == nil {
		return fmt.Errorf("serial: bridge is not open")
	}
	if err := b.writeCommand(band.VibrateCommand(v)); err != nil {
		return fmt.Errorf("serial: vibrate: %w", err)
	}
	return nil
}

func (b *Bridge) writeCommand(cmd []byte) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	_, err := b.port.Write(band.FrameCommand(cmd))
	return err
}

// Run reads the port until it fails or ctx is canceled, reassembling
// frames and feeding decoded samples to sink. Closing the bridge
// interrupts a blocked read.
func (b *Bridge) Run(ctx context.Context, sink band.Sink) error {
	if b == nil || b.port == nil {
		return fmt.Errorf("serial: bridge is not open")
	}
	if sink == nil {
		return fmt.Errorf("serial: sink is nil")
	}

	var df band.Deframer
	buf := make([]byte, 512)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := b.port.Read(buf)
		if n > 0 {
			for _, msg := range df.Push(buf[:n]) {
				if derr := band.Dispatch(msg, sink); derr != nil {
					log.Printf("serial: drop frame: %v", derr)
				}
			}
		}
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if b.isClosed() {
				return nil
			}
			if err == io.EOF {
				return fmt.Errorf("serial: %s closed (messages=%d crc_errors=%d)", b.device, df.Messages, df.CRCErrors)
			}
			return fmt.Errorf("serial: read %s: %w", b.device, err)
		}
	}
}

func (b *Bridge) isClosed() bool {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	return b.closed
}

// Close shuts the port, interrupting any blocked read. Safe to call more
// than once.
func (b *Bridge) Close() error {
	if b == nil || b.port == nil {
		return nil
	}
	b.wmu.Lock()
	defer b.wmu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.port.Close()
}

// autoDetectDevice probes the usual USB serial nodes in a fixed order so
// repeat runs land on the same adapter.
func autoDetectDevice() string {
	for _, pattern := range []string{"/dev/ttyACM%d", "/dev/ttyUSB%d"} {
		for i := 0; i < 10; i++ {
			p := fmt.Sprintf(pattern, i)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}
