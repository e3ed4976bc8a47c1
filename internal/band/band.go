// Package band defines the armband data model and wire protocol: the frame
// types every transport produces, the myohw GATT vocabulary, and the framed
// serial codec used by wired bridges.
package band

import "context"

// OrientationScale is the fixed-point divisor for orientation quaternion
// components.
const OrientationScale = 16384

// IMUFrame is one inertial sample. Orientation components are in engine
// order (x, y, z, w), fixed-point with OrientationScale as divisor. The
// accelerometer and gyroscope values ride along for diagnostics; the engine
// reads only the orientation.
type IMUFrame struct {
	Orientation [4]int16
	Accel       [3]int16
	Gyro        [3]int16
}

// EMGFrame is one 8-channel surface EMG sample.
type EMGFrame [8]int8

// Vibration selects a vibration motor pattern, in myohw encoding.
type Vibration byte

const (
	VibrateNone   Vibration = 0
	VibrateShort  Vibration = 1
	VibrateMedium Vibration = 2
	VibrateLong   Vibration = 3
)

// Sink receives decoded frames from a bridge. Implementations must be safe
// for calls from the bridge's delivery goroutines.
type Sink interface {
	HandleIMU(IMUFrame)
	HandleEMG(EMGFrame)
}

// Bridge is a transport connected to an armband: it configures the device,
// carries vibration commands, and delivers sensor frames to a sink.
type Bridge interface {
	// Configure enables IMU and EMG streaming, disables the on-board pose
	// classifier and disables sleep.
	Configure(ctx context.Context) error

	// Vibrate triggers the band's vibration motor.
	Vibrate(v Vibration) error

	// Run delivers frames to sink until ctx is canceled or the transport
	// fails fatally.
	Run(ctx context.Context, sink Sink) error

	// Close releases the transport. Safe to call more than once.
	Close() error
}
