package band

import (
	"encoding/binary"
	"fmt"
)

// DecodeIMUPacket parses a 20-byte myohw IMU notification. The wire
// carries the quaternion as w,x,y,z little-endian; the frame stores engine
// order x,y,z,w.
func DecodeIMUPacket(p []byte) (IMUFrame, error) {
	if len(p) != 20 {
		return IMUFrame{}, fmt.Errorf("band: imu packet length %d, want 20", len(p))
	}
	u16 := func(i int) int16 { return int16(binary.LittleEndian.Uint16(p[i:])) }
	var f IMUFrame
	f.Orientation[0] = u16(2)
	f.Orientation[1] = u16(4)
	f.Orientation[2] = u16(6)
	f.Orientation[3] = u16(0)
	for i := 0; i < 3; i++ {
		f.Accel[i] = u16(8 + 2*i)
		f.Gyro[i] = u16(14 + 2*i)
	}
	return f, nil
}

// EncodeIMUPacket builds the 20-byte wire form of an IMU sample, for
// simulators and session logs.
func EncodeIMUPacket(f IMUFrame) []byte {
	p := make([]byte, 20)
	put := func(i int, v int16) { binary.LittleEndian.PutUint16(p[i:], uint16(v)) }
	put(0, f.Orientation[3])
	put(2, f.Orientation[0])
	put(4, f.Orientation[1])
	put(6, f.Orientation[2])
	for i := 0; i < 3; i++ {
		put(8+2*i, f.Accel[i])
		put(14+2*i, f.Gyro[i])
	}
	return p
}

// DecodeEMGPacket parses a 16-byte myohw EMG notification carrying two
// consecutive samples.
func DecodeEMGPacket(p []byte) ([2]EMGFrame, error) {
	if len(p) != 16 {
		return [2]EMGFrame{}, fmt.Errorf("band: emg packet length %d, want 16", len(p))
	}
	var out [2]EMGFrame
	for i := 0; i < 8; i++ {
		out[0][i] = int8(p[i])
		out[1][i] = int8(p[8+i])
	}
	return out, nil
}

// EncodeEMGPacket builds the 16-byte wire form of two EMG samples.
func EncodeEMGPacket(first, second EMGFrame) []byte {
	p := make([]byte, 16)
	for i := 0; i < 8; i++ {
		p[i] = byte(first[i])
		p[8+i] = byte(second[i])
	}
	return p
}

// Dispatch decodes a deframed message body and feeds it to sink. EMG
// bodies carry two samples and yield two sink calls. Command bodies are
// host-to-band traffic seen on loopback paths and are ignored.
func Dispatch(msg []byte, sink Sink) error {
	if len(msg) == 0 {
		return fmt.Errorf("band: empty message")
	}
	switch msg[0] {
	case MsgIMU:
		f, err := DecodeIMUPacket(msg[1:])
		if err != nil {
			return err
		}
		sink.HandleIMU(f)
	case MsgEMG:
		pair, err := DecodeEMGPacket(msg[1:])
		if err != nil {
			return err
		}
		sink.HandleEMG(pair[0])
		sink.HandleEMG(pair[1])
	case MsgCommand:
	default:
		return fmt.Errorf("band: unknown message type 0x%02x", msg[0])
	}
	return nil
}
