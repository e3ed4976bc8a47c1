package band

// Wired link framing: a message (type byte + payload) gets a trailing
// CRC-16, byte stuffing, and 0x7E flag delimiters. The same frames appear
// on serial bridges and in session logs.

const (
	flagByte   = 0x7E
	escapeByte = 0x7D
	escapeXor  = 0x20
)

// Wire message types.
const (
	MsgIMU     byte = 0x10 // 20-byte IMU notification payload
	MsgEMG     byte = 0x11 // 16-byte double EMG sample payload
	MsgCommand byte = 0x20 // myohw command, host to band
)

// Frame appends the CRC-16 to an unframed message, applies byte stuffing,
// and wraps the result in flag bytes.
func Frame(message []byte) []byte {
	crc := crc16(message)

	withCRC := make([]byte, 0, len(message)+2)
	withCRC = append(withCRC, message...)
	// CRC goes out low byte first.
	withCRC = append(withCRC, byte(crc&0xFF), byte(crc>>8))

	out := make([]byte, 0, 2+len(withCRC)*2)
	out = append(out, flagByte)
	for _, b := range withCRC {
		if b == flagByte || b == escapeByte {
			out = append(out, escapeByte, b^escapeXor)
			continue
		}
		out = append(out, b)
	}
	out = append(out, flagByte)
	return out
}

// FrameIMU frames one IMU sample.
func FrameIMU(f IMUFrame) []byte {
	msg := make([]byte, 0, 21)
	msg = append(msg, MsgIMU)
	msg = append(msg, EncodeIMUPacket(f)...)
	return Frame(msg)
}

// FrameEMG frames two consecutive EMG samples, the way the band batches
// them.
func FrameEMG(first, second EMGFrame) []byte {
	msg := make([]byte, 0, 17)
	msg = append(msg, MsgEMG)
	msg = append(msg, EncodeEMGPacket(first, second)...)
	return Frame(msg)
}

// FrameCommand frames a myohw command for the host-to-band direction.
func FrameCommand(cmd []byte) []byte {
	msg := make([]byte, 0, 1+len(cmd))
	msg = append(msg, MsgCommand)
	msg = append(msg, cmd...)
	return Frame(msg)
}

// crc16 is a table-driven CRC-16 with polynomial 0x1021 over the unframed
// message bytes.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crc16Table[crc>>8] ^ (crc << 8) ^ uint16(b)
	}
	return crc
}

var crc16Table = func() [256]uint16 {
	var table [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if (crc & 0x8000) != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()
