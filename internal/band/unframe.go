package band

import "fmt"

// Unframe reverses Frame: it validates the flag delimiters, removes the
// byte stuffing, and checks the trailing CRC. It returns the message (type
// byte + payload, without CRC), whether the CRC matched, and an error for
// malformed frames.
func Unframe(frame []byte) (msg []byte, crcOK bool, err error) {
	if len(frame) < 4 {
		return nil, false, fmt.Errorf("band: frame too short: %d", len(frame))
	}
	if frame[0] != flagByte || frame[len(frame)-1] != flagByte {
		return nil, false, fmt.Errorf("band: missing start/end flags")
	}
	return decodeBody(frame[1 : len(frame)-1])
}

func decodeBody(body []byte) (msg []byte, crcOK bool, err error) {
	raw := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		b := body[i]
		if b == escapeByte {
			i++
			if i >= len(body) {
				return nil, false, fmt.Errorf("band: truncated escape at end of frame")
			}
			raw = append(raw, body[i]^escapeXor)
			continue
		}
		raw = append(raw, b)
	}
	if len(raw) < 3 {
		return nil, false, fmt.Errorf("band: unescaped message too short: %d", len(raw))
	}
	msg = raw[:len(raw)-2]
	got := uint16(raw[len(raw)-2]) | uint16(raw[len(raw)-1])<<8
	return msg, got == crc16(msg), nil
}

// Deframer reassembles messages from a byte stream delivered in arbitrary
// chunks. Garbage between frames is skipped; corrupt frames are counted
// and dropped.
type Deframer struct {
	buf     []byte
	inFrame bool

	Messages  uint64
	CRCErrors uint64
	Malformed uint64
}

// Push consumes a chunk and returns the complete, CRC-valid messages it
// finished, each as type byte + payload.
func (d *Deframer) Push(chunk []byte) [][]byte {
	var out [][]byte
	for _, b := range chunk {
		if b != flagByte {
			if d.inFrame {
				d.buf = append(d.buf, b)
			}
			continue
		}
		if d.inFrame && len(d.buf) > 0 {
			msg, crcOK, err := decodeBody(d.buf)
			switch {
			case err != nil:
				d.Malformed++
			case !crcOK:
				d.CRCErrors++
			default:
				d.Messages++
				out = append(out, msg)
			}
		}
		d.inFrame = true
		d.buf = d.buf[:0]
	}
	return out
}
