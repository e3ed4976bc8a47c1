package gesture

import "math"

// Buffer records the pointing trail of one unlock window as interleaved
// (x, y) angles, plus the most recent roll angle. Capacity is fixed; once
// full, appends are dropped and fullness is a first-class signal to the
// recording state machine.
//
// Not safe for concurrent use.
type Buffer struct {
	cache  [CacheSize]float64
	offset int
	roll   float64
}

// Reset clears the trail and the cached roll angle.
func (b *Buffer) Reset() {
	b.offset = 0
	b.roll = 0
}

// Append records one pointing sample. The x and y components pass through
// asin after clipping to ±0.99999. The roll angle is updated even when the
// trail is full.
func (b *Buffer) Append(x, y, roll float64) {
	if b.offset < CacheSize {
		b.cache[b.offset] = math.Asin(clipUnit(x))
		b.cache[b.offset+1] = math.Asin(clipUnit(y))
		b.offset += 2
	}
	b.roll = roll
}

// Full reports whether the trail has reached capacity.
func (b *Buffer) Full() bool {
	return b.offset == CacheSize
}

// Len returns the number of recorded points.
func (b *Buffer) Len() int {
	return b.offset / 2
}

// Snapshot returns the recorded points and the current roll angle, and
// resets the write position. The roll angle is not cleared; only Reset
// clears it.
func (b *Buffer) Snapshot() ([]Point, float64) {
	n := b.offset / 2
	b.offset = 0
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{X: b.cache[2*i], Y: b.cache[2*i+1]}
	}
	return points, b.roll
}

func clipUnit(v float64) float64 {
	return math.Max(-0.99999, math.Min(v, 0.99999))
}
