package gesture

import (
	"math"
	"testing"
)

func TestBuffer_AppendAndSnapshot(t *testing.T) {
	var b Buffer
	b.Append(0.5, -0.25, 0.1)
	b.Append(0, 0.75, 0.2)

	if b.Full() {
		t.Fatalf("Full()=true want false")
	}
	if got := b.Len(); got != 2 {
		t.Fatalf("Len()=%d want 2", got)
	}

	pts, roll := b.Snapshot()
	if len(pts) != 2 {
		t.Fatalf("len(pts)=%d want 2", len(pts))
	}
	if roll != 0.2 {
		t.Fatalf("roll=%v want 0.2", roll)
	}

	// Components pass through asin on append.
	if want := math.Asin(0.5); math.Abs(pts[0].X-want) > 1e-12 {
		t.Fatalf("pts[0].X=%v want %v", pts[0].X, want)
	}
	if want := math.Asin(-0.25); math.Abs(pts[0].Y-want) > 1e-12 {
		t.Fatalf("pts[0].Y=%v want %v", pts[0].Y, want)
	}

	// Snapshot consumes the trail but keeps the roll.
	pts, roll = b.Snapshot()
	if len(pts) != 0 {
		t.Fatalf("second snapshot len=%d want 0", len(pts))
	}
	if roll != 0.2 {
		t.Fatalf("second snapshot roll=%v want 0.2", roll)
	}
}

func TestBuffer_OverflowDropsButRollUpdates(t *testing.T) {
	var b Buffer
	for i := 0; i < CacheSize/2; i++ {
		b.Append(0.1, 0.1, 1)
		if got := b.Len(); got != i+1 {
			t.Fatalf("Len()=%d want %d", got, i+1)
		}
	}
	if !b.Full() {
		t.Fatalf("Full()=false want true after %d appends", CacheSize/2)
	}

	b.Append(0.9, 0.9, 2.5)
	if got := b.Len(); got != CacheSize/2 {
		t.Fatalf("Len()=%d want %d after overflow append", got, CacheSize/2)
	}

	pts, roll := b.Snapshot()
	if roll != 2.5 {
		t.Fatalf("roll=%v want 2.5 (updated while full)", roll)
	}
	// The dropped sample must not have overwritten the last stored one.
	last := pts[len(pts)-1]
	if want := math.Asin(0.1); math.Abs(last.X-want) > 1e-12 {
		t.Fatalf("last.X=%v want %v", last.X, want)
	}
}

func TestBuffer_ResetClearsRoll(t *testing.T) {
	var b Buffer
	b.Append(0.3, 0.3, 0.8)
	b.Reset()
	if b.Full() {
		t.Fatalf("Full()=true after Reset")
	}
	pts, roll := b.Snapshot()
	if len(pts) != 0 || roll != 0 {
		t.Fatalf("after Reset: pts=%d roll=%v want 0, 0", len(pts), roll)
	}
}

func TestBuffer_AppendClipsAsinDomain(t *testing.T) {
	var b Buffer
	b.Append(1.5, -1.5, 0)
	pts, _ := b.Snapshot()
	if math.IsNaN(pts[0].X) || math.IsNaN(pts[0].Y) {
		t.Fatalf("asin domain not clipped: %+v", pts[0])
	}
	if want := math.Asin(0.99999); pts[0].X != want {
		t.Fatalf("pts[0].X=%v want %v", pts[0].X, want)
	}
	if want := math.Asin(-0.99999); pts[0].Y != want {
		t.Fatalf("pts[0].Y=%v want %v", pts[0].Y, want)
	}
}
