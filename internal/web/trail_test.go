package web

import (
	"bytes"
	"testing"

	"myohub/internal/engine"
	"myohub/internal/gesture"
)

func TestTrailPixel_MapsTrailSpaceToChart(t *testing.T) {
	cases := []struct {
		name   string
		x, y   float64
		px, py int
	}{
		{"bottom left", -1, -1, 0, trailSize - 1},
		{"top right", 1, 1, trailSize - 1, 0},
		{"origin", 0, 0, (trailSize - 1) / 2, (trailSize - 1) / 2},
		{"beyond range pins to the edge", 2, -2, trailSize - 1, trailSize - 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			px, py := trailPixel(tc.x, tc.y)
			if px != tc.px || py != tc.py {
				t.Fatalf("pixel=(%d,%d) want (%d,%d)", px, py, tc.px, tc.py)
			}
		})
	}
}

func TestRenderTrail_DrawsAxesAndPoints(t *testing.T) {
	img := renderTrail(engine.Snapshot{
		LastTrail: []gesture.Point{{X: 0.5, Y: -0.25}},
	})

	mid := trailSize / 2
	if img.RGBAAt(0, mid) != trailAxis || img.RGBAAt(mid, 0) != trailAxis {
		t.Fatalf("axes not drawn")
	}
	if img.RGBAAt(trailSize-10, trailSize-10) != trailBG {
		t.Fatalf("background not filled")
	}

	px, py := trailPixel(0.5, -0.25)
	if img.RGBAAt(px, py) != trailInk {
		t.Fatalf("trail point not drawn at (%d,%d)", px, py)
	}
}

func TestRenderTrail_LabelsClassifiedGesture(t *testing.T) {
	blank := renderTrail(engine.Snapshot{})
	labeled := renderTrail(engine.Snapshot{
		Gestures:    2,
		LastGesture: gesture.RotateCCW,
	})
	if bytes.Equal(blank.Pix, labeled.Pix) {
		t.Fatalf("gesture label did not change the rendering")
	}
}
