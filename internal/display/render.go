package display

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"myohub/internal/engine"
)

const (
	panelW = 128
	panelH = 64

	barTop    = 50
	barBottom = 62
)

// renderFrame draws one status frame: state on the first line, the last
// gesture on the second, and the EMG activity bar along the bottom.
func renderFrame(snap engine.Snapshot) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, panelW, panelH))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	state := "SYNCING"
	switch {
	case snap.Synced && snap.Locked:
		state = "LOCKED"
	case snap.Synced:
		state = "REC"
	}
	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte("myohub " + state))

	line := "--"
	if snap.Gestures > 0 {
		line = fmt.Sprintf("%s #%d", snap.LastGesture, snap.Gestures)
	}
	drawer.Dot = fixed.P(0, 33)
	drawer.DrawBytes([]byte(line))

	drawBar(img, snap.ActivityRatio)
	return img
}

// drawBar fills the framed bottom gauge proportional to ratio. Full
// scale is the calibration peak itself (ratio 1.0); anything past it
// pegs the bar.
func drawBar(img *image1bit.VerticalLSB, ratio float64) {
	for x := 0; x < panelW; x++ {
		img.Set(x, barTop, image1bit.On)
		img.Set(x, barBottom, image1bit.On)
	}
	for y := barTop; y <= barBottom; y++ {
		img.Set(0, y, image1bit.On)
		img.Set(panelW-1, y, image1bit.On)
	}

	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	fill := int(ratio*float64(panelW-2) + 0.5)
	for x := 1; x <= fill; x++ {
		for y := barTop + 1; y < barBottom; y++ {
			img.Set(x, y, image1bit.On)
		}
	}
}
