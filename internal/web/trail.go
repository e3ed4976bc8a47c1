package web

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"net/http"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"myohub/internal/engine"
)

const trailSize = 240

var (
	trailBG   = color.RGBA{17, 24, 32, 255}
	trailAxis = color.RGBA{60, 72, 88, 255}
	trailInk  = color.RGBA{122, 230, 168, 255}
	trailText = color.RGBA{214, 222, 230, 255}
)

// renderTrail draws the last classified trail into a square chart. The
// trail coordinate space is [-1,1] on both axes, x right and y up;
// pixels run y-down, so the vertical axis flips. Points past the unit
// range pin to the chart edge.
func renderTrail(snap engine.Snapshot) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, trailSize, trailSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{trailBG}, image.Point{}, draw.Src)

	mid := trailSize / 2
	for i := 0; i < trailSize; i++ {
		img.Set(i, mid, trailAxis)
		img.Set(mid, i, trailAxis)
	}

	for _, p := range snap.LastTrail {
		x, y := trailPixel(p.X, p.Y)
		dot(img, x, y)
	}

	label := "--"
	if snap.Gestures > 0 {
		label = fmt.Sprintf("%s  #%d", snap.LastGesture, snap.Gestures)
	}
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(trailText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(8, 18),
	}
	d.DrawString(label)

	return img
}

func trailPixel(x, y float64) (int, int) {
	px := int((clipTrail(x) + 1) / 2 * (trailSize - 1))
	py := int((1 - clipTrail(y)) / 2 * (trailSize - 1))
	return px, py
}

func clipTrail(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func dot(img *image.RGBA, cx, cy int) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if p := image.Pt(cx+dx, cy+dy); p.In(img.Bounds()) {
				img.Set(p.X, p.Y, trailInk)
			}
		}
	}
}

func trailHandler(status *Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		img := renderTrail(status.EngineSnapshot())
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		if err := png.Encode(w, img); err != nil {
			log.Printf("web: encode trail png: %v", err)
		}
	}
}
