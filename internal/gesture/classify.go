package gesture

import "math"

// Tuning constants for the trail buffer and the classifier. The thresholds
// are calibrated against trails of at most CacheSize/2 points recorded at
// roughly 50 Hz; they are not meant to be configurable at runtime.
const (
	// CacheSize is the trail capacity in floats; samples are stored as
	// interleaved (x, y) pairs, so at most CacheSize/2 points.
	CacheSize = 128

	// CircleSamples is the number of evenly spaced sample points the
	// circle fit draws from the trail.
	CircleSamples = 10

	CircleMinDiameter  = 0.65
	CircleMaxDeviation = 0.3
	MaxEndsDistance    = 0.4

	RotationMaxVariance = 0.15
	RotationMinAngle    = math.Pi / 6

	StraightMaxRelation = 0.5
	StraightMinDistance = 0.3

	// YDeviationCorrection amplifies the vertical moment: vertical arm
	// movement covers a narrower angular range than horizontal.
	YDeviationCorrection = 1.3
)

// Point is one recorded pointing sample, in radians.
type Point struct {
	X float64
	Y float64
}

// Classify maps a recorded trail and its final roll angle to a gesture
// label. The decision order is fixed: circular movement first, then wrist
// rotation, then straight movement; anything else is Unknown.
func Classify(points []Point, roll float64) Label {
	n := len(points)
	if n == 0 {
		return Unknown
	}

	if label, ok := classifyCircle(points); ok {
		return label
	}

	// Second moments about the origin, not the mean. The thresholds are
	// tuned for these uncentered sums.
	var xTotal, yTotal, xDev, yDev float64
	for _, p := range points {
		xTotal += p.X
		yTotal += p.Y
		xDev += p.X * p.X
		yDev += p.Y * p.Y
	}
	xDev /= float64(n)
	yDev /= float64(n)
	yDev *= YDeviationCorrection

	relation := xDev / yDev

	if xDev <= RotationMaxVariance && yDev <= RotationMaxVariance && roll*roll > RotationMinAngle*RotationMinAngle {
		if roll < 0 {
			return RotateCW
		}
		return RotateCCW
	}

	distance := dist(points[n-1], Point{})

	if xDev > yDev && relation > 1/StraightMaxRelation && distance >= StraightMinDistance {
		if xTotal > 0 {
			return Right
		}
		return Left
	}
	if yDev > xDev && relation < StraightMaxRelation && distance >= StraightMinDistance {
		if yTotal > 0 {
			return Up
		}
		return Down
	}

	return Unknown
}

// classifyCircle runs the circular movement test. It reports ok=false when
// the trail is too short for sampling or the circle conditions fail.
func classifyCircle(points []Point) (Label, bool) {
	n := len(points)
	stride := n / CircleSamples
	if stride < 1 {
		return Unknown, false
	}

	// Approximate diameter per sample point: its greatest distance to any
	// recorded point. The sample points also vote for the circle center.
	var diameters [CircleSamples]float64
	var centerX, centerY float64
	for j := 0; j < CircleSamples; j++ {
		sp := points[j*stride]
		centerX += sp.X
		centerY += sp.Y
		for _, p := range points {
			if d := dist(sp, p); d > diameters[j] {
				diameters[j] = d
			}
		}
	}
	center := Point{X: centerX / CircleSamples, Y: centerY / CircleSamples}

	var averageRadius float64
	for _, d := range diameters {
		averageRadius += d
	}
	averageRadius /= CircleSamples * 2

	// Radial standard deviation plus traversal-order extrema for the
	// direction test. The seeds (x max 0, y max 0, x min 1000) and strict
	// comparisons are part of the tuned behavior: ties keep the earliest
	// index, and an all-negative x trail never moves the x maximum.
	xMax, yMax := 0.0, 0.0
	xMin := 1000.0
	var xMaxIdx, xMinIdx, yMaxIdx int
	var deviation float64
	for i, p := range points {
		deviation += sqr(dist(center, p) - averageRadius)
		if p.X > xMax {
			xMax = p.X
			xMaxIdx = i
		}
		if p.X < xMin {
			xMin = p.X
			xMinIdx = i
		}
		if p.Y > yMax {
			yMax = p.Y
			yMaxIdx = i
		}
	}
	deviation = math.Sqrt(deviation / float64(n))

	endsDistance := dist(points[0], points[n-1])

	if averageRadius*2 < CircleMinDiameter || deviation > CircleMaxDeviation || endsDistance > MaxEndsDistance {
		return Unknown, false
	}

	clockwise := (xMinIdx < yMaxIdx && yMaxIdx < xMaxIdx) ||
		(yMaxIdx < xMaxIdx && xMaxIdx < xMinIdx) ||
		(xMaxIdx < xMinIdx && xMinIdx < yMaxIdx)
	if clockwise {
		return CircleCW, true
	}
	return CircleCCW, true
}

func sqr(v float64) float64 { return v * v }

func dist(a, b Point) float64 {
	return math.Sqrt(sqr(a.X-b.X) + sqr(a.Y-b.Y))
}
