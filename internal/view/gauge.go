// ABOUTME: Risk gauge geometry derived from the current score
// ABOUTME: 270 degree sweep, stroke progress along a fixed-radius arc

package view

import "math"

// Gauge band colors.
const (
	ColorGreen = "#10b981"
	ColorAmber = "#f59e0b"
	ColorRed   = "#ef4444"
)

const (
	gaugeRadius  = 80.0
	gaugeSweep   = 0.75 // 270 of 360 degrees
	gaugeRotate  = 135.0
	gaugeDegrees = 270.0
)

// Gauge is everything a renderer needs to draw the risk dial.
type Gauge struct {
	Score         float64
	Level         string
	Color         string
	Circumference float64
	// Progress is the stroke length along the arc for the current score.
	Progress      float64
	SweepDegrees  float64
	RotateDegrees float64
}

// ComputeGauge maps a 0..100 risk score onto the dial. Band boundaries are
// inclusive: 40 is still green, 70 is still amber.
func ComputeGauge(score float64) Gauge {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	circumference := 2 * math.Pi * gaugeRadius
	g := Gauge{
		Score:         score,
		Circumference: circumference,
		Progress:      score / 100 * circumference * gaugeSweep,
		SweepDegrees:  gaugeDegrees,
		RotateDegrees: gaugeRotate,
	}
	switch {
	case score <= 40:
		g.Level, g.Color = "low", ColorGreen
	case score <= 70:
		g.Level, g.Color = "medium", ColorAmber
	default:
		g.Level, g.Color = "high", ColorRed
	}
	return g
}
