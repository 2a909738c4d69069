package pointer

import "math"

// PinchThreshold is the thumb to index fingertip distance, in normalized
// camera units, below which the hand counts as pinched.
const PinchThreshold = 0.05

// Frame is one sample of the pointer in canvas pixels.
type Frame struct {
	X, Y float64
	// Active is false when no hand is in view; X and Y are then stale.
	Active bool
	// Activated pulses once per pinch, on the frame the pinch starts.
	Activated bool
}

// Point is a normalized [0,1] camera coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Hand is the raw landmark sample sent by the browser.
type Hand struct {
	Present bool  `json:"present"`
	Index   Point `json:"index"`
	Thumb   Point `json:"thumb"`
}

// Tracker turns hand samples into frames. The camera image is mirrored, so x is flipped.
type Tracker struct {
	Width, Height float64

	x, y     float64
	wasPinch bool
}

func NewTracker(width, height float64) *Tracker {
	return &Tracker{Width: width, Height: height}
}

func (t *Tracker) Sample(h Hand) Frame {
	if !h.Present {
		// a pinch cannot continue across frames without a hand
		t.wasPinch = false
		return Frame{X: t.x, Y: t.y}
	}

	t.x = (1 - h.Index.X) * t.Width
	t.y = h.Index.Y * t.Height

	pinch := math.Hypot(h.Index.X-h.Thumb.X, h.Index.Y-h.Thumb.Y) < PinchThreshold
	activated := pinch && !t.wasPinch
	t.wasPinch = pinch

	return Frame{X: t.x, Y: t.y, Active: true, Activated: activated}
}
