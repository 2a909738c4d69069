package game

import (
	"math"
	"math/rand"

	"github.com/samber/lo"
)

type Bubble struct {
	X, Y   float64
	Radius float64
	Speed  float64
	Hue    float64
}

// Hit reports whether (x, y) lies strictly inside the bubble.
func (b Bubble) Hit(x, y float64) bool {
	return math.Hypot(b.X-x, b.Y-y) < b.Radius
}

// Loop is the per-frame bubble simulation of one player. It is not safe for
// concurrent use; the owning session drives it from a single goroutine.
type Loop struct {
	Width, Height float64
	Tuning        Tuning

	bubbles []Bubble
	score   int
	rng     *rand.Rand
}

func NewLoop(width, height float64, rng *rand.Rand) *Loop {
	return &Loop{
		Width:  width,
		Height: height,
		Tuning: DefaultTuning(),
		rng:    rng,
	}
}

// Reset clears the field and the score for a new match.
func (l *Loop) Reset() {
	l.bubbles = nil
	l.score = 0
}

func (l *Loop) Score() int {
	return l.score
}

func (l *Loop) Bubbles() []Bubble {
	return append([]Bubble(nil), l.bubbles...)
}

// Spawn places b on the field as is.
func (l *Loop) Spawn(b Bubble) {
	l.bubbles = append(l.bubbles, b)
}

func (l *Loop) newBubble() Bubble {
	t := l.Tuning

	return Bubble{
		Radius: l.rng.Float64()*t.RadiusSpread + t.RadiusMin,
		X:      l.rng.Float64()*(l.Width-2*SideMargin) + SideMargin,
		Y:      l.Height + EntryOffset,
		Speed:  l.rng.Float64()*t.SpeedSpread + t.SpeedMin,
		Hue:    l.rng.Float64() * 360,
	}
}

// Step advances one frame: maybe spawn, move every bubble up, drop the ones gone off the top.
func (l *Loop) Step() {
	if l.rng.Float64() < l.Tuning.SpawnChance {
		l.bubbles = append(l.bubbles, l.newBubble())
	}

	for i := range l.bubbles {
		l.bubbles[i].Y -= l.bubbles[i].Speed
	}

	l.bubbles = lo.Filter(l.bubbles, func(b Bubble, _ int) bool {
		return b.Y >= -ExitMargin
	})
}

// Pop handles one activation at (x, y). Every bubble under the pointer pops.
// Returns how many popped.
func (l *Loop) Pop(x, y float64) int {
	kept := l.bubbles[:0]
	popped := 0

	for _, b := range l.bubbles {
		if b.Hit(x, y) {
			popped++
			continue
		}
		kept = append(kept, b)
	}

	l.bubbles = kept
	l.score += popped * PopScore

	return popped
}
