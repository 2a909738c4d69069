package game

const (
	SpawnChance  = 0.03 // per frame
	RadiusMin    = 20.0
	RadiusSpread = 25.0
	SpeedMin     = 2.0 // px per frame, upwards
	SpeedSpread  = 3.0
	SideMargin   = 25.0 // bubbles spawn at least this far from either edge
	EntryOffset  = 50.0 // spawn depth below the bottom edge
	ExitMargin   = 50.0 // removed once above -ExitMargin
	PopScore     = 10
)

// Tuning holds the per-loop knobs. DefaultTuning matches the constants above.
type Tuning struct {
	SpawnChance  float64
	RadiusMin    float64
	RadiusSpread float64
	SpeedMin     float64
	SpeedSpread  float64
}

func DefaultTuning() Tuning {
	return Tuning{
		SpawnChance:  SpawnChance,
		RadiusMin:    RadiusMin,
		RadiusSpread: RadiusSpread,
		SpeedMin:     SpeedMin,
		SpeedSpread:  SpeedSpread,
	}
}
