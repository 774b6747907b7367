package format

import "math"

// StarScale is the number of units in a rating display.
const StarScale = 5

// Stars is the unit breakdown of a score on the fixed scale.
type Stars struct {
	Full  int
	Half  int
	Empty int
}

// RenderStars splits score into full units (its floor), one half unit when
// the fractional part is at least 0.5, and empty units for the rest.
// Scores are clamped to the scale.
func RenderStars(score float64) Stars {
	if math.IsNaN(score) || score < 0 {
		score = 0
	}
	if score > StarScale {
		score = StarScale
	}
	full := int(math.Floor(score))
	half := 0
	if score-float64(full) >= 0.5 {
		half = 1
	}
	return Stars{Full: full, Half: half, Empty: StarScale - full - half}
}
