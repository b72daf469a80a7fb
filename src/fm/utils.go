package fm

import (
	"math"
	"math/rand"
)

// ----- Utility ----- //

// Mtof converts a MIDI note number to a frequency in Hz (A4 = 69 = 440 Hz).
func Mtof(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// randInt returns an integer in [min, max).
func randInt(rnd *rand.Rand, min int, max int) int {
	return min + rnd.Intn(max-min)
}

func clampMidi(v int) int {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}
