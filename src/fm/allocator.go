package fm

import "math"

// unused marks a voice that has never been triggered. It sorts before any
// real transport time, including 0.
var unused = math.Inf(-1)

// ----- Voice Allocator ----- //

// VoiceAllocator hands out voices least-recently-triggered first. A voice
// that is still releasing is stolen without any fade; the allocator knows
// nothing about envelopes, only about trigger times.
//
// Next is the only operation that touches the timestamps, so a concurrent
// host only needs to serialize calls to it.
type VoiceAllocator struct {
	voices   []*Voice
	lastUsed []float64
}

// NewVoiceAllocator returns an allocator over voices, all unused.
func NewVoiceAllocator(voices []*Voice) *VoiceAllocator {
	lastUsed := make([]float64, len(voices))
	for i := range lastUsed {
		lastUsed[i] = unused
	}
	return &VoiceAllocator{
		voices:   voices,
		lastUsed: lastUsed,
	}
}

// Next selects the voice with the oldest trigger time, lowest index first
// on ties, and marks it as triggered at now.
func (a *VoiceAllocator) Next(now float64) (int, *Voice) {
	oldest := 0
	for i, t := range a.lastUsed {
		if t < a.lastUsed[oldest] {
			oldest = i
		}
	}
	a.lastUsed[oldest] = now
	return oldest, a.voices[oldest]
}

// LastUsed returns the trigger time of voice i and whether it was ever used.
func (a *VoiceAllocator) LastUsed(i int) (float64, bool) {
	t := a.lastUsed[i]
	return t, !math.IsInf(t, -1)
}

// Len returns the pool size.
func (a *VoiceAllocator) Len() int {
	return len(a.voices)
}
