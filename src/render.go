package main

import (
	"github.com/jinjor/fm-synth/src/audio"
	"github.com/jinjor/fm-synth/src/fm"
)

// render plays a fixed sequence of notes offline.
type render struct {
	notes      []int
	velocity   int
	step       float64 // sec
	length     float64 // sec
	sampleRate int
}

func (r *render) samples(o *fm.Options) ([]float64, error) {
	e := audio.NewEngine(r.sampleRate)
	synth, err := fm.NewSynth(e, o)
	if err != nil {
		return nil, err
	}
	out := make([]float64, int(r.length*float64(r.sampleRate)))
	stepFrames := int(r.step * float64(r.sampleRate))
	pos := 0
	for i, note := range r.notes {
		at := i * stepFrames
		if at >= len(out) {
			break
		}
		e.Render(out[pos:at])
		pos = at
		synth.Play(note, r.velocity, o.Decay, o.OutputGain)
	}
	e.Render(out[pos:])
	return out, nil
}

func (r *render) writeWAV(o *fm.Options, path string) error {
	out, err := r.samples(o)
	if err != nil {
		return err
	}
	return audio.WriteWAV(path, out, r.sampleRate)
}
