package fm

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// ----- Synth ----- //

// Synth is a pool of FM voices sharing one routing table and ratio set,
// mixed through a global output gain and an optional feedback delay.
type Synth struct {
	mu         sync.Mutex
	backend    Backend
	mode       Mode
	options    Options
	ratios     []float64
	routing    RoutingTable
	voices     []*Voice
	allocator  *VoiceAllocator
	output     Gain
	outputGain float64
	channel    int
	decay      float64
	delay      Delay
	feedback   Gain
}

// NewSynth builds every voice on b and connects the output stage. All
// configuration errors are reported here, before anything is wired.
func NewSynth(b Backend, o *Options) (*Synth, error) {
	if o == nil {
		o = DefaultOptions()
	}
	mode, err := ParseMode(o.Mode)
	if err != nil {
		return nil, err
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	rnd := o.Rand
	if rnd == nil {
		seed := o.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rnd = rand.New(rand.NewSource(seed))
	}
	routing, err := ResolveRouting(o.Algorithm, o.Preset, o.Operators)
	if err != nil {
		return nil, err
	}
	ratios, err := resolveRatios(o.Ratios, o.Operators, rnd)
	if err != nil {
		return nil, err
	}

	s := &Synth{
		backend:    b,
		mode:       mode,
		options:    *o,
		ratios:     ratios,
		routing:    routing,
		voices:     make([]*Voice, o.Voices),
		output:     b.CreateGain(),
		outputGain: o.OutputGain,
		channel:    o.Channel,
		decay:      o.Decay,
	}
	s.options.Algorithm = routing
	s.options.Ratios = ratios
	s.options.Rand = nil
	for i := range s.voices {
		v, err := BuildVoice(b, s.output, &VoiceConfig{
			Ratios:   ratios,
			Routing:  routing,
			BaseFreq: o.BaseFreq,
			Rand:     rnd,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build voice %d: %w", i, err)
		}
		s.voices[i] = v
	}
	s.allocator = NewVoiceAllocator(s.voices)
	s.output.Gain().SetValue(s.outputGain)
	s.connectOutput(o.Delay, o.DelayTime)
	return s, nil
}

func (s *Synth) connectOutput(delay bool, delayTime float64) {
	dst := s.backend.Destination()
	s.output.Connect(dst)
	if !delay {
		return
	}
	s.delay = s.backend.CreateDelay(maxDelayTime)
	s.delay.DelayTime().SetValue(delayTime)
	s.delay.Connect(dst)
	s.feedback = s.backend.CreateGain()
	s.feedback.Gain().SetValue(delayFeedback)
	s.feedback.Connect(s.delay)
	s.delay.Connect(s.feedback)
	s.output.Connect(s.delay)
}

// Play triggers a note on the least recently triggered voice and sets the
// output level immediately. It returns the index of the voice used.
// A non-positive decay uses the configured default.
func (s *Synth) Play(note int, velocity int, decay float64, outputGain float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.play(note, velocity, decay, outputGain)
}

func (s *Synth) play(note int, velocity int, decay float64, outputGain float64) int {
	if decay <= 0 {
		decay = s.decay
	}
	now := s.backend.CurrentTime()
	i, v := s.allocator.Next(now)
	v.Play(now, clampMidi(note), clampMidi(velocity), decay)
	s.outputGain = outputGain
	s.output.Gain().SetValue(outputGain)
	return i
}

// Mode returns the voice mode.
func (s *Synth) Mode() Mode {
	return s.mode
}

// Channel returns the MIDI channel (1-16) that note-ons are accepted on.
func (s *Synth) Channel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// SetChannel changes the accepted MIDI channel.
func (s *Synth) SetChannel(channel int) error {
	if channel < 1 || channel > 16 {
		return fmt.Errorf("%w: channel must be 1-16, got %d", ErrInvalidOptions, channel)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = channel
	s.options.Channel = channel
	return nil
}

// Decay returns the default decay in seconds.
func (s *Synth) Decay() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decay
}

// OutputGain returns the current output level.
func (s *Synth) OutputGain() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputGain
}

// Voices returns the voice pool.
func (s *Synth) Voices() []*Voice {
	return append([]*Voice{}, s.voices...)
}

// LastUsed returns the trigger time of every voice; ok is false for
// voices that were never triggered.
func (s *Synth) LastUsed() (times []float64, ok []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	times = make([]float64, s.allocator.Len())
	ok = make([]bool, s.allocator.Len())
	for i := range times {
		times[i], ok[i] = s.allocator.LastUsed(i)
	}
	return times, ok
}

// Options returns the resolved configuration, including the ratios and
// routing table actually in use.
func (s *Synth) Options() *Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.options
	o.OutputGain = s.outputGain
	o.Algorithm = s.routing.Clone()
	o.Ratios = append([]float64{}, s.ratios...)
	return &o
}
