package audio

import (
	"math"

	"github.com/jinjor/fm-synth/src/fm"
)

// ----- OSC ----- //

// oscNode is a sine oscillator. Nodes connected to its frequency param
// modulate it at audio rate.
type oscNode struct {
	nodeState
	freq    *param
	started bool
	phase   float64
}

func (o *oscNode) Connect(dst fm.Node)     { o.engine.connect(o, dst) }
func (o *oscNode) ConnectParam(p fm.Param) { o.engine.connectParam(o, p) }
func (o *oscNode) Frequency() fm.Param     { return o.freq }

// Start begins generating. There is no Stop: an oscillator runs for the
// life of the engine.
func (o *oscNode) Start() {
	o.engine.mu.Lock()
	defer o.engine.mu.Unlock()
	o.started = true
}

func (o *oscNode) process() float64 {
	if !o.started {
		return 0.0
	}
	freq := o.freq.signal(o.engine.currentTime())
	value := math.Sin(o.phase)
	o.phase = positiveMod(o.phase+2.0*math.Pi*freq/float64(o.engine.sampleRate), 2.0*math.Pi)
	return value
}

func positiveMod(a float64, b float64) float64 {
	if b < 0 {
		panic("b should not be negative")
	}
	m := math.Mod(a, b)
	if m < 0 {
		m += b
	}
	return m
}
