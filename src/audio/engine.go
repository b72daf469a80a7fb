package audio

import (
	"fmt"
	"math"
	"sync"

	"github.com/jinjor/fm-synth/src/fm"
)

// ----- Node ----- //

type node interface {
	fm.Node
	state() *nodeState
	process() float64
}

// nodeState caches the output of a node for the frame being rendered.
type nodeState struct {
	engine *Engine
	frame  int64
	out    float64
	busy   bool
	inputs []node
}

func newNodeState(e *Engine) nodeState {
	return nodeState{engine: e, frame: -1}
}

func (s *nodeState) state() *nodeState {
	return s
}

func (s *nodeState) sumInputs() float64 {
	sum := 0.0
	for _, in := range s.inputs {
		sum += s.engine.pull(in)
	}
	return sum
}

// ----- Gain ----- //

type gainNode struct {
	nodeState
	gain *param
}

func (g *gainNode) Connect(dst fm.Node)     { g.engine.connect(g, dst) }
func (g *gainNode) ConnectParam(p fm.Param) { g.engine.connectParam(g, p) }
func (g *gainNode) Gain() fm.Param          { return g.gain }

func (g *gainNode) process() float64 {
	return g.sumInputs() * g.gain.signal(g.engine.currentTime())
}

// ----- Destination ----- //

type destinationNode struct {
	nodeState
}

func (d *destinationNode) Connect(dst fm.Node)     { d.engine.connect(d, dst) }
func (d *destinationNode) ConnectParam(p fm.Param) { d.engine.connectParam(d, p) }

func (d *destinationNode) process() float64 {
	return d.sumInputs()
}

// ----- Engine ----- //

// Engine renders a graph of oscillators, gains and delays one sample at a
// time. It implements fm.Backend; time is the sample clock.
type Engine struct {
	mu          sync.Mutex
	sampleRate  int
	frame       int64
	destination *destinationNode
	peak        float64
	analyser    *analyser
}

var _ fm.Backend = (*Engine)(nil)

// NewEngine returns an empty graph.
func NewEngine(sampleRate int) *Engine {
	e := &Engine{sampleRate: sampleRate, analyser: newAnalyser()}
	e.destination = &destinationNode{nodeState: newNodeState(e)}
	return e
}

// SampleRate returns the rendering rate in Hz.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// CurrentTime returns the time of the next frame to be rendered.
func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTime()
}

func (e *Engine) currentTime() float64 {
	return float64(e.frame) / float64(e.sampleRate)
}

// CreateOscillator returns a sine oscillator, silent until started.
func (e *Engine) CreateOscillator() fm.Oscillator {
	return &oscNode{nodeState: newNodeState(e), freq: newParam(e, 440)}
}

// CreateGain returns a gain of 1.
func (e *Engine) CreateGain() fm.Gain {
	return &gainNode{nodeState: newNodeState(e), gain: newParam(e, 1)}
}

// CreateDelay returns a delay line that can delay up to maxDelayTime seconds.
func (e *Engine) CreateDelay(maxDelayTime float64) fm.Delay {
	return newDelayNode(e, maxDelayTime)
}

// Destination returns the node whose input is rendered.
func (e *Engine) Destination() fm.Node {
	return e.destination
}

func (e *Engine) connect(src node, dst fm.Node) {
	d, ok := dst.(node)
	if !ok || d.state().engine != e {
		panic(fmt.Errorf("cannot connect to %T", dst))
	}
	if _, ok := d.(*oscNode); ok {
		panic("oscillators have no audio input")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	d.state().inputs = append(d.state().inputs, src)
}

func (e *Engine) connectParam(src node, dst fm.Param) {
	p, ok := dst.(*param)
	if !ok || p.engine != e {
		panic(fmt.Errorf("cannot connect to %T", dst))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p.inputs = append(p.inputs, src)
}

// pull returns the output of n for the current frame. A node reached again
// while it is being computed is part of a feedback loop and yields its
// previous output.
func (e *Engine) pull(n node) float64 {
	s := n.state()
	if s.frame == e.frame || s.busy {
		return s.out
	}
	s.busy = true
	out := n.process()
	s.busy = false
	s.frame = e.frame
	s.out = out
	return out
}

// Render fills out with the next len(out) frames.
func (e *Engine) Render(out []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	peak := 0.0
	for i := range out {
		out[i] = e.pull(e.destination)
		peak = math.Max(peak, math.Abs(out[i]))
		e.frame++
	}
	e.peak = peak
	e.analyser.write(out)
}

// Level returns the peak of the last rendered block.
func (e *Engine) Level() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peak
}

// Spectrum returns the magnitude spectrum of the last fftSize rendered
// frames, fftSize/2 bins from DC up.
func (e *Engine) Spectrum() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float64{}, e.analyser.spectrum()...)
}
