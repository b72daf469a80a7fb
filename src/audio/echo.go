package audio

import (
	"math"

	"github.com/jinjor/fm-synth/src/fm"
)

// ----- Delay ----- //

type delay struct {
	cursor int
	past   []float64
}

func newDelay(length int) *delay {
	if length < 1 {
		length = 1
	}
	return &delay{past: make([]float64, length)}
}

func (d *delay) step(in float64) {
	d.past[d.cursor] = in
	d.cursor++
	if d.cursor >= len(d.past) {
		d.cursor = 0
	}
}

// getDelayed returns the sample written n steps ago, 1 <= n <= len(past).
func (d *delay) getDelayed(n int) float64 {
	i := d.cursor - n
	if i < 0 {
		i += len(d.past)
	}
	return d.past[i]
}

// ----- Delay Node ----- //

type delayNode struct {
	nodeState
	delayTime *param
	line      *delay
}

func newDelayNode(e *Engine, maxDelayTime float64) *delayNode {
	length := int(math.Ceil(maxDelayTime * float64(e.sampleRate)))
	return &delayNode{
		nodeState: newNodeState(e),
		delayTime: newParam(e, 0),
		line:      newDelay(length),
	}
}

func (d *delayNode) Connect(dst fm.Node)     { d.engine.connect(d, dst) }
func (d *delayNode) ConnectParam(p fm.Param) { d.engine.connectParam(d, p) }
func (d *delayNode) DelayTime() fm.Param     { return d.delayTime }

// process publishes its output before pulling its inputs so that a
// feedback loop back into the delay reads this frame's output.
func (d *delayNode) process() float64 {
	n := int(math.Round(d.delayTime.signal(d.engine.currentTime()) * float64(d.engine.sampleRate)))
	if n < 1 {
		n = 1
	}
	if n > len(d.line.past) {
		n = len(d.line.past)
	}
	out := d.line.getDelayed(n)
	d.out = out
	d.line.step(d.sumInputs())
	return out
}
