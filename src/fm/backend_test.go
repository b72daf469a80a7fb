package fm

import (
	"math"
	"testing"
)

// ----- Recording Backend ----- //

type paramCall struct {
	kind  string // set, linear, exponential, cancel
	value float64
	time  float64
}

type fakeParam struct {
	value  float64
	calls  []paramCall
	inputs int
}

func (p *fakeParam) Value() float64 {
	return p.value
}
func (p *fakeParam) SetValue(value float64) {
	p.value = value
	p.calls = append(p.calls, paramCall{kind: "set", value: value})
}
func (p *fakeParam) LinearRampToValueAtTime(value float64, endTime float64) {
	p.calls = append(p.calls, paramCall{kind: "linear", value: value, time: endTime})
}
func (p *fakeParam) ExponentialRampToValueAtTime(value float64, endTime float64) {
	p.calls = append(p.calls, paramCall{kind: "exponential", value: value, time: endTime})
}
func (p *fakeParam) CancelAndHoldAtTime(cancelTime float64) {
	p.calls = append(p.calls, paramCall{kind: "cancel", time: cancelTime})
}
func (p *fakeParam) last() paramCall {
	if len(p.calls) == 0 {
		return paramCall{}
	}
	return p.calls[len(p.calls)-1]
}

type fakeNode struct {
	kind      string
	backend   *fakeBackend
	outputs   []*fakeNode
	params    []*fakeParam
	freq      *fakeParam
	gain      *fakeParam
	delayTime *fakeParam
	maxDelay  float64
	started   int
}

func (n *fakeNode) Connect(dst Node) {
	n.outputs = append(n.outputs, dst.(*fakeNode))
	n.backend.connections++
}
func (n *fakeNode) ConnectParam(p Param) {
	fp := p.(*fakeParam)
	fp.inputs++
	n.params = append(n.params, fp)
	n.backend.connections++
}
func (n *fakeNode) Frequency() Param { return n.freq }
func (n *fakeNode) Start()           { n.started++ }
func (n *fakeNode) Gain() Param      { return n.gain }
func (n *fakeNode) DelayTime() Param { return n.delayTime }

func (n *fakeNode) connectedTo(dst *fakeNode) int {
	count := 0
	for _, o := range n.outputs {
		if o == dst {
			count++
		}
	}
	return count
}

type fakeBackend struct {
	now         float64
	nodes       []*fakeNode
	connections int
	destination *fakeNode
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{}
	b.destination = &fakeNode{kind: "destination", backend: b}
	return b
}

func (b *fakeBackend) add(n *fakeNode) *fakeNode {
	n.backend = b
	b.nodes = append(b.nodes, n)
	return n
}
func (b *fakeBackend) CreateOscillator() Oscillator {
	return b.add(&fakeNode{kind: "oscillator", freq: &fakeParam{}})
}
func (b *fakeBackend) CreateGain() Gain {
	return b.add(&fakeNode{kind: "gain", gain: &fakeParam{value: 1}})
}
func (b *fakeBackend) CreateDelay(maxDelayTime float64) Delay {
	return b.add(&fakeNode{kind: "delay", delayTime: &fakeParam{}, maxDelay: maxDelayTime})
}
func (b *fakeBackend) Destination() Node {
	return b.destination
}
func (b *fakeBackend) CurrentTime() float64 {
	return b.now
}

func (b *fakeBackend) count(kind string) int {
	count := 0
	for _, n := range b.nodes {
		if n.kind == kind {
			count++
		}
	}
	return count
}

// ----- Helpers ----- //

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
}

func expectCall(t *testing.T, got paramCall, want paramCall) {
	t.Helper()
	if got.kind != want.kind || math.Abs(got.value-want.value) > 1e-9 || math.Abs(got.time-want.time) > 1e-9 {
		t.Errorf("call mismatch: got=%+v want=%+v", got, want)
	}
}
