package audio

import (
	"math"
	"sort"

	"github.com/jinjor/fm-synth/src/fm"
)

// ----- Automation Kind ----- //

const (
	automationSet = iota
	automationLinear
	automationExponential
)

type automation struct {
	kind  int
	value float64
	time  float64 // sec
}

// ----- Param ----- //

// param is an automated value. Events are kept sorted by time; a ramp runs
// from the event before it (the anchor) to its own value and time.
type param struct {
	engine     *Engine
	value      float64 // anchor value
	anchorTime float64
	events     []automation
	inputs     []node
}

var _ fm.Param = (*param)(nil)

func newParam(e *Engine, value float64) *param {
	return &param{
		engine: e,
		value:  value,
	}
}

// Value returns the automated value at the current time, without inputs.
func (p *param) Value() float64 {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	return p.valueAt(p.engine.currentTime())
}

func (p *param) SetValue(value float64) {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	p.schedule(automation{kind: automationSet, value: value, time: p.engine.currentTime()})
}

func (p *param) LinearRampToValueAtTime(value float64, endTime float64) {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	p.schedule(automation{kind: automationLinear, value: value, time: endTime})
}

func (p *param) ExponentialRampToValueAtTime(value float64, endTime float64) {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	p.schedule(automation{kind: automationExponential, value: value, time: endTime})
}

func (p *param) schedule(a automation) {
	now := p.engine.currentTime()
	if len(p.events) == 0 {
		// a ramp with nothing before it starts from here
		p.value = p.valueAt(now)
		p.anchorTime = now
	}
	i := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].time > a.time
	})
	p.events = append(p.events, automation{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = a
}

// valueAt consumes every event that has ended by t.
func (p *param) valueAt(t float64) float64 {
	for len(p.events) > 0 && p.events[0].time <= t {
		p.value = p.events[0].value
		p.anchorTime = p.events[0].time
		p.events = p.events[1:]
	}
	if len(p.events) == 0 {
		return p.value
	}
	return interpolate(p.value, p.anchorTime, p.events[0], t)
}

// peek is valueAt without consuming events.
func (p *param) peek(t float64) float64 {
	value, anchorTime := p.value, p.anchorTime
	for _, a := range p.events {
		if a.time > t {
			return interpolate(value, anchorTime, a, t)
		}
		value, anchorTime = a.value, a.time
	}
	return value
}

func interpolate(value float64, anchorTime float64, next automation, t float64) float64 {
	pos := (t - anchorTime) / (next.time - anchorTime)
	switch next.kind {
	case automationLinear:
		return value + (next.value-value)*pos
	case automationExponential:
		if value == 0 || next.value == 0 || (value > 0) != (next.value > 0) {
			return value
		}
		return value * math.Pow(next.value/value, pos)
	}
	return value
}

// CancelAndHoldAtTime drops every event after cancelTime. A ramp running
// at cancelTime is cut short there, so the value holds from then on.
// A time in the past means now.
func (p *param) CancelAndHoldAtTime(cancelTime float64) {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	now := p.engine.currentTime()
	if cancelTime < now {
		cancelTime = now
	}
	p.valueAt(now)
	held := p.peek(cancelTime)
	i := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].time > cancelTime
	})
	if i < len(p.events) && p.events[i].kind != automationSet {
		cut := automation{kind: p.events[i].kind, value: held, time: cancelTime}
		p.events = append(p.events[:i], cut)
		return
	}
	p.events = p.events[:i]
}

// signal returns the automated value plus every connected input.
func (p *param) signal(t float64) float64 {
	value := p.valueAt(t)
	for _, in := range p.inputs {
		value += p.engine.pull(in)
	}
	return value
}
