package fm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

const (
	defaultBaseFreq = 220.0
	baseModGain     = 50.0
	feedbackModGain = 0.05
	attackTime      = 0.05 // sec
	releaseTail     = 0.1  // sec
	decayFloor      = 1e-45
)

var errAlreadyArmed = errors.New("voice is already armed")

// ----- Modulation Matrix ----- //

// ModulationMatrix holds one gain per routed operator pair. Cells exist
// only for edges of the routing table and are never added or removed.
type ModulationMatrix struct {
	edges []Edge
	cells map[Edge]Gain
}

func newModulationMatrix(b Backend, routing RoutingTable) *ModulationMatrix {
	edges := routing.Edges()
	m := &ModulationMatrix{
		edges: edges,
		cells: make(map[Edge]Gain, len(edges)),
	}
	for _, e := range edges {
		m.cells[e] = b.CreateGain()
	}
	return m
}

// Cell returns the depth control of from -> to.
func (m *ModulationMatrix) Cell(from int, to int) (Gain, bool) {
	g, ok := m.cells[Edge{From: from, To: to}]
	return g, ok
}

// Len returns the number of cells.
func (m *ModulationMatrix) Len() int {
	return len(m.edges)
}

// Edges returns the routed pairs in routing table order.
func (m *ModulationMatrix) Edges() []Edge {
	return append([]Edge{}, m.edges...)
}

// ----- Voice ----- //

// VoiceConfig describes the operator bank of a voice.
type VoiceConfig struct {
	Ratios   []float64 // Ratios[0] is ignored: operator 0 always plays the note itself
	Routing  RoutingTable
	BaseFreq float64 // frequency the operators idle at before the first note
	Rand     *rand.Rand
}

// Voice is one operator bank with its modulation matrix and VCA.
type Voice struct {
	operators []Oscillator
	ratios    []float64
	routing   RoutingTable
	matrix    *ModulationMatrix
	vca       Gain
	armed     bool
}

// BuildVoice creates a voice on b and wires it into out. Operators are
// started immediately and keep running at zero gain between notes.
func BuildVoice(b Backend, out Node, c *VoiceConfig) (*Voice, error) {
	n := len(c.Routing)
	if err := c.Routing.Validate(n); err != nil {
		return nil, err
	}
	if len(c.Ratios) != n {
		return nil, fmt.Errorf("%w: %d ratios for %d operators", ErrInvalidRatios, len(c.Ratios), n)
	}
	baseFreq := c.BaseFreq
	if baseFreq <= 0 {
		baseFreq = defaultBaseFreq
	}
	rnd := c.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(rand.Int63()))
	}
	v := &Voice{
		operators: make([]Oscillator, n),
		ratios:    append([]float64{}, c.Ratios...),
		routing:   c.Routing,
		matrix:    newModulationMatrix(b, c.Routing),
		vca:       b.CreateGain(),
	}
	for i := range v.operators {
		v.operators[i] = b.CreateOscillator()
	}
	if err := v.arm(out, baseFreq, rnd); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Voice) arm(out Node, baseFreq float64, rnd *rand.Rand) error {
	if v.armed {
		return errAlreadyArmed
	}
	v.armed = true
	for i, op := range v.operators {
		op.Frequency().SetValue(v.operatorFreq(i, baseFreq))
		for _, d := range v.routing[i] {
			if d.IsOutput() {
				op.Connect(v.vca)
				continue
			}
			j := d.Index()
			cell := v.matrix.cells[Edge{From: i, To: j}]
			op.Connect(cell)
			cell.ConnectParam(v.operators[j].Frequency())
			if i == j {
				cell.Gain().SetValue(feedbackModGain)
			} else {
				cell.Gain().SetValue(baseModGain * float64(randInt(rnd, 2, 5)))
			}
		}
	}
	v.vca.Gain().SetValue(0)
	v.vca.Connect(out)
	for _, op := range v.operators {
		op.Start()
	}
	return nil
}

func (v *Voice) operatorFreq(i int, freq float64) float64 {
	if i == 0 {
		return freq
	}
	return math.Floor(freq * v.ratios[i])
}

// Play schedules a note starting at now. The attack is a fixed 50ms linear
// ramp; modulation depths then fall exponentially over decay and the VCA
// reaches zero 100ms after that. Frequencies jump without a glide.
// Ramps left over from the previous note are cut at now.
func (v *Voice) Play(now float64, note int, velocity int, decay float64) {
	freq := Mtof(note)
	vca := v.vca.Gain()
	vca.CancelAndHoldAtTime(now)
	for _, e := range v.matrix.edges {
		v.matrix.cells[e].Gain().CancelAndHoldAtTime(now)
	}
	vca.LinearRampToValueAtTime(float64(velocity)/127, now+attackTime)
	for i, op := range v.operators {
		op.Frequency().SetValue(v.operatorFreq(i, freq))
	}
	// velocity is the modulation index, not a 0..1 level
	for _, e := range v.matrix.edges {
		g := v.matrix.cells[e].Gain()
		g.LinearRampToValueAtTime(float64(velocity), now+attackTime)
		g.ExponentialRampToValueAtTime(decayFloor, now+decay)
	}
	vca.LinearRampToValueAtTime(0, now+decay+releaseTail)
}

// Matrix returns the modulation matrix of v.
func (v *Voice) Matrix() *ModulationMatrix {
	return v.matrix
}

// Operators returns the number of operators.
func (v *Voice) Operators() int {
	return len(v.operators)
}
