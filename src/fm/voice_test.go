package fm

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func newTestVoice(t *testing.T, b *fakeBackend, routing RoutingTable, ratios []float64) *Voice {
	t.Helper()
	v, err := BuildVoice(b, b.destination, &VoiceConfig{
		Ratios:  ratios,
		Routing: routing,
		Rand:    rand.New(rand.NewSource(1)),
	})
	expectNoError(t, err)
	return v
}

func sixRatios() []float64 {
	return []float64{1, 2, 3, 4, 5, 6}
}

func TestMtof(t *testing.T) {
	if f := Mtof(69); f != 440.0 {
		t.Fatalf("expected 440, got %v", f)
	}
	if f := Mtof(81); math.Abs(f-880.0) > 1e-9 {
		t.Fatalf("expected 880, got %v", f)
	}
	if f := Mtof(57); math.Abs(f-220.0) > 1e-9 {
		t.Fatalf("expected 220, got %v", f)
	}
}

func TestBuildVoiceCreatesOneCellPerEdge(t *testing.T) {
	tables := append([]RoutingTable{}, Presets...)
	tables = append(tables, RoutingTable{{Output}, {Operator(0), Operator(2)}, {Operator(0)}, {Operator(3), Output}, {}, {Operator(1)}})
	for i, table := range tables {
		b := newFakeBackend()
		v := newTestVoice(t, b, table, sixRatios())
		edges := table.Edges()
		if v.Matrix().Len() != len(edges) {
			t.Errorf("table %d: expected %d cells, got %d", i, len(edges), v.Matrix().Len())
		}
		for _, e := range edges {
			if _, ok := v.Matrix().Cell(e.From, e.To); !ok {
				t.Errorf("table %d: missing cell %v", i, e)
			}
		}
		// cells plus the VCA
		if got := b.count("gain"); got != len(edges)+1 {
			t.Errorf("table %d: expected %d gains, got %d", i, len(edges)+1, got)
		}
		if got := b.count("oscillator"); got != 6 {
			t.Errorf("table %d: expected 6 oscillators, got %d", i, got)
		}
	}
}

func TestBuildVoiceRejectsMalformedBeforeWiring(t *testing.T) {
	b := newFakeBackend()
	_, err := BuildVoice(b, b.destination, &VoiceConfig{
		Ratios:  []float64{1, 2},
		Routing: RoutingTable{{Output}, {Operator(5)}},
	})
	if !errors.Is(err, ErrMalformedAlgorithm) {
		t.Fatalf("expected ErrMalformedAlgorithm, got %v", err)
	}
	if len(b.nodes) != 0 || b.connections != 0 {
		t.Fatalf("expected nothing created, got %d nodes %d connections", len(b.nodes), b.connections)
	}
}

func TestBuildVoiceRejectsRatioMismatch(t *testing.T) {
	b := newFakeBackend()
	_, err := BuildVoice(b, b.destination, &VoiceConfig{
		Ratios:  []float64{1},
		Routing: RoutingTable{{Output}, {Operator(0)}},
	})
	if !errors.Is(err, ErrInvalidRatios) {
		t.Fatalf("expected ErrInvalidRatios, got %v", err)
	}
}

func expectedConnections(table RoutingTable) int {
	n := 1 // VCA -> out
	for _, dests := range table {
		for _, d := range dests {
			if d.IsOutput() {
				n++
			} else {
				n += 2 // operator -> cell, cell -> frequency
			}
		}
	}
	return n
}

func TestArmWiresOnce(t *testing.T) {
	b := newFakeBackend()
	table := Presets[0]
	v := newTestVoice(t, b, table, sixRatios())
	want := expectedConnections(table)
	if b.connections != want {
		t.Fatalf("expected %d connections, got %d", want, b.connections)
	}
	err := v.arm(b.destination, defaultBaseFreq, rand.New(rand.NewSource(1)))
	if err != errAlreadyArmed {
		t.Fatalf("expected errAlreadyArmed, got %v", err)
	}
	if b.connections != want {
		t.Fatalf("second arm changed connections: got=%d want=%d", b.connections, want)
	}
	for _, op := range v.operators {
		if n := op.(*fakeNode).started; n != 1 {
			t.Fatalf("expected operator started once, got %d", n)
		}
	}
}

func TestArmInitialValues(t *testing.T) {
	b := newFakeBackend()
	ratios := []float64{1, 2.5, 3, 4, 5, 7}
	v := newTestVoice(t, b, Presets[0], ratios)
	for i, op := range v.operators {
		want := math.Floor(220 * ratios[i])
		if i == 0 {
			want = 220
		}
		if got := op.Frequency().Value(); got != want {
			t.Errorf("operator %d: frequency got=%v want=%v", i, got, want)
		}
	}
	for _, e := range v.Matrix().Edges() {
		cell, _ := v.Matrix().Cell(e.From, e.To)
		g := cell.Gain().Value()
		if e.From == e.To {
			if g != 0.05 {
				t.Errorf("feedback cell %v: got=%v want=0.05", e, g)
			}
			continue
		}
		if g != 100 && g != 150 && g != 200 {
			t.Errorf("cell %v: unexpected depth %v", e, g)
		}
		if cell.(*fakeNode).params[0] != v.operators[e.To].Frequency() {
			t.Errorf("cell %v does not modulate operator %d", e, e.To)
		}
	}
	if v.vca.Gain().Value() != 0 {
		t.Fatalf("expected silent VCA")
	}
	if v.vca.(*fakeNode).connectedTo(b.destination) != 1 {
		t.Fatalf("expected VCA connected to output once")
	}
	for _, i := range Presets[0].Carriers() {
		if v.operators[i].(*fakeNode).connectedTo(v.vca.(*fakeNode)) != 1 {
			t.Errorf("carrier %d not connected to VCA", i)
		}
	}
}

func TestArmIsDeterministicForSeed(t *testing.T) {
	a := newTestVoice(t, newFakeBackend(), Presets[2], sixRatios())
	b := newTestVoice(t, newFakeBackend(), Presets[2], sixRatios())
	for _, e := range a.Matrix().Edges() {
		ca, _ := a.Matrix().Cell(e.From, e.To)
		cb, _ := b.Matrix().Cell(e.From, e.To)
		if ca.Gain().Value() != cb.Gain().Value() {
			t.Fatalf("cell %v differs for the same seed", e)
		}
	}
}

func TestVoicePlaySchedulesEnvelopes(t *testing.T) {
	b := newFakeBackend()
	v := newTestVoice(t, b, Presets[0], sixRatios())
	v.Play(1.0, 81, 100, 2.0)

	vca := v.vca.Gain().(*fakeParam)
	n := len(vca.calls)
	expectCall(t, vca.calls[n-2], paramCall{kind: "linear", value: 100.0 / 127, time: 1.05})
	expectCall(t, vca.calls[n-1], paramCall{kind: "linear", value: 0, time: 3.1})

	for i, op := range v.operators {
		want := math.Floor(880 * float64(i+1))
		if i == 0 {
			want = 880
		}
		if got := op.Frequency().Value(); math.Abs(got-want) > 1e-9 {
			t.Errorf("operator %d: frequency got=%v want=%v", i, got, want)
		}
	}
	for _, e := range v.Matrix().Edges() {
		cell, _ := v.Matrix().Cell(e.From, e.To)
		p := cell.Gain().(*fakeParam)
		n := len(p.calls)
		expectCall(t, p.calls[n-2], paramCall{kind: "linear", value: 100, time: 1.05})
		expectCall(t, p.calls[n-1], paramCall{kind: "exponential", value: 1e-45, time: 3.0})
	}
}

func TestVoicePlayCutsPreviousNote(t *testing.T) {
	b := newFakeBackend()
	v := newTestVoice(t, b, Presets[0], sixRatios())
	v.Play(0, 60, 100, 2.0)
	vca := v.vca.Gain().(*fakeParam)
	n := len(vca.calls)
	cells := make([]int, len(v.Matrix().Edges()))
	for i, e := range v.Matrix().Edges() {
		cell, _ := v.Matrix().Cell(e.From, e.To)
		cells[i] = len(cell.Gain().(*fakeParam).calls)
	}

	v.Play(1.0, 67, 100, 2.0)
	expectCall(t, vca.calls[n], paramCall{kind: "cancel", time: 1.0})
	expectCall(t, vca.last(), paramCall{kind: "linear", value: 0, time: 3.1})
	for i, e := range v.Matrix().Edges() {
		cell, _ := v.Matrix().Cell(e.From, e.To)
		p := cell.Gain().(*fakeParam)
		expectCall(t, p.calls[cells[i]], paramCall{kind: "cancel", time: 1.0})
		expectCall(t, p.last(), paramCall{kind: "exponential", value: 1e-45, time: 3.0})
	}
}
