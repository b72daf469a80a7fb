package fm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedAlgorithm is returned when a routing table points somewhere
// other than an operator of the voice or the output.
var ErrMalformedAlgorithm = errors.New("malformed algorithm")

const outputName = "out"

// ----- Destination ----- //

// Destination is where an operator sends its signal: another operator's
// frequency or the voice output.
type Destination struct {
	operator int
	output   bool
}

// Output routes an operator to the audible mix.
var Output = Destination{operator: -1, output: true}

// Operator routes to the frequency input of operator i.
func Operator(i int) Destination {
	return Destination{operator: i}
}

// IsOutput reports whether d is the output.
func (d Destination) IsOutput() bool {
	return d.output
}

// Index returns the target operator, or -1 for the output.
func (d Destination) Index() int {
	if d.output {
		return -1
	}
	return d.operator
}

func (d Destination) String() string {
	if d.output {
		return outputName
	}
	return strconv.Itoa(d.operator)
}

// MarshalJSON encodes operators as numbers and the output as "out".
func (d Destination) MarshalJSON() ([]byte, error) {
	if d.output {
		return json.Marshal(outputName)
	}
	return json.Marshal(d.operator)
}

// UnmarshalJSON accepts an integer or "out".
func (d *Destination) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != outputName {
			return fmt.Errorf("%w: unknown destination %q", ErrMalformedAlgorithm, s)
		}
		*d = Output
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: unknown destination %s", ErrMalformedAlgorithm, string(data))
	}
	if f != float64(int(f)) {
		return fmt.Errorf("%w: destination %v is not an integer", ErrMalformedAlgorithm, f)
	}
	*d = Operator(int(f))
	return nil
}

// ----- Routing Table ----- //

// RoutingTable lists the destinations of each operator, indexed by source.
// A source routed to itself is the feedback case.
type RoutingTable [][]Destination

// Edge is one operator-to-operator modulation route.
type Edge struct {
	From int
	To   int
}

// Validate checks t against a voice of n operators.
func (t RoutingTable) Validate(n int) error {
	if len(t) != n {
		return fmt.Errorf("%w: %d sources for %d operators", ErrMalformedAlgorithm, len(t), n)
	}
	for i, dests := range t {
		seen := make(map[Destination]bool, len(dests))
		for _, d := range dests {
			if !d.output && (d.operator < 0 || d.operator >= n) {
				return fmt.Errorf("%w: operator %d routes to %v", ErrMalformedAlgorithm, i, d)
			}
			if seen[d] {
				return fmt.Errorf("%w: operator %d routes to %v twice", ErrMalformedAlgorithm, i, d)
			}
			seen[d] = true
		}
	}
	return nil
}

// Edges returns the operator-to-operator routes in table order.
func (t RoutingTable) Edges() []Edge {
	var edges []Edge
	for i, dests := range t {
		for _, d := range dests {
			if !d.output {
				edges = append(edges, Edge{From: i, To: d.operator})
			}
		}
	}
	return edges
}

// Carriers returns the operators routed to the output.
func (t RoutingTable) Carriers() []int {
	var carriers []int
	for i, dests := range t {
		for _, d := range dests {
			if d.output {
				carriers = append(carriers, i)
				break
			}
		}
	}
	return carriers
}

// Clone returns a deep copy so that presets are never shared.
func (t RoutingTable) Clone() RoutingTable {
	c := make(RoutingTable, len(t))
	for i, dests := range t {
		c[i] = append([]Destination{}, dests...)
	}
	return c
}

// MarshalJSON encodes t as an object keyed by source index.
func (t RoutingTable) MarshalJSON() ([]byte, error) {
	m := make(map[string][]Destination, len(t))
	for i, dests := range t {
		if dests == nil {
			dests = []Destination{}
		}
		m[strconv.Itoa(i)] = dests
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes an object keyed by source index, e.g.
// {"0": ["out"], "1": [0], "2": []}. Keys must be 0..n-1.
func (t *RoutingTable) UnmarshalJSON(data []byte) error {
	var m map[string][]Destination
	if err := json.Unmarshal(data, &m); err != nil {
		if errors.Is(err, ErrMalformedAlgorithm) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMalformedAlgorithm, err)
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		i, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return fmt.Errorf("%w: invalid source %q", ErrMalformedAlgorithm, k)
		}
		keys = append(keys, i)
	}
	sort.Ints(keys)
	table := make(RoutingTable, len(keys))
	for i, k := range keys {
		if k != i {
			return fmt.Errorf("%w: missing source %d", ErrMalformedAlgorithm, i)
		}
	}
	for k, dests := range m {
		i, _ := strconv.Atoi(strings.TrimSpace(k))
		table[i] = dests
	}
	*t = table
	return nil
}

// ParseRoutingTable parses the JSON form accepted by UnmarshalJSON.
func ParseRoutingTable(s string) (RoutingTable, error) {
	var t RoutingTable
	if err := json.Unmarshal([]byte(s), &t); err != nil {
		return nil, err
	}
	return t, nil
}

// ----- Presets ----- //

// Presets are the built-in six-operator algorithms.
var Presets = []RoutingTable{
	// two carriers: 1->0, and a 5->4->3->2 chain with feedback on 5
	{{Output}, {Operator(0)}, {Output}, {Operator(2)}, {Operator(3)}, {Operator(4), Operator(5)}},
	// feedback on the short chain instead
	{{Output}, {Operator(0), Operator(1)}, {Output}, {Operator(2)}, {Operator(3)}, {Operator(4)}},
	// split: 2->1->0 and 5->4->3 with feedback on 5
	{{Output}, {Operator(0)}, {Operator(1)}, {Output}, {Operator(3)}, {Operator(4), Operator(5)}},
	// 2->1->0 plus a plain carrier, 4 and 5 unused
	{{Output}, {Operator(0)}, {Operator(1)}, {Output}, {}, {}},
	// single chain
	{{Output}, {Operator(0)}, {Operator(1)}, {Operator(2)}, {Operator(3)}, {Operator(4)}},
	// parallel stack: three modulator/carrier pairs
	{{Output}, {Operator(0)}, {Output}, {Operator(2)}, {Output}, {Operator(4)}},
	// plain additive
	{{Output}, {Output}, {Output}, {Output}, {Output}, {Output}},
}

// Preset returns a copy of preset i.
func Preset(i int) (RoutingTable, error) {
	if i < 0 || i >= len(Presets) {
		return nil, fmt.Errorf("%w: no preset %d", ErrMalformedAlgorithm, i)
	}
	return Presets[i].Clone(), nil
}

// ResolveRouting returns custom if given, otherwise the preset, validated
// against n operators.
func ResolveRouting(custom RoutingTable, preset int, n int) (RoutingTable, error) {
	var t RoutingTable
	if custom != nil {
		t = custom.Clone()
	} else {
		p, err := Preset(preset)
		if err != nil {
			return nil, err
		}
		t = p
	}
	if err := t.Validate(n); err != nil {
		return nil, err
	}
	return t, nil
}
