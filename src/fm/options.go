package fm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// ErrInvalidRatios is returned for a ratio list that does not fit the operators.
var ErrInvalidRatios = errors.New("invalid ratios")

// ErrInvalidOptions is returned for out-of-range construction options.
var ErrInvalidOptions = errors.New("invalid options")

const (
	maxDelayTime  = 10.0 // sec
	delayFeedback = 0.8
	minRatio      = 2
	maxRatio      = 16 // exclusive
)

// ----- Mode ----- //

// Mode is the voice mode of a Synth. It is reported back but does not
// change voice allocation.
type Mode int

// ErrInvalidMode is returned for an unknown mode name.
var ErrInvalidMode = errors.New("invalid synth mode")

const (
	ModeMono Mode = iota
	ModePoly
	// ModeDrum is accepted but plays like ModePoly.
	ModeDrum
)

var modeNames = []string{"mono", "poly", "drum"}

// ParseMode parses "mono", "poly" or "drum", ignoring case.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ----- Options ----- //

// Options configures a Synth. Structural fields are fixed at construction.
type Options struct {
	Mode       string       `json:"mode"`
	Voices     int          `json:"voices"`
	Operators  int          `json:"operators"`
	Preset     int          `json:"preset"`
	Algorithm  RoutingTable `json:"algorithm,omitempty"` // overrides Preset
	Ratios     []float64    `json:"ratios,omitempty"`    // random when empty
	Channel    int          `json:"channel"`             // 1-16
	Delay      bool         `json:"delay"`
	DelayTime  float64      `json:"delayTime"` // sec
	Decay      float64      `json:"decay"`     // sec
	OutputGain float64      `json:"outputGain"`
	BaseFreq   float64      `json:"baseFreq"`
	Seed       int64        `json:"seed"` // 0 seeds from the clock

	// Rand overrides Seed when set.
	Rand *rand.Rand `json:"-"`
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		Mode:       "poly",
		Voices:     8,
		Operators:  6,
		Preset:     0,
		Channel:    1,
		Delay:      false,
		DelayTime:  0.5,
		Decay:      2,
		OutputGain: 0.1,
		BaseFreq:   defaultBaseFreq,
	}
}

// ApplyJSON overwrites the fields present in data.
func (o *Options) ApplyJSON(data []byte) error {
	if err := json.Unmarshal(data, o); err != nil {
		return fmt.Errorf("failed to apply JSON to options: %w", err)
	}
	return nil
}

// ToJSON encodes o.
func (o *Options) ToJSON() []byte {
	bytes, err := json.Marshal(o)
	if err != nil {
		panic(err)
	}
	return bytes
}

func (o *Options) validate() error {
	if o.Voices < 1 {
		return fmt.Errorf("%w: voices must be >= 1, got %d", ErrInvalidOptions, o.Voices)
	}
	if o.Operators < 1 {
		return fmt.Errorf("%w: operators must be >= 1, got %d", ErrInvalidOptions, o.Operators)
	}
	if o.Channel < 1 || o.Channel > 16 {
		return fmt.Errorf("%w: channel must be 1-16, got %d", ErrInvalidOptions, o.Channel)
	}
	if o.Delay && (o.DelayTime <= 0 || o.DelayTime > maxDelayTime) {
		return fmt.Errorf("%w: delay time must be in (0, %v], got %v", ErrInvalidOptions, maxDelayTime, o.DelayTime)
	}
	if o.Decay <= 0 {
		return fmt.Errorf("%w: decay must be > 0, got %v", ErrInvalidOptions, o.Decay)
	}
	if o.OutputGain < 0 {
		return fmt.Errorf("%w: output gain must be >= 0, got %v", ErrInvalidOptions, o.OutputGain)
	}
	return nil
}

// resolveRatios returns the ratio list for n operators. Operator 0 is
// always 1; the others are random integers in [2,16) unless given.
func resolveRatios(given []float64, n int, rnd *rand.Rand) ([]float64, error) {
	ratios := make([]float64, n)
	if len(given) == 0 {
		for i := range ratios {
			if i == 0 {
				ratios[i] = 1
			} else {
				ratios[i] = float64(randInt(rnd, minRatio, maxRatio))
			}
		}
		return ratios, nil
	}
	if len(given) != n {
		return nil, fmt.Errorf("%w: %d ratios for %d operators", ErrInvalidRatios, len(given), n)
	}
	for i, r := range given {
		if r <= 0 {
			return nil, fmt.Errorf("%w: ratio %d is %v", ErrInvalidRatios, i, r)
		}
		ratios[i] = r
	}
	ratios[0] = 1
	return ratios, nil
}
