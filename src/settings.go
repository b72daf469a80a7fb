package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/jinjor/fm-synth/src/fm"
)

// settings are the flags that override fm.Options. Only flags given on
// the command line are applied, so a -config file keeps its values.
type settings struct {
	mode       *string
	voices     *int
	operators  *int
	preset     *int
	algorithm  *string
	ratios     *string
	channel    *int
	delay      *bool
	delayTime  *float64
	decay      *float64
	outputGain *float64
	seed       *int64
}

func newSettings(fs *flag.FlagSet) *settings {
	d := fm.DefaultOptions()
	return &settings{
		mode:       fs.String("mode", d.Mode, "mono, poly or drum"),
		voices:     fs.Int("voices", d.Voices, "number of voices"),
		operators:  fs.Int("operators", d.Operators, "operators per voice"),
		preset:     fs.Int("preset", d.Preset, "built-in algorithm index"),
		algorithm:  fs.String("algorithm", "", `custom algorithm as JSON, e.g. {"0":["out"],"1":[0]}`),
		ratios:     fs.String("ratios", "", "comma separated operator ratios; random when empty"),
		channel:    fs.Int("channel", d.Channel, "MIDI channel (1-16)"),
		delay:      fs.Bool("delay", d.Delay, "enable the feedback delay"),
		delayTime:  fs.Float64("delay-time", d.DelayTime, "delay time in seconds"),
		decay:      fs.Float64("decay", d.Decay, "default decay in seconds"),
		outputGain: fs.Float64("gain", d.OutputGain, "output gain"),
		seed:       fs.Int64("seed", d.Seed, "random seed for ratios and modulation depths; 0 uses the clock"),
	}
}

func (s *settings) apply(fs *flag.FlagSet, o *fm.Options) error {
	given := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		given[f.Name] = true
	})
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "mode":
			o.Mode = *s.mode
		case "voices":
			o.Voices = *s.voices
		case "operators":
			o.Operators = *s.operators
		case "preset":
			o.Preset = *s.preset
			// -algorithm wins over -preset; a table from -config does not
			if !given["algorithm"] {
				o.Algorithm = nil
			}
		case "algorithm":
			o.Algorithm, err = fm.ParseRoutingTable(*s.algorithm)
		case "ratios":
			o.Ratios, err = parseFloats(*s.ratios)
		case "channel":
			o.Channel = *s.channel
		case "delay":
			o.Delay = *s.delay
		case "delay-time":
			o.DelayTime = *s.delayTime
		case "decay":
			o.Decay = *s.decay
		case "gain":
			o.OutputGain = *s.outputGain
		case "seed":
			o.Seed = *s.seed
		}
		if err != nil {
			err = fmt.Errorf("-%s: %w", f.Name, err)
		}
	})
	return err
}

func parseFloats(s string) ([]float64, error) {
	var values []float64
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		value, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func parseInts(s string) ([]int, error) {
	var values []int
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		value, err := strconv.Atoi(item)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}
