package audio

import (
	"math"
	"slices"
	"time"
)

const fullScale = math.MaxInt16

// Segment is one piece of a synthesized tone.
type Segment struct {
	// Frequencies are summed sine waves in Hz; empty means silence.
	Frequencies []float64
	// Duration is the length of the segment.
	Duration time.Duration
	// Decay makes the amplitude fall exponentially over the segment.
	Decay bool
}

// ToneSpec is a synthesized tone: a sequence of segments, looped by outputs.
type ToneSpec struct {
	Segments []Segment
}

// builtinTones are the tones that need no files.
//
//nolint:gochecknoglobals // Read-only tone table.
var builtinTones = map[string]ToneSpec{
	"default": {Segments: []Segment{
		{Frequencies: []float64{880}, Duration: 150 * time.Millisecond},
		{Duration: 100 * time.Millisecond},
		{Frequencies: []float64{880}, Duration: 150 * time.Millisecond},
		{Duration: 600 * time.Millisecond},
	}},
	"classic": {Segments: []Segment{
		{Frequencies: []float64{1000, 1500}, Duration: 50 * time.Millisecond},
		{Duration: 50 * time.Millisecond},
		{Frequencies: []float64{1000, 1500}, Duration: 50 * time.Millisecond},
		{Duration: 50 * time.Millisecond},
		{Frequencies: []float64{1000, 1500}, Duration: 50 * time.Millisecond},
		{Duration: 400 * time.Millisecond},
	}},
	"beep": {Segments: []Segment{
		{Frequencies: []float64{1000}, Duration: 500 * time.Millisecond},
		{Duration: 500 * time.Millisecond},
	}},
	"chime": {Segments: []Segment{
		{Frequencies: []float64{659.25}, Duration: 400 * time.Millisecond, Decay: true},
		{Frequencies: []float64{523.25}, Duration: 400 * time.Millisecond, Decay: true},
		{Frequencies: []float64{392}, Duration: 800 * time.Millisecond, Decay: true},
		{Duration: 400 * time.Millisecond},
	}},
}

// BuiltinTone returns the parameters of a built-in tone.
func BuiltinTone(name string) (ToneSpec, bool) {
	spec, ok := builtinTones[name]

	return spec, ok
}

// BuiltinToneNames lists the built-in tones in alphabetical order.
func BuiltinToneNames() []string {
	names := make([]string, 0, len(builtinTones))
	for name := range builtinTones {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Synthesize renders the tone at SampleRate.
func Synthesize(spec ToneSpec) PCM {
	var samples []int16

	for _, seg := range spec.Segments {
		samples = append(samples, renderSegment(seg)...)
	}

	return PCM{Samples: samples, SampleRate: SampleRate}
}

func renderSegment(seg Segment) []int16 {
	n := int(seg.Duration.Seconds() * SampleRate)
	out := make([]int16, n)

	if len(seg.Frequencies) == 0 || n == 0 {
		return out
	}

	// Headroom for summed partials and a short fade to avoid clicks.
	amplitude := 0.6 / float64(len(seg.Frequencies))
	fade := min(n/2, SampleRate/200)

	for i := range out {
		t := float64(i) / SampleRate

		var v float64
		for _, f := range seg.Frequencies {
			v += math.Sin(2 * math.Pi * f * t)
		}

		gain := amplitude

		if seg.Decay {
			gain *= math.Exp(-3 * float64(i) / float64(n))
		}

		switch {
		case i < fade:
			gain *= float64(i) / float64(fade)
		case i >= n-fade:
			gain *= float64(n-i) / float64(fade)
		}

		out[i] = int16(v * gain * fullScale)
	}

	return out
}
