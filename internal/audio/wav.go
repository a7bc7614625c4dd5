package audio

import (
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned for input that is not a supported WAV file.
var ErrInvalidWAV = errors.New("invalid WAV file")

// DecodeWAV reads a WAV file and converts it to mono 16-bit at SampleRate.
func DecodeWAV(r io.ReadSeeker) (PCM, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return PCM{}, ErrInvalidWAV
	}

	switch decoder.BitDepth {
	case 8, 16, 24, 32:
	default:
		return PCM{}, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, decoder.BitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("decode WAV: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return PCM{}, fmt.Errorf("%w: no channels", ErrInvalidWAV)
	}

	mono := downmix(buf.Data, channels, int(decoder.BitDepth))

	return PCM{
		Samples:    resample(mono, buf.Format.SampleRate, SampleRate),
		SampleRate: SampleRate,
	}, nil
}

// EncodeWAV writes the buffer as a 16-bit mono WAV file.
func EncodeWAV(w io.WriteSeeker, pcm PCM) error {
	enc := wav.NewEncoder(w, pcm.SampleRate, 16, 1, 1)

	data := make([]int, len(pcm.Samples))
	for i, s := range pcm.Samples {
		data[i] = int(s)
	}

	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: pcm.SampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode WAV: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize WAV: %w", err)
	}

	return nil
}

// downmix averages interleaved frames and rescales them to 16 bits.
// 8-bit WAV samples are unsigned.
func downmix(data []int, channels, bitDepth int) []int16 {
	frames := len(data) / channels
	out := make([]int16, frames)

	for i := range frames {
		var sum int

		for c := range channels {
			v := data[i*channels+c]
			if bitDepth == 8 {
				v -= 128
			}

			sum += v
		}

		out[i] = to16(sum/channels, bitDepth)
	}

	return out
}

func to16(v, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		v >>= bitDepth - 16
	case bitDepth < 16:
		v <<= 16 - bitDepth
	}

	return int16(max(math.MinInt16, min(math.MaxInt16, v)))
}

// resample converts by linear interpolation.
func resample(in []int16, from, to int) []int16 {
	if from == to || from <= 0 || len(in) == 0 {
		return in
	}

	n := int(int64(len(in)) * int64(to) / int64(from))
	out := make([]int16, n)
	ratio := float64(from) / float64(to)

	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		frac := pos - float64(j)

		a := float64(in[j])
		b := a

		if j+1 < len(in) {
			b = float64(in[j+1])
		}

		out[i] = int16(a + (b-a)*frac)
	}

	return out
}
