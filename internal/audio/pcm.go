package audio

import (
	"encoding/binary"
	"time"
)

// SampleRate is the rate every buffer is converted to.
const SampleRate = 44100

// PCM is a mono signed 16-bit buffer.
type PCM struct {
	// Samples holds one value per frame.
	Samples []int16
	// SampleRate is frames per second.
	SampleRate int
}

// Duration returns the play time of the buffer.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}

	return time.Duration(len(p.Samples)) * time.Second / time.Duration(p.SampleRate)
}

// IsEmpty reports whether the buffer has no samples.
func (p PCM) IsEmpty() bool {
	return len(p.Samples) == 0
}

// Bytes encodes the samples as little-endian bytes.
func (p PCM) Bytes() []byte {
	out := make([]byte, 2*len(p.Samples))

	for i, s := range p.Samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}

	return out
}
