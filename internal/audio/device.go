package audio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const rampStep = 250 * time.Millisecond

// DeviceOutput plays through the system sound device.
// The oto context is created on first use: only one may exist per process.
type DeviceOutput struct {
	once sync.Once
	ctx  *oto.Context
	err  error
}

// NewDeviceOutput creates a device output without touching the hardware.
func NewDeviceOutput() *DeviceOutput {
	return new(DeviceOutput)
}

// Name implements Output.
func (d *DeviceOutput) Name() string { return "device" }

func (d *DeviceOutput) context() (*oto.Context, error) {
	d.once.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			d.err = fmt.Errorf("%w: %w", ErrNoDevice, err)

			return
		}

		// Wait for the hardware audio devices to be ready.
		<-ready

		d.ctx = ctx
	})

	return d.ctx, d.err
}

// Start implements Output.
func (d *DeviceOutput) Start(pcm PCM, p Playback) (Stream, error) {
	ctx, err := d.context()
	if err != nil {
		return nil, err
	}

	data := pcm.Bytes()

	var r io.Reader = bytes.NewReader(data)
	if p.Loop {
		r = &loopReader{data: data}
	}

	player := ctx.NewPlayer(r)
	s := &deviceStream{stopOnce: newStopOnce(), player: player}

	if p.Ramp > 0 {
		player.SetVolume(0)
		go Ramp(s.ch, p.Volume, p.Ramp, rampStep, player.SetVolume)
	} else {
		player.SetVolume(p.Volume)
	}

	player.Play()

	return s, nil
}

type deviceStream struct {
	stopOnce

	player *oto.Player
}

func (s *deviceStream) Stop() error {
	if !s.signal() {
		return nil
	}

	s.player.Pause()

	return s.player.Close()
}

// loopReader repeats data forever.
type loopReader struct {
	data []byte
	pos  int
}

func (l *loopReader) Read(p []byte) (int, error) {
	if len(l.data) == 0 {
		return 0, io.EOF
	}

	n := 0

	for n < len(p) {
		c := copy(p[n:], l.data[l.pos:])
		n += c
		l.pos = (l.pos + c) % len(l.data)
	}

	return n, nil
}
