package daemon

import (
	"fmt"
	"io"
	"time"

	"github.com/oshokin/alarm-clock/internal/audio"
	"github.com/oshokin/alarm-clock/internal/config"
)

// bellInterval is how often the terminal bell rings while an alarm sounds.
const bellInterval = 2 * time.Second

// newOutput builds the audio output selected in the settings. The bell
// writes to w.
func newOutput(name string, w io.Writer) (audio.Output, error) {
	switch name {
	case config.OutputAuto, "":
		return audio.NewFallbackOutput(audio.NewDeviceOutput(), audio.NewBellOutput(w, bellInterval)), nil
	case config.OutputDevice:
		return audio.NewDeviceOutput(), nil
	case config.OutputBell:
		return audio.NewBellOutput(w, bellInterval), nil
	case config.OutputSilent:
		return audio.NewSilentOutput(), nil
	default:
		return nil, fmt.Errorf("unknown playback output %q", name)
	}
}
