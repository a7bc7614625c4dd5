// Package audio holds PCM buffers and the outputs that render them.
//
// Everything is mono signed 16-bit at SampleRate. Tones are synthesized,
// WAV files are decoded with go-audio and converted on load. Outputs are
// the sound device (oto), the terminal bell and a silent sink for headless
// runs and tests.
package audio
