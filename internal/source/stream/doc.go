// Package stream is the remote music source backed by a streaming provider's
// playback API.
//
// Connecting opens a provider session for a track on a configured device.
// The provider may never answer, so callers must bound Prepare; the source
// honours cancellation and releases a session that arrives after its caller
// gave up.
package stream
